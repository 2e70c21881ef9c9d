package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"lokal/internal/audit"
	"lokal/internal/translation/metrics"
	"lokal/internal/translation/models"
	"lokal/internal/translation/store"
	dErrors "lokal/pkg/domain-errors"
	"lokal/pkg/platform/sentinel"
	"lokal/pkg/requestcontext"
)

var tracer = otel.Tracer("lokal/internal/translation/service")

// AuditPublisher records content changes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// Service orchestrates the TextResource aggregate over one unit of work per
// call. Every mutating call commits exactly once.
type Service struct {
	store   store.Store
	audit   AuditPublisher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.audit = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func New(st store.Store, opts ...Option) *Service {
	s := &Service{store: st, logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// List returns every resource with its translations.
func (s *Service) List(ctx context.Context) ([]*models.TextResource, error) {
	resources, err := s.store.Begin().List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list text resources")
	}
	return resources, nil
}

// ListSids returns every sid.
func (s *Service) ListSids(ctx context.Context) ([]string, error) {
	sids, err := s.store.Begin().ListSids(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sids")
	}
	return sids, nil
}

// Get loads one resource.
func (s *Service) Get(ctx context.Context, sid string) (*models.TextResource, error) {
	res, err := s.store.Begin().GetBySid(ctx, sid)
	if err != nil {
		return nil, translateLoadError(err)
	}
	return res, nil
}

// Create adds a resource with one translation in the default language.
func (s *Service) Create(ctx context.Context, sid, defaultText string) (*models.TextResource, error) {
	res, err := models.New(sid)
	if err != nil {
		return nil, err
	}

	repo := s.store.Begin()
	if _, err := repo.GetBySid(ctx, sid); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "text resource already exists")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load text resource")
	}

	if err := res.AddOrUpdateTranslation(models.DefaultLangID, defaultText); err != nil {
		return nil, err
	}
	if err := repo.Add(ctx, res); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to stage text resource")
	}
	if err := s.commit(ctx, repo, "create"); err != nil {
		return nil, err
	}

	s.emit(ctx, audit.ActionResourceCreated, sid, models.DefaultLangID)
	return res, nil
}

// UpdateTranslation adds or overwrites the text for langID on an existing resource.
func (s *Service) UpdateTranslation(ctx context.Context, sid, langID, text string) error {
	repo := s.store.Begin()
	res, err := repo.GetBySid(ctx, sid)
	if err != nil {
		return translateLoadError(err)
	}
	if err := res.AddOrUpdateTranslation(langID, text); err != nil {
		return err
	}
	if err := s.commit(ctx, repo, "update"); err != nil {
		return err
	}

	s.emit(ctx, audit.ActionTranslationStored, sid, langID)
	return nil
}

// Delete removes a resource and all its translations.
func (s *Service) Delete(ctx context.Context, sid string) error {
	repo := s.store.Begin()
	if _, err := repo.GetBySid(ctx, sid); err != nil {
		return translateLoadError(err)
	}
	if err := repo.DeleteBySid(ctx, sid); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to stage deletion")
	}
	if err := s.commit(ctx, repo, "delete"); err != nil {
		return err
	}

	s.emit(ctx, audit.ActionResourceDeleted, sid, "")
	return nil
}

// commit saves the unit of work. A unique violation that slipped past the
// pre-checks (a concurrent writer) surfaces as a conflict.
func (s *Service) commit(ctx context.Context, repo store.Repository, operation string) error {
	ctx, span := tracer.Start(ctx, "translation.commit")
	defer span.End()
	span.SetAttributes(attribute.String("translation.operation", operation))

	err := repo.Save(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
	}
	switch {
	case err == nil:
		s.metrics.IncrementCommit(operation, "ok")
		return nil
	case errors.Is(err, sentinel.ErrConflict):
		s.metrics.IncrementCommit(operation, "conflict")
		return dErrors.Wrap(err, dErrors.CodeConflict, "conflicting concurrent change")
	case errors.Is(err, sentinel.ErrNotFound):
		s.metrics.IncrementCommit(operation, "conflict")
		return dErrors.Wrap(err, dErrors.CodeNotFound, "text resource not found")
	default:
		s.metrics.IncrementCommit(operation, "error")
		s.logger.ErrorContext(ctx, "failed to save text resources",
			"request_id", requestcontext.RequestID(ctx),
			"operation", operation,
			"error", err,
		)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save text resources")
	}
}

func (s *Service) emit(ctx context.Context, action audit.Action, sid, langID string) {
	if s.audit == nil {
		return
	}
	s.audit.Emit(ctx, audit.Event{
		Category: audit.CategoryContent,
		Action:   action,
		Subject:  requestcontext.Subject(ctx),
		ClientID: requestcontext.ClientID(ctx),
		Sid:      sid,
		LangID:   langID,
	})
}

func translateLoadError(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "text resource not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load text resource")
}
