package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"lokal/internal/audit"
	"lokal/internal/auth/models"
	dErrors "lokal/pkg/domain-errors"
	"lokal/pkg/platform/sentinel"
	"lokal/pkg/requestcontext"
	"lokal/pkg/secrets"
)

// UserStore persists accounts.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// SessionStore persists browser logins.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, id string, now time.Time) (*models.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// AuditPublisher records authentication outcomes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// Service owns accounts and cookie sessions.
type Service struct {
	users      UserStore
	sessions   SessionStore
	sessionTTL time.Duration
	audit      AuditPublisher
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.audit = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func New(users UserStore, sessions SessionStore, opts ...Option) *Service {
	s := &Service{
		users:      users,
		sessions:   sessions,
		sessionTTL: 24 * time.Hour,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Register creates an account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	hash, err := secrets.Hash(password)
	if err != nil {
		return nil, err
	}
	user, err := models.NewUser(username, email, hash, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "user already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}
	return user, nil
}

// Login checks credentials and opens a session.
func (s *Service) Login(ctx context.Context, username, password string) (*models.Session, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.emit(ctx, audit.ActionLoginFailed, "", "unknown user")
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid username or password")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	if err := secrets.Verify(password, user.PasswordHash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			s.emit(ctx, audit.ActionLoginFailed, user.ID.String(), "bad password")
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid username or password")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify password")
	}

	id, err := secrets.Token()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}
	now := requestcontext.Now(ctx)
	session := &models.Session{
		ID:        id,
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}

	s.logger.InfoContext(ctx, "user logged in",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", user.ID,
	)
	s.emit(ctx, audit.ActionLoginSucceeded, user.ID.String(), "")
	return session, nil
}

// Logout ends a session. Unknown sessions are ignored.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	session, err := s.sessions.FindByID(ctx, sessionID, requestcontext.Now(ctx))
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) && !errors.Is(err, sentinel.ErrExpired) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete session")
	}
	if session != nil {
		s.emit(ctx, audit.ActionLogout, session.UserID.String(), "")
	}
	return nil
}

// ResolveSession returns the subject a live session belongs to.
func (s *Service) ResolveSession(ctx context.Context, sessionID string) (string, error) {
	session, err := s.sessions.FindByID(ctx, sessionID, requestcontext.Now(ctx))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrExpired) {
			return "", dErrors.Wrap(err, dErrors.CodeUnauthorized, "session is not valid")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
	}
	return session.UserID.String(), nil
}

// FindUser loads the user a subject identifies.
func (s *Service) FindUser(ctx context.Context, subject string) (*models.User, error) {
	id, err := uuid.Parse(subject)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return user, nil
}

// CleanupExpiredSessions sweeps expired sessions every interval until ctx is
// cancelled.
func (s *Service) CleanupExpiredSessions(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			deleted, err := s.sessions.DeleteExpired(ctx, time.Now())
			if err != nil {
				s.logger.ErrorContext(ctx, "failed to delete expired sessions", "error", err)
				continue
			}
			if deleted > 0 {
				s.logger.InfoContext(ctx, "deleted expired sessions", "count", deleted)
			}
		}
	}
}

func (s *Service) emit(ctx context.Context, action audit.Action, subject, reason string) {
	if s.audit == nil {
		return
	}
	s.audit.Emit(ctx, audit.Event{
		Category: audit.CategorySecurity,
		Action:   action,
		Subject:  subject,
		Reason:   reason,
	})
}
