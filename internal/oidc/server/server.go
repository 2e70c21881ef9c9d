// Package server is the OpenID Connect protocol layer. It parses and
// validates authorize and token requests before the authorization handler
// runs, and turns the handler's oidc.Result into redirects, codes and tokens.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"lokal/internal/audit"
	jwttoken "lokal/internal/jwt_token"
	"lokal/internal/oidc/metrics"
	"lokal/internal/oidc/models"
	"lokal/pkg/platform/httputil"
	"lokal/pkg/requestcontext"
)

// Scopes the server knows about. A client may only request scopes it was
// registered with.
const (
	ScopeOpenID  = "openid"
	ScopeEmail   = "email"
	ScopeProfile = "profile"
	ScopeRoles   = "roles"
	ScopeAPI     = "api"
)

// RegisteredScopes lists every scope the server accepts.
var RegisteredScopes = []string{ScopeOpenID, ScopeEmail, ScopeProfile, ScopeRoles, ScopeAPI}

// ClientStore looks up registered clients.
type ClientStore interface {
	FindByID(ctx context.Context, clientID string) (*models.Client, error)
}

// CodeStore persists authorization codes.
type CodeStore interface {
	Create(ctx context.Context, code *models.AuthorizationCode) error
	Consume(ctx context.Context, code string, now time.Time) (*models.AuthorizationCode, error)
	DeleteExpiredCodes(ctx context.Context, now time.Time) (int, error)
}

// TokenIssuer mints signed tokens.
type TokenIssuer interface {
	GenerateAccessToken(req jwttoken.AccessTokenRequest) (string, error)
	GenerateIDToken(req jwttoken.IDTokenRequest) (string, error)
}

// AuditPublisher records issued codes and tokens.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// Config holds protocol policy.
type Config struct {
	Issuer         string
	LoginURL       string
	CodeTTL        time.Duration
	AccessTokenTTL time.Duration
}

// Server implements the authorize and token endpoints.
type Server struct {
	cfg     Config
	clients ClientStore
	codes   CodeStore
	tokens  TokenIssuer
	logger  *slog.Logger
	audit   AuditPublisher
	metrics *metrics.Metrics
}

// Option configures a Server.
type Option func(*Server)

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Server) { s.audit = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

func New(cfg Config, clients ClientStore, codes CodeStore, tokens TokenIssuer, logger *slog.Logger, opts ...Option) *Server {
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = 5 * time.Minute
	}
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = time.Hour
	}
	s := &Server{
		cfg:     cfg,
		clients: clients,
		codes:   codes,
		tokens:  tokens,
		logger:  logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// CleanupExpiredCodes sweeps expired authorization codes every interval until
// ctx is cancelled.
func (s *Server) CleanupExpiredCodes(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			deleted, err := s.codes.DeleteExpiredCodes(ctx, time.Now())
			if err != nil {
				s.logger.ErrorContext(ctx, "failed to delete expired authorization codes", "error", err)
				continue
			}
			if deleted > 0 {
				s.logger.InfoContext(ctx, "deleted expired authorization codes", "count", deleted)
			}
		}
	}
}

// writeError writes an OAuth error body.
func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, endpoint string, status int, code, description string) {
	s.metrics.IncrementError(endpoint, code)
	s.logger.InfoContext(ctx, "oidc request rejected",
		"request_id", requestcontext.RequestID(ctx),
		"endpoint", endpoint,
		"error", code,
		"error_description", description,
	)
	httputil.WriteJSON(w, status, httputil.ErrorResponse{Error: code, ErrorDescription: description})
}

func (s *Server) emit(ctx context.Context, action audit.Action, subject, clientID string) {
	if s.audit == nil {
		return
	}
	s.audit.Emit(ctx, audit.Event{
		Category: audit.CategorySecurity,
		Action:   action,
		Subject:  subject,
		ClientID: clientID,
	})
}
