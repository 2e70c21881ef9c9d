package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lokal/internal/auth/models"
	"lokal/internal/oidc"
	"lokal/pkg/platform/httputil"
	"lokal/pkg/requestcontext"
)

// AccountService is the slice of the auth service the handlers need.
type AccountService interface {
	Login(ctx context.Context, username, password string) (*models.Session, error)
	Logout(ctx context.Context, sessionID string) error
	ResolveSession(ctx context.Context, sessionID string) (string, error)
	FindUser(ctx context.Context, subject string) (*models.User, error)
}

// ProtocolServer parses OIDC requests before the handler runs and renders
// its decisions afterwards.
type ProtocolServer interface {
	AuthorizeEndpoint(next http.Handler) http.Handler
	TokenEndpoint(next http.Handler) http.Handler
	Respond(w http.ResponseWriter, r *http.Request, result oidc.Result)
}

// CookieConfig is the login cookie policy.
type CookieConfig struct {
	Name     string
	Secure   bool
	SameSite http.SameSite
}

// Handler serves the authorize, token and account endpoints.
type Handler struct {
	accounts AccountService
	protocol ProtocolServer
	authz    *AuthorizationHandler
	cookie   CookieConfig
	logger   *slog.Logger
}

func New(accounts AccountService, protocol ProtocolServer, cookie CookieConfig, logger *slog.Logger) *Handler {
	return &Handler{
		accounts: accounts,
		protocol: protocol,
		authz:    NewAuthorizationHandler(accounts, logger),
		cookie:   cookie,
		logger:   logger,
	}
}

// Register mounts the OIDC and account endpoints. None of them take a bearer
// token.
func (h *Handler) Register(r chi.Router) {
	r.With(h.protocol.AuthorizeEndpoint).Get("/connect/authorize", h.HandleAuthorize)
	r.With(h.protocol.AuthorizeEndpoint).Post("/connect/authorize", h.HandleAuthorize)
	r.With(h.protocol.TokenEndpoint).Post("/connect/token", h.HandleToken)
	r.Post("/api/account/login", h.HandleLogin)
	r.Post("/api/account/logout", h.HandleLogout)
}

// HandleAuthorize handles GET|POST /connect/authorize.
func (h *Handler) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	result, err := h.authz.Authorize(ctx, h.provider(r))
	if err != nil {
		h.fail(ctx, w, "authorize failed", err)
		return
	}
	h.protocol.Respond(w, r, result)
}

// HandleToken handles POST /connect/token.
func (h *Handler) HandleToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	result, err := h.authz.Exchange(ctx, h.provider(r))
	if err != nil {
		h.fail(ctx, w, "token exchange failed", err)
		return
	}
	h.protocol.Respond(w, r, result)
}

// HandleLogin handles POST /api/account/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[LoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	session, err := h.accounts.Login(ctx, req.Username, req.Password)
	if err != nil {
		h.fail(ctx, w, "login failed", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: h.cookie.SameSite,
	})
	httputil.WriteJSON(w, http.StatusOK, LoginResponse{UserID: session.UserID.String()})
}

// HandleLogout handles POST /api/account/logout.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if cookie, err := r.Cookie(h.cookie.Name); err == nil && cookie.Value != "" {
		if err := h.accounts.Logout(ctx, cookie.Value); err != nil {
			h.fail(ctx, w, "logout failed", err)
			return
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: h.cookie.SameSite,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) provider(r *http.Request) oidc.Provider {
	return oidc.NewHTTPProvider(r, h.accounts, h.cookie.Name)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
