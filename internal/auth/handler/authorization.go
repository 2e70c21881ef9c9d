package handler

import (
	"context"
	"log/slog"

	"lokal/internal/auth/models"
	"lokal/internal/oidc"
	dErrors "lokal/pkg/domain-errors"
	"lokal/pkg/requestcontext"
)

// UserResolver loads the account behind an authenticated subject.
type UserResolver interface {
	FindUser(ctx context.Context, subject string) (*models.User, error)
}

// AuthorizationHandler drives the authorization code flow against an
// oidc.Provider. It never mints codes or tokens itself; it only decides.
type AuthorizationHandler struct {
	users  UserResolver
	logger *slog.Logger
}

func NewAuthorizationHandler(users UserResolver, logger *slog.Logger) *AuthorizationHandler {
	return &AuthorizationHandler{users: users, logger: logger}
}

// Authorize handles the authorize step. An unauthenticated browser is
// challenged; an authenticated one gets a principal signed in under the
// server scheme, which the protocol layer turns into a code.
func (h *AuthorizationHandler) Authorize(ctx context.Context, provider oidc.Provider) (oidc.Result, error) {
	req, err := provider.ServerRequest(ctx)
	if err != nil {
		return nil, err
	}

	auth := provider.Authenticate(ctx, oidc.SchemeSession)
	if !auth.Succeeded || auth.Principal == nil {
		return provider.Challenge(oidc.SchemeSession), nil
	}

	user, err := h.users.FindUser(ctx, auth.Principal.Subject())
	if err != nil {
		h.logger.ErrorContext(ctx, "authenticated principal has no user",
			"request_id", requestcontext.RequestID(ctx),
			"subject", auth.Principal.Subject(),
			"error", err,
		)
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeIntegrity, "the user details cannot be retrieved")
		}
		return nil, err
	}

	principal := oidc.NewPrincipal(
		oidc.Claim{Type: oidc.ClaimSubject, Value: user.ID.String()},
		oidc.Claim{Type: oidc.ClaimEmail, Value: user.Email},
		oidc.Claim{Type: oidc.ClaimName, Value: user.Username},
	)
	principal.SetDestinations(claimDestinations)
	principal.Scopes = append([]string(nil), req.Scopes...)

	return provider.SignIn(principal, oidc.SchemeServer), nil
}

// Exchange handles the token step. Only the authorization_code grant is
// supported; anything else is a structured client error.
func (h *AuthorizationHandler) Exchange(ctx context.Context, provider oidc.Provider) (oidc.Result, error) {
	req, err := provider.ServerRequest(ctx)
	if err != nil {
		return nil, err
	}
	if !req.IsAuthorizationCodeGrant() {
		return oidc.UnsupportedGrantType(), nil
	}

	auth := provider.Authenticate(ctx, oidc.SchemeServer)
	if !auth.Succeeded || auth.Principal == nil {
		return nil, dErrors.New(dErrors.CodeProtocol, "the authorization code principal cannot be retrieved")
	}
	return provider.SignIn(auth.Principal, oidc.SchemeServer), nil
}

// claimDestinations routes email and name into both tokens and everything
// else into the access token only.
func claimDestinations(c oidc.Claim) []string {
	switch c.Type {
	case oidc.ClaimEmail, oidc.ClaimName:
		return []string{oidc.DestinationAccessToken, oidc.DestinationIdentityToken}
	default:
		return []string{oidc.DestinationAccessToken}
	}
}
