package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"lokal/internal/oidc"
	"lokal/internal/oidc/models"
	dErrors "lokal/pkg/domain-errors"
	"lokal/pkg/platform/sentinel"
	"lokal/pkg/requestcontext"
	"lokal/pkg/secrets"
)

// grantError is an OAuth error raised while validating a token request.
type grantError struct {
	status      int
	code        string
	description string
}

func (e *grantError) Error() string { return e.code + ": " + e.description }

// TokenEndpoint authenticates the client and, for the authorization_code
// grant, redeems the code and attaches its principal. Other grants reach the
// handler unchanged so it can reject them.
func (s *Server) TokenEndpoint(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		endpoint := string(oidc.EndpointToken)
		if err := r.ParseForm(); err != nil {
			s.writeError(ctx, w, endpoint, http.StatusBadRequest, "invalid_request", "invalid form data")
			return
		}

		req := &oidc.Request{
			Endpoint:     oidc.EndpointToken,
			GrantType:    r.PostForm.Get("grant_type"),
			ClientID:     r.PostForm.Get("client_id"),
			Code:         r.PostForm.Get("code"),
			RedirectURI:  r.PostForm.Get("redirect_uri"),
			CodeVerifier: r.PostForm.Get("code_verifier"),
		}
		if req.GrantType == "" {
			s.writeError(ctx, w, endpoint, http.StatusBadRequest, "invalid_request", "grant_type is required")
			return
		}

		clientSecret := r.PostForm.Get("client_secret")
		if id, secret, ok := r.BasicAuth(); ok {
			// client_secret_basic credentials are form-urlencoded
			decodedID, idErr := url.QueryUnescape(id)
			decodedSecret, secretErr := url.QueryUnescape(secret)
			if idErr != nil || secretErr != nil {
				s.writeError(ctx, w, endpoint, http.StatusUnauthorized, "invalid_client", "malformed client credentials")
				return
			}
			req.ClientID, clientSecret = decodedID, decodedSecret
		}
		if _, err := s.authenticateClient(ctx, req.ClientID, clientSecret); err != nil {
			s.rejectToken(ctx, w, err)
			return
		}

		if req.IsAuthorizationCodeGrant() {
			code, err := s.redeem(ctx, req)
			if err != nil {
				s.rejectToken(ctx, w, err)
				return
			}
			req.Scopes = code.Principal.Scopes
			req.Nonce = code.Nonce
			ctx = oidc.WithServerPrincipal(ctx, code.Principal)
		}

		next.ServeHTTP(w, r.WithContext(oidc.WithRequest(ctx, req)))
	})
}

func (s *Server) authenticateClient(ctx context.Context, clientID, secret string) (*models.Client, error) {
	if clientID == "" {
		return nil, &grantError{http.StatusBadRequest, "invalid_request", "client_id is required"}
	}
	client, err := s.clients.FindByID(ctx, clientID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, &grantError{http.StatusUnauthorized, "invalid_client", "unknown client"}
	}
	if err != nil {
		return nil, err
	}
	if client.IsPublic() {
		return client, nil
	}
	if err := secrets.Verify(secret, client.SecretHash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			return nil, &grantError{http.StatusUnauthorized, "invalid_client", "invalid client authentication"}
		}
		return nil, err
	}
	return client, nil
}

// redeem consumes the code exactly once. A code presented with the wrong
// client, redirect URI or verifier is still burned.
func (s *Server) redeem(ctx context.Context, req *oidc.Request) (*models.AuthorizationCode, error) {
	if req.Code == "" {
		return nil, &grantError{http.StatusBadRequest, "invalid_request", "code is required"}
	}

	code, err := s.codes.Consume(ctx, req.Code, requestcontext.Now(ctx))
	switch {
	case err == nil:
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, &grantError{http.StatusBadRequest, "invalid_grant", "invalid authorization code"}
	case errors.Is(err, sentinel.ErrExpired):
		return nil, &grantError{http.StatusBadRequest, "invalid_grant", "authorization code expired"}
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return nil, &grantError{http.StatusBadRequest, "invalid_grant", "authorization code already used"}
	default:
		return nil, err
	}

	if code.ClientID != req.ClientID {
		return nil, &grantError{http.StatusBadRequest, "invalid_grant", "client_id mismatch"}
	}
	if code.RedirectURI != req.RedirectURI {
		return nil, &grantError{http.StatusBadRequest, "invalid_grant", "redirect_uri mismatch"}
	}
	if code.CodeChallenge != "" && !secrets.VerifyS256(req.CodeVerifier, code.CodeChallenge) {
		return nil, &grantError{http.StatusBadRequest, "invalid_grant", "PKCE verification failed"}
	}
	if code.Principal == nil {
		return nil, &grantError{http.StatusBadRequest, "invalid_grant", "invalid authorization code"}
	}
	return code, nil
}

func (s *Server) rejectToken(ctx context.Context, w http.ResponseWriter, err error) {
	var ge *grantError
	if errors.As(err, &ge) {
		s.writeError(ctx, w, string(oidc.EndpointToken), ge.status, ge.code, ge.description)
		return
	}
	s.logger.ErrorContext(ctx, "token request failed",
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	s.writeError(ctx, w, string(oidc.EndpointToken), http.StatusInternalServerError, "server_error", "")
}
