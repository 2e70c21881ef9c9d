package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"lokal/internal/audit"
	jwttoken "lokal/internal/jwt_token"
	"lokal/internal/oidc"
	"lokal/internal/oidc/models"
	dErrors "lokal/pkg/domain-errors"
	"lokal/pkg/platform/httputil"
	"lokal/pkg/requestcontext"
	"lokal/pkg/secrets"
)

// TokenResponse is the token endpoint's success body.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Scope       string `json:"scope,omitempty"`
	IDToken     string `json:"id_token,omitempty"`
}

// Respond renders the handler's decision.
func (s *Server) Respond(w http.ResponseWriter, r *http.Request, result oidc.Result) {
	ctx := r.Context()
	req := oidc.RequestFrom(ctx)

	switch res := result.(type) {
	case *oidc.ChallengeResult:
		s.challenge(w, r, req)
	case *oidc.SignInResult:
		if req == nil || res.Scheme != oidc.SchemeServer || res.Principal == nil {
			s.fail(ctx, w, dErrors.New(dErrors.CodeProtocol, "sign-in requires the server scheme within an OpenID Connect request"))
			return
		}
		switch req.Endpoint {
		case oidc.EndpointAuthorize:
			s.issueCode(w, r, req, res.Principal)
		case oidc.EndpointToken:
			s.issueTokens(ctx, w, req, res.Principal)
		default:
			s.fail(ctx, w, dErrors.New(dErrors.CodeProtocol, "unknown OpenID Connect endpoint"))
		}
	case *oidc.ErrorResult:
		endpoint := ""
		if req != nil {
			endpoint = string(req.Endpoint)
		}
		s.writeError(ctx, w, endpoint, res.Status, res.Error, res.Description)
	default:
		s.fail(ctx, w, dErrors.New(dErrors.CodeProtocol, "unsupported OpenID Connect result"))
	}
}

// challenge sends the browser to the login page, which returns it to the
// original authorize URL after signing in.
func (s *Server) challenge(w http.ResponseWriter, r *http.Request, req *oidc.Request) {
	loginURL, err := url.Parse(s.cfg.LoginURL)
	if err != nil {
		s.fail(r.Context(), w, dErrors.Wrap(err, dErrors.CodeInternal, "invalid login URL"))
		return
	}
	if req != nil && req.ReturnURL != "" {
		query := loginURL.Query()
		query.Set("return_url", req.ReturnURL)
		loginURL.RawQuery = query.Encode()
	}
	http.Redirect(w, r, loginURL.String(), http.StatusFound)
}

func (s *Server) issueCode(w http.ResponseWriter, r *http.Request, req *oidc.Request, principal *oidc.Principal) {
	ctx := r.Context()
	value, err := secrets.Token()
	if err != nil {
		s.fail(ctx, w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate authorization code"))
		return
	}

	now := requestcontext.Now(ctx)
	code := &models.AuthorizationCode{
		Code:                value,
		ClientID:            req.ClientID,
		RedirectURI:         req.RedirectURI,
		Principal:           principal,
		Nonce:               req.Nonce,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: req.CodeChallengeMethod,
		CreatedAt:           now,
		ExpiresAt:           now.Add(s.cfg.CodeTTL),
	}
	if err := s.codes.Create(ctx, code); err != nil {
		s.fail(ctx, w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store authorization code"))
		return
	}

	redirectURL, err := url.Parse(req.RedirectURI)
	if err != nil {
		s.fail(ctx, w, dErrors.Wrap(err, dErrors.CodeInternal, "invalid redirect_uri"))
		return
	}
	query := redirectURL.Query()
	query.Set("code", value)
	if req.State != "" {
		query.Set("state", req.State)
	}
	redirectURL.RawQuery = query.Encode()

	s.metrics.IncrementCodesIssued()
	s.emit(ctx, audit.ActionCodeIssued, principal.Subject(), req.ClientID)
	http.Redirect(w, r, redirectURL.String(), http.StatusFound)
}

func (s *Server) issueTokens(ctx context.Context, w http.ResponseWriter, req *oidc.Request, principal *oidc.Principal) {
	accessToken, err := s.tokens.GenerateAccessToken(jwttoken.AccessTokenRequest{
		Subject:   principal.Subject(),
		ClientID:  req.ClientID,
		Scopes:    principal.Scopes,
		Claims:    principal.ClaimsFor(oidc.DestinationAccessToken),
		ExpiresIn: s.cfg.AccessTokenTTL,
	})
	if err != nil {
		s.fail(ctx, w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign access token"))
		return
	}

	resp := TokenResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.cfg.AccessTokenTTL.Seconds()),
		Scope:       strings.Join(principal.Scopes, " "),
	}
	if req.HasScope(ScopeOpenID) {
		resp.IDToken, err = s.tokens.GenerateIDToken(jwttoken.IDTokenRequest{
			Subject:   principal.Subject(),
			ClientID:  req.ClientID,
			Nonce:     req.Nonce,
			Claims:    principal.ClaimsFor(oidc.DestinationIdentityToken),
			ExpiresIn: s.cfg.AccessTokenTTL,
		})
		if err != nil {
			s.fail(ctx, w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign id token"))
			return
		}
	}

	s.metrics.IncrementTokensIssued()
	s.emit(ctx, audit.ActionTokenIssued, principal.Subject(), req.ClientID)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) fail(ctx context.Context, w http.ResponseWriter, err error) {
	s.logger.ErrorContext(ctx, "oidc response failed",
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
