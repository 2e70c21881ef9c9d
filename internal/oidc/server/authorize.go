package server

import (
	"errors"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"lokal/internal/oidc"
	"lokal/pkg/platform/sentinel"
	strutil "lokal/pkg/platform/strings"
)

const codeChallengeMethodS256 = "S256"

// AuthorizeEndpoint validates an authorization request and attaches it to the
// request context. Errors about the client or redirect URI are rendered as
// JSON; every later error is reported back to the client's redirect URI.
func (s *Server) AuthorizeEndpoint(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if err := r.ParseForm(); err != nil {
			s.writeError(ctx, w, string(oidc.EndpointAuthorize), http.StatusBadRequest, "invalid_request", "invalid form data")
			return
		}

		req := &oidc.Request{
			Endpoint:            oidc.EndpointAuthorize,
			ClientID:            r.Form.Get("client_id"),
			RedirectURI:         r.Form.Get("redirect_uri"),
			ResponseType:        r.Form.Get("response_type"),
			Scopes:              strutil.Fields(r.Form.Get("scope")),
			State:               r.Form.Get("state"),
			Nonce:               r.Form.Get("nonce"),
			CodeChallenge:       r.Form.Get("code_challenge"),
			CodeChallengeMethod: r.Form.Get("code_challenge_method"),
		}

		if req.ClientID == "" {
			s.writeError(ctx, w, string(oidc.EndpointAuthorize), http.StatusBadRequest, "invalid_request", "client_id is required")
			return
		}
		client, err := s.clients.FindByID(ctx, req.ClientID)
		if errors.Is(err, sentinel.ErrNotFound) {
			s.writeError(ctx, w, string(oidc.EndpointAuthorize), http.StatusBadRequest, "invalid_client", "unknown client_id")
			return
		}
		if err != nil {
			s.logger.ErrorContext(ctx, "client lookup failed", "client_id", req.ClientID, "error", err)
			s.writeError(ctx, w, string(oidc.EndpointAuthorize), http.StatusInternalServerError, "server_error", "")
			return
		}
		if req.RedirectURI == "" || !client.AllowsRedirect(req.RedirectURI) {
			s.writeError(ctx, w, string(oidc.EndpointAuthorize), http.StatusBadRequest, "invalid_request", "redirect_uri is not registered for this client")
			return
		}

		if req.ResponseType != oidc.ResponseTypeCode {
			s.redirectError(w, r, req, "unsupported_response_type", "only the code response type is supported")
			return
		}
		for _, scope := range req.Scopes {
			if !slices.Contains(RegisteredScopes, scope) || !client.AllowsScope(scope) {
				s.redirectError(w, r, req, "invalid_scope", "scope "+scope+" is not allowed")
				return
			}
		}
		if req.CodeChallenge == "" && req.CodeChallengeMethod != "" {
			s.redirectError(w, r, req, "invalid_request", "code_challenge is required when code_challenge_method is set")
			return
		}
		if req.CodeChallenge != "" && req.CodeChallengeMethod != codeChallengeMethodS256 {
			s.redirectError(w, r, req, "invalid_request", "code_challenge_method must be S256")
			return
		}

		req.ReturnURL = strings.TrimRight(s.cfg.Issuer, "/") + r.URL.Path + "?" + r.Form.Encode()
		next.ServeHTTP(w, r.WithContext(oidc.WithRequest(ctx, req)))
	})
}

func (s *Server) redirectError(w http.ResponseWriter, r *http.Request, req *oidc.Request, code, description string) {
	s.metrics.IncrementError(string(oidc.EndpointAuthorize), code)
	redirectURL, err := url.Parse(req.RedirectURI)
	if err != nil {
		s.writeError(r.Context(), w, string(oidc.EndpointAuthorize), http.StatusBadRequest, "invalid_request", "invalid redirect_uri")
		return
	}
	query := redirectURL.Query()
	query.Set("error", code)
	query.Set("error_description", description)
	if req.State != "" {
		query.Set("state", req.State)
	}
	redirectURL.RawQuery = query.Encode()
	http.Redirect(w, r, redirectURL.String(), http.StatusFound)
}
