package oidc

import (
	"context"
	"net/http"

	dErrors "lokal/pkg/domain-errors"
)

// SessionResolver maps a login cookie value to the subject it authenticates.
type SessionResolver interface {
	ResolveSession(ctx context.Context, sessionID string) (string, error)
}

// HTTPProvider is the Provider bound to one inbound request. The protocol
// middleware in oidc/server must have run first.
type HTTPProvider struct {
	r          *http.Request
	sessions   SessionResolver
	cookieName string
}

func NewHTTPProvider(r *http.Request, sessions SessionResolver, cookieName string) *HTTPProvider {
	return &HTTPProvider{r: r, sessions: sessions, cookieName: cookieName}
}

func (p *HTTPProvider) ServerRequest(ctx context.Context) (*Request, error) {
	req := RequestFrom(ctx)
	if req == nil {
		return nil, dErrors.New(dErrors.CodeProtocol, "the OpenID Connect request cannot be retrieved")
	}
	return req, nil
}

func (p *HTTPProvider) Authenticate(ctx context.Context, scheme string) AuthenticateResult {
	switch scheme {
	case SchemeSession:
		cookie, err := p.r.Cookie(p.cookieName)
		if err != nil || cookie.Value == "" {
			return AuthenticateResult{}
		}
		subject, err := p.sessions.ResolveSession(ctx, cookie.Value)
		if err != nil || subject == "" {
			return AuthenticateResult{}
		}
		return AuthenticateResult{
			Succeeded: true,
			Principal: NewPrincipal(Claim{Type: ClaimSubject, Value: subject}),
		}
	case SchemeServer:
		principal := ServerPrincipal(ctx)
		if principal == nil {
			return AuthenticateResult{}
		}
		return AuthenticateResult{Succeeded: true, Principal: principal}
	default:
		return AuthenticateResult{}
	}
}

func (p *HTTPProvider) SignIn(principal *Principal, scheme string) Result {
	return &SignInResult{Principal: principal, Scheme: scheme}
}

func (p *HTTPProvider) Challenge(scheme string) Result {
	return &ChallengeResult{Scheme: scheme}
}
