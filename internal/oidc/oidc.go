// Package oidc is the seam between the authorization handler and the OpenID
// Connect protocol layer. The handler only sees a Provider; the protocol
// layer in oidc/server parses requests, mints codes and tokens, and turns the
// handler's Result into an HTTP response.
package oidc

import (
	"context"
	"net/http"
	"slices"
)

// Authentication schemes understood by Provider.Authenticate.
const (
	// SchemeSession authenticates the browser through the login cookie.
	SchemeSession = "session"
	// SchemeServer recovers the principal attached to a redeemed authorization code.
	SchemeServer = "oidc-server"
)

// Claim destinations.
const (
	DestinationAccessToken   = "access_token"
	DestinationIdentityToken = "id_token"
)

// Claim types issued by the authorization handler.
const (
	ClaimSubject = "sub"
	ClaimEmail   = "email"
	ClaimName    = "name"
)

// Grant and response types.
const (
	GrantTypeAuthorizationCode = "authorization_code"
	ResponseTypeCode           = "code"
)

// Endpoint identifies which protocol endpoint parsed a Request.
type Endpoint string

const (
	EndpointAuthorize Endpoint = "authorize"
	EndpointToken     Endpoint = "token"
)

// Request is the validated protocol request for the current exchange.
type Request struct {
	Endpoint     Endpoint
	ClientID     string
	RedirectURI  string
	ResponseType string
	Scopes       []string
	State        string
	Nonce        string

	CodeChallenge       string
	CodeChallengeMethod string

	GrantType    string
	Code         string
	CodeVerifier string

	// ReturnURL is where the login page sends the browser back to.
	ReturnURL string
}

// IsAuthorizationCodeGrant reports whether a token request redeems a code.
func (r *Request) IsAuthorizationCodeGrant() bool {
	return r.GrantType == GrantTypeAuthorizationCode
}

// HasScope reports whether scope was requested or granted.
func (r *Request) HasScope(scope string) bool {
	return slices.Contains(r.Scopes, scope)
}

// Claim is one statement about the subject and the tokens it is copied into.
type Claim struct {
	Type         string   `json:"type"`
	Value        string   `json:"value"`
	Destinations []string `json:"destinations,omitempty"`
}

// HasDestination reports whether the claim is copied into the given token.
func (c Claim) HasDestination(destination string) bool {
	return slices.Contains(c.Destinations, destination)
}

// Principal is an authenticated identity: its claims and granted scopes.
type Principal struct {
	Claims []Claim  `json:"claims"`
	Scopes []string `json:"scopes,omitempty"`
}

// NewPrincipal builds a principal from claims.
func NewPrincipal(claims ...Claim) *Principal {
	return &Principal{Claims: claims}
}

// FindFirst returns the value of the first claim of the given type.
func (p *Principal) FindFirst(claimType string) (string, bool) {
	if p == nil {
		return "", false
	}
	for _, c := range p.Claims {
		if c.Type == claimType {
			return c.Value, true
		}
	}
	return "", false
}

// Subject returns the sub claim.
func (p *Principal) Subject() string {
	sub, _ := p.FindFirst(ClaimSubject)
	return sub
}

// SetDestinations tags every claim using pick.
func (p *Principal) SetDestinations(pick func(Claim) []string) {
	for i := range p.Claims {
		p.Claims[i].Destinations = pick(p.Claims[i])
	}
}

// ClaimsFor returns the claims copied into the given token, keyed by type.
func (p *Principal) ClaimsFor(destination string) map[string]string {
	out := make(map[string]string)
	if p == nil {
		return out
	}
	for _, c := range p.Claims {
		if c.HasDestination(destination) {
			out[c.Type] = c.Value
		}
	}
	return out
}

// AuthenticateResult is the outcome of Provider.Authenticate. Failure is a
// normal outcome and carries no error.
type AuthenticateResult struct {
	Succeeded bool
	Principal *Principal
}

// Result is a protocol decision the protocol layer turns into a response.
// The concrete types are SignInResult, ChallengeResult and ErrorResult.
type Result interface {
	isResult()
}

// SignInResult asks the protocol layer to issue an authorization code at the
// authorize endpoint or tokens at the token endpoint.
type SignInResult struct {
	Principal *Principal
	Scheme    string
}

// ChallengeResult asks the protocol layer to send the browser to log in.
type ChallengeResult struct {
	Scheme string
}

// ErrorResult is a structured OAuth error response.
type ErrorResult struct {
	Status      int
	Error       string
	Description string
}

func (*SignInResult) isResult()    {}
func (*ChallengeResult) isResult() {}
func (*ErrorResult) isResult()     {}

// UnsupportedGrantType is the error returned for any grant other than
// authorization_code.
func UnsupportedGrantType() *ErrorResult {
	return &ErrorResult{
		Status:      http.StatusBadRequest,
		Error:       "unsupported_grant_type",
		Description: "The specified grant type is not supported.",
	}
}

// Provider wraps the ambient authentication context of one exchange.
type Provider interface {
	// ServerRequest returns the protocol request, or a CodeProtocol error when
	// the exchange is not an OpenID Connect request.
	ServerRequest(ctx context.Context) (*Request, error)
	// Authenticate never fails with an error; an unauthenticated exchange
	// yields Succeeded=false.
	Authenticate(ctx context.Context, scheme string) AuthenticateResult
	SignIn(principal *Principal, scheme string) Result
	Challenge(scheme string) Result
}

type (
	requestKey   struct{}
	principalKey struct{}
)

// WithRequest attaches the parsed protocol request.
func WithRequest(ctx context.Context, req *Request) context.Context {
	return context.WithValue(ctx, requestKey{}, req)
}

// RequestFrom returns the protocol request, or nil.
func RequestFrom(ctx context.Context) *Request {
	req, _ := ctx.Value(requestKey{}).(*Request)
	return req
}

// WithServerPrincipal attaches the principal recovered from a redeemed code.
func WithServerPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// ServerPrincipal returns the principal recovered from a redeemed code, or nil.
func ServerPrincipal(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}
