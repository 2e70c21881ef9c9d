package jwttoken

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "lokal/pkg/domain-errors"
)

// accessTokenType marks access tokens so an id token can never be replayed
// as a bearer token.
const accessTokenType = "at+jwt"

// AccessTokenClaims represents the JWT claims for our access tokens.
type AccessTokenClaims struct {
	ClientID string `json:"client_id"`
	Scope    string `json:"scope,omitempty"`
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Scopes splits the space-delimited scope claim.
func (c *AccessTokenClaims) Scopes() []string {
	return strings.Fields(c.Scope)
}

// IDTokenClaims represents the identity token handed to the client.
type IDTokenClaims struct {
	Nonce string `json:"nonce,omitempty"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// AccessTokenRequest carries what goes into an access token.
type AccessTokenRequest struct {
	Subject  string
	ClientID string
	Scopes   []string
	// Claims holds the additional claims routed to the access token, keyed by type.
	Claims    map[string]string
	ExpiresIn time.Duration
}

// IDTokenRequest carries what goes into an identity token.
type IDTokenRequest struct {
	Subject   string
	ClientID  string
	Nonce     string
	Claims    map[string]string
	ExpiresIn time.Duration
}

// JWTService handles JWT creation and validation
type JWTService struct {
	signingKey       []byte
	issuer           string
	audience         string
	validateIssuer   bool
	validateAudience bool
	now              func() time.Time
}

// Option configures a JWTService.
type Option func(*JWTService)

// WithIssuerValidation toggles the iss check on bearer tokens.
func WithIssuerValidation(enabled bool) Option {
	return func(s *JWTService) { s.validateIssuer = enabled }
}

// WithAudienceValidation toggles the aud check on bearer tokens.
func WithAudienceValidation(enabled bool) Option {
	return func(s *JWTService) { s.validateAudience = enabled }
}

// WithClock overrides time.Now for tests.
func WithClock(now func() time.Time) Option {
	return func(s *JWTService) { s.now = now }
}

func NewJWTService(signingKey string, issuer string, audience string, opts ...Option) *JWTService {
	s := &JWTService{
		signingKey:       []byte(signingKey),
		issuer:           issuer,
		audience:         audience,
		validateIssuer:   true,
		validateAudience: true,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *JWTService) GenerateAccessToken(req AccessTokenRequest) (string, error) {
	now := s.now()
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessTokenClaims{
		ClientID: req.ClientID,
		Scope:    strings.Join(req.Scopes, " "),
		Email:    req.Claims["email"],
		Name:     req.Claims["name"],
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   req.Subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(req.ExpiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})
	newToken.Header["typ"] = accessTokenType

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

// GenerateIDToken mints the identity token. Its audience is the client.
func (s *JWTService) GenerateIDToken(req IDTokenRequest) (string, error) {
	now := s.now()
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, IDTokenClaims{
		Nonce: req.Nonce,
		Email: req.Claims["email"],
		Name:  req.Claims["name"],
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   req.Subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(req.ExpiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{req.ClientID},
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

// ValidateToken verifies an access token. Signature and expiry are always
// checked; issuer and audience when enabled.
func (s *JWTService) ValidateToken(tokenString string) (*AccessTokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.validateIssuer {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	if s.validateAudience {
		opts = append(opts, jwt.WithAudience(s.audience))
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &AccessTokenClaims{}, func(token *jwt.Token) (any, error) {
		if typ, _ := token.Header["typ"].(string); typ != accessTokenType {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*AccessTokenClaims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}
