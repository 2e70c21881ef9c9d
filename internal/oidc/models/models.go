package models

import (
	"fmt"
	"slices"
	"time"

	"lokal/internal/oidc"
	"lokal/pkg/platform/sentinel"
)

// Client is a registered relying party.
type Client struct {
	ClientID string
	// SecretHash is a bcrypt hash; empty for public clients.
	SecretHash    string
	DisplayName   string
	RedirectURIs  []string
	AllowedScopes []string
}

// IsPublic reports whether the client authenticates without a secret.
func (c *Client) IsPublic() bool {
	return c.SecretHash == ""
}

// AllowsRedirect reports whether uri exactly matches a registered redirect URI.
func (c *Client) AllowsRedirect(uri string) bool {
	return slices.Contains(c.RedirectURIs, uri)
}

// AllowsScope reports whether the client may request scope.
func (c *Client) AllowsScope(scope string) bool {
	return slices.Contains(c.AllowedScopes, scope)
}

// AuthorizationCode is a single-use grant bound to a client, redirect URI and
// principal.
type AuthorizationCode struct {
	Code                string          `json:"code"`
	ClientID            string          `json:"client_id"`
	RedirectURI         string          `json:"redirect_uri"`
	Principal           *oidc.Principal `json:"principal"`
	Nonce               string          `json:"nonce,omitempty"`
	CodeChallenge       string          `json:"code_challenge,omitempty"`
	CodeChallengeMethod string          `json:"code_challenge_method,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	ExpiresAt           time.Time       `json:"expires_at"`
	Used                bool            `json:"used"`
}

// IsExpired reports whether the code is past its lifetime at now.
func (c *AuthorizationCode) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Consume marks the code used. It fails with ErrAlreadyUsed or ErrExpired.
func (c *AuthorizationCode) Consume(now time.Time) error {
	if c.Used {
		return fmt.Errorf("authorization code already used: %w", sentinel.ErrAlreadyUsed)
	}
	if c.IsExpired(now) {
		return fmt.Errorf("authorization code expired: %w", sentinel.ErrExpired)
	}
	c.Used = true
	return nil
}
