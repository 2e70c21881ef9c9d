package jwttoken

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "lokal/pkg/domain-errors"
)

var jwtService = NewJWTService(
	"test-signing-key",
	"test-issuer",
	"test-audience",
)
var subject = "3f0c7a52-4c53-4a43-9a8b-0d1f0a5f1d11"
var clientID = "test-client"
var expiresIn = time.Hour

func accessRequest(expiresIn time.Duration) AccessTokenRequest {
	return AccessTokenRequest{
		Subject:   subject,
		ClientID:  clientID,
		Scopes:    []string{"openid", "api"},
		Claims:    map[string]string{"email": "test@test.com", "name": "admin"},
		ExpiresIn: expiresIn,
	}
}

func Test_GenerateAccessToken(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(accessRequest(expiresIn))
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, subject, claims.Subject)
	assert.Equal(t, clientID, claims.ClientID)
	assert.Equal(t, []string{"openid", "api"}, claims.Scopes())
	assert.Equal(t, "test@test.com", claims.Email)
	assert.Equal(t, "admin", claims.Name)
	assert.WithinDuration(t, time.Now().Add(expiresIn), claims.ExpiresAt.Time, time.Minute)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(accessRequest(-time.Hour))
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "token has expired"))
}

func Test_ValidateToken_WrongSigningKey(t *testing.T) {
	other := NewJWTService("another-key", "test-issuer", "test-audience")
	token, err := other.GenerateAccessToken(accessRequest(expiresIn))
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
}

func Test_ValidateToken_RejectsNoneAlgorithm(t *testing.T) {
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    "test-issuer",
			Audience:  []string{"test-audience"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	unsigned.Header["typ"] = accessTokenType
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.Error(t, err)
}

func Test_ValidateToken_IssuerAndAudience(t *testing.T) {
	foreign := NewJWTService("test-signing-key", "other-issuer", "other-audience")
	token, err := foreign.GenerateAccessToken(accessRequest(expiresIn))
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.Error(t, err)

	lenient := NewJWTService("test-signing-key", "test-issuer", "test-audience",
		WithIssuerValidation(false), WithAudienceValidation(false))
	claims, err := lenient.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, subject, claims.Subject)
}

func Test_ValidateToken_RejectsIDToken(t *testing.T) {
	idToken, err := jwtService.GenerateIDToken(IDTokenRequest{
		Subject:   subject,
		ClientID:  "test-audience",
		ExpiresIn: expiresIn,
	})
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(idToken)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
}

func Test_GenerateIDToken(t *testing.T) {
	token, err := jwtService.GenerateIDToken(IDTokenRequest{
		Subject:   subject,
		ClientID:  clientID,
		Nonce:     "n-0S6_WzA2Mj",
		Claims:    map[string]string{"email": "test@test.com"},
		ExpiresIn: expiresIn,
	})
	require.NoError(t, err)

	claims := &IDTokenClaims{}
	_, err = jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte("test-signing-key"), nil
	}, jwt.WithAudience(clientID))
	require.NoError(t, err)
	assert.Equal(t, "n-0S6_WzA2Mj", claims.Nonce)
	assert.Equal(t, "test@test.com", claims.Email)
	assert.Empty(t, claims.Name)
}

func Test_Adapter(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(accessRequest(expiresIn))
	require.NoError(t, err)

	claims, err := NewJWTServiceAdapter(jwtService).ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, subject, claims.Subject)
	assert.Equal(t, clientID, claims.ClientID)
	assert.Equal(t, []string{"openid", "api"}, claims.Scopes)
}
