package server

import (
	"net/http"
	"strings"

	"lokal/pkg/platform/httputil"
)

// Metadata is the OpenID Provider configuration document.
type Metadata struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	ScopesSupported                   []string `json:"scopes_supported"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	SubjectTypesSupported             []string `json:"subject_types_supported"`
	IDTokenSigningAlgValuesSupported  []string `json:"id_token_signing_alg_values_supported"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported"`
	ClaimsSupported                   []string `json:"claims_supported"`
}

// HandleDiscovery serves GET /.well-known/openid-configuration.
func (s *Server) HandleDiscovery(w http.ResponseWriter, _ *http.Request) {
	issuer := strings.TrimRight(s.cfg.Issuer, "/")
	httputil.WriteJSON(w, http.StatusOK, Metadata{
		Issuer:                            issuer,
		AuthorizationEndpoint:             issuer + "/connect/authorize",
		TokenEndpoint:                     issuer + "/connect/token",
		ScopesSupported:                   RegisteredScopes,
		ResponseTypesSupported:            []string{"code"},
		GrantTypesSupported:               []string{"authorization_code"},
		SubjectTypesSupported:             []string{"public"},
		IDTokenSigningAlgValuesSupported:  []string{"HS256"},
		CodeChallengeMethodsSupported:     []string{codeChallengeMethodS256},
		TokenEndpointAuthMethodsSupported: []string{"client_secret_post", "client_secret_basic", "none"},
		ClaimsSupported:                   []string{"sub", "email", "name"},
	})
}
