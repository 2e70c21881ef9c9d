package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	authhandler "lokal/internal/auth/handler"
	authservice "lokal/internal/auth/service"
	sessionstore "lokal/internal/auth/store/session"
	userstore "lokal/internal/auth/store/user"
	jwttoken "lokal/internal/jwt_token"
	"lokal/internal/oidc/server"
	authorizationcode "lokal/internal/oidc/store/authorization-code"
	clientstore "lokal/internal/oidc/store/client"
	"lokal/internal/platform/config"
	"lokal/internal/platform/metrics"
	"lokal/internal/seed"
	translationhandler "lokal/internal/translation/handler"
	translationservice "lokal/internal/translation/service"
	translationstore "lokal/internal/translation/store"
)

const (
	testClientID     = "ui-client"
	testClientSecret = "secret-123"
	testRedirectURI  = "http://localhost:8000/login/callback"
	testOrigin       = "http://localhost:8000"
)

// RouterSuite drives the assembled router the way the UI does: log in,
// authorize, redeem the code, then call the translation API.
type RouterSuite struct {
	suite.Suite
	router http.Handler
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()

	clients := clientstore.NewInMemory()
	accounts := authservice.New(userstore.New(), sessionstore.New(), authservice.WithLogger(logger))
	resources := translationstore.NewInMemory()

	s.Require().NoError(seed.New(config.SeedConfig{
		Enabled:           true,
		ClientID:          testClientID,
		ClientSecret:      testClientSecret,
		ClientRedirectURI: []string{testRedirectURI},
		AdminEmail:        "admin@test.com",
		AdminPassword:     "Password123!",
	}, clients, accounts, resources, logger).Run(ctx))

	tokens := jwttoken.NewJWTService("test-key", "http://localhost:8080", "lokal-api")
	protocol := server.New(server.Config{
		Issuer:   "http://localhost:8080",
		LoginURL: "http://localhost:8000/login",
	}, clients, authorizationcode.New(), tokens, logger)

	s.router = NewRouter(Dependencies{
		Auth: authhandler.New(accounts, protocol, authhandler.CookieConfig{
			Name:     "lokal_session",
			Secure:   true,
			SameSite: http.SameSiteNoneMode,
		}, logger),
		Translations: translationhandler.New(translationservice.New(resources, translationservice.WithLogger(logger)), logger),
		Discovery:    protocol.HandleDiscovery,
		Validator:    jwttoken.NewJWTServiceAdapter(tokens),
		Gatherer:     reg,
		Metrics:      metrics.New(reg),
		Logger:       logger,
		CORSOrigins:  []string{testOrigin},
	})
}

func (s *RouterSuite) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *RouterSuite) api(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.do(req)
}

func (s *RouterSuite) accessToken() string {
	login := s.api(http.MethodPost, "/api/account/login", "", map[string]string{
		"username": "admin@test.com",
		"password": "Password123!",
	})
	s.Require().Equal(http.StatusOK, login.Code, login.Body.String())
	cookies := login.Result().Cookies()
	s.Require().Len(cookies, 1)

	params := url.Values{
		"client_id":     {testClientID},
		"redirect_uri":  {testRedirectURI},
		"response_type": {"code"},
		"scope":         {"openid email profile api"},
		"state":         {"xyz"},
	}
	authReq := httptest.NewRequest(http.MethodGet, "/connect/authorize?"+params.Encode(), nil)
	authReq.AddCookie(cookies[0])
	authz := s.do(authReq)
	s.Require().Equal(http.StatusFound, authz.Code, authz.Body.String())
	callback, err := url.Parse(authz.Header().Get("Location"))
	s.Require().NoError(err)
	s.Require().Equal("xyz", callback.Query().Get("state"))
	code := callback.Query().Get("code")
	s.Require().NotEmpty(code)

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {testRedirectURI},
		"client_id":     {testClientID},
		"client_secret": {testClientSecret},
	}
	tokenReq := httptest.NewRequest(http.MethodPost, "/connect/token", strings.NewReader(form.Encode()))
	tokenReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	tokenResp := s.do(tokenReq)
	s.Require().Equal(http.StatusOK, tokenResp.Code, tokenResp.Body.String())

	var tr server.TokenResponse
	s.Require().NoError(json.NewDecoder(tokenResp.Body).Decode(&tr))
	s.Require().NotEmpty(tr.AccessToken)
	s.NotEmpty(tr.IDToken)
	return tr.AccessToken
}

func (s *RouterSuite) TestTranslationsRequireBearerToken() {
	rr := s.api(http.MethodGet, "/api/translations", "", nil)
	s.Equal(http.StatusUnauthorized, rr.Code)

	rr = s.api(http.MethodGet, "/api/translations", "not-a-jwt", nil)
	s.Equal(http.StatusUnauthorized, rr.Code)
}

func (s *RouterSuite) TestSeededWelcomeMessage() {
	token := s.accessToken()

	rr := s.api(http.MethodGet, "/api/translations/"+seed.WelcomeSid, token, nil)
	s.Require().Equal(http.StatusOK, rr.Code)

	var dto translationhandler.TextResourceDTO
	s.Require().NoError(json.NewDecoder(rr.Body).Decode(&dto))
	s.ElementsMatch([]translationhandler.TranslationDTO{
		{LangID: "en-US", Text: "Welcome"},
		{LangID: "de-DE", Text: "Willkommen"},
	}, dto.Translations)
}

func (s *RouterSuite) TestTranslationLifecycle() {
	token := s.accessToken()

	created := s.api(http.MethodPost, "/api/translations", token, map[string]string{
		"sid":         "GREETING_MSG",
		"defaultText": "Hello",
	})
	s.Require().Equal(http.StatusCreated, created.Code, created.Body.String())
	s.Equal("/api/translations/GREETING_MSG", created.Header().Get("Location"))

	dup := s.api(http.MethodPost, "/api/translations", token, map[string]string{
		"sid":         "GREETING_MSG",
		"defaultText": "Hi",
	})
	s.Equal(http.StatusConflict, dup.Code)

	updated := s.api(http.MethodPut, "/api/translations/GREETING_MSG/fr", token, map[string]string{"text": "Bonjour"})
	s.Require().Equal(http.StatusNoContent, updated.Code, updated.Body.String())

	got := s.api(http.MethodGet, "/api/translations/GREETING_MSG", token, nil)
	s.Require().Equal(http.StatusOK, got.Code)
	var dto translationhandler.TextResourceDTO
	s.Require().NoError(json.NewDecoder(got.Body).Decode(&dto))
	s.Equal("GREETING_MSG", dto.Sid)
	s.ElementsMatch([]translationhandler.TranslationDTO{
		{LangID: "default", Text: "Hello"},
		{LangID: "fr", Text: "Bonjour"},
	}, dto.Translations)

	sids := s.api(http.MethodGet, "/api/translations/sids", token, nil)
	s.Require().Equal(http.StatusOK, sids.Code)
	s.JSONEq(`["GREETING_MSG","WELCOME_MSG"]`, sids.Body.String())

	deleted := s.api(http.MethodDelete, "/api/translations/GREETING_MSG", token, nil)
	s.Equal(http.StatusNoContent, deleted.Code)

	gone := s.api(http.MethodGet, "/api/translations/GREETING_MSG", token, nil)
	s.Equal(http.StatusNotFound, gone.Code)
}

func (s *RouterSuite) TestDiscoveryAndMetricsArePublic() {
	rr := s.api(http.MethodGet, "/.well-known/openid-configuration", "", nil)
	s.Require().Equal(http.StatusOK, rr.Code)
	var meta server.Metadata
	s.Require().NoError(json.NewDecoder(rr.Body).Decode(&meta))
	s.Equal("http://localhost:8080/connect/token", meta.TokenEndpoint)

	rr = s.api(http.MethodGet, "/metrics", "", nil)
	s.Require().Equal(http.StatusOK, rr.Code)
	s.Contains(rr.Body.String(), "lokal_http_request_duration_seconds")
}

func (s *RouterSuite) TestCORSPreflightAllowsCredentials() {
	req := httptest.NewRequest(http.MethodOptions, "/api/translations", nil)
	req.Header.Set("Origin", testOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	rr := s.do(req)

	s.Equal(testOrigin, rr.Header().Get("Access-Control-Allow-Origin"))
	s.Equal("true", rr.Header().Get("Access-Control-Allow-Credentials"))
}

func (s *RouterSuite) TestResponsesCarryRequestID() {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rr := s.do(req)
	s.Equal(http.StatusOK, rr.Code)
	s.Equal("req-42", rr.Header().Get("X-Request-ID"))
}
