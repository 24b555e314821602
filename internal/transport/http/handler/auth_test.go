package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/go-notes-api/internal/application/auth"
	"github.com/go-notes-api/internal/domain"
	"github.com/go-notes-api/internal/infrastructure/google"
)

const frontend = "http://app.test"

func newAuthHandler(svc *mockAuthSvc, g *mockGoogle) *AuthHandler {
	deps := AuthHandlerDeps{Service: svc, FrontendURL: frontend + "/"}
	if g != nil {
		deps.IDTokens = g
		deps.OAuth = g
	}
	return NewAuthHandler(deps)
}

func postJSON(t *testing.T, path string, body interface{}) *http.Request {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func verifiedSession() *auth.Session {
	return &auth.Session{Token: "tok", User: &domain.PublicUser{ID: "u1", Email: "a@x.io", Verified: true}}
}

func TestSignup_Created(t *testing.T) {
	svc := new(mockAuthSvc)
	svc.On("Signup", mock.Anything, "a@x.io", "secret1").Return(&auth.Pending{Email: "a@x.io"}, nil)
	h := newAuthHandler(svc, nil)

	rec := httptest.NewRecorder()
	h.Signup(rec, postJSON(t, "/api/auth/signup", map[string]string{"email": "a@x.io", "password": "secret1"}))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["message"], "check your email")
	svc.AssertExpectations(t)
}

func TestSignup_Conflict(t *testing.T) {
	svc := new(mockAuthSvc)
	svc.On("Signup", mock.Anything, "a@x.io", "secret1").
		Return(nil, fmt.Errorf("user already exists: %w", domain.ErrConflict))
	h := newAuthHandler(svc, nil)

	rec := httptest.NewRecorder()
	h.Signup(rec, postJSON(t, "/api/auth/signup", map[string]string{"email": "a@x.io", "password": "secret1"}))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "user already exists", decodeBody(t, rec)["error"])
}

func TestSignup_MalformedBody(t *testing.T) {
	h := newAuthHandler(new(mockAuthSvc), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader("{"))

	rec := httptest.NewRecorder()
	h.Signup(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid request body", decodeBody(t, rec)["error"])
}

func TestVerifySignup_ReturnsSession(t *testing.T) {
	svc := new(mockAuthSvc)
	svc.On("VerifySignup", mock.Anything, "a@x.io", "123456").Return(verifiedSession(), nil)
	h := newAuthHandler(svc, nil)

	rec := httptest.NewRecorder()
	h.VerifySignup(rec, postJSON(t, "/api/auth/verify-otp", map[string]string{"email": "a@x.io", "otp": "123456"}))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Email verified successfully", body["message"])
	assert.Equal(t, "tok", body["token"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "u1", user["id"])
	assert.Equal(t, true, user["isVerified"])
}

func TestVerifySignup_InvalidOTP(t *testing.T) {
	svc := new(mockAuthSvc)
	svc.On("VerifySignup", mock.Anything, "a@x.io", "000000").Return(nil, domain.ErrInvalidOTP)
	h := newAuthHandler(svc, nil)

	rec := httptest.NewRecorder()
	h.VerifySignup(rec, postJSON(t, "/api/auth/verify-otp", map[string]string{"email": "a@x.io", "otp": "000000"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid or expired OTP", decodeBody(t, rec)["error"])
}

func TestLogin_RequiresOTP(t *testing.T) {
	svc := new(mockAuthSvc)
	svc.On("Login", mock.Anything, "a@x.io", "secret1").Return(&auth.Pending{Email: "a@x.io"}, nil)
	h := newAuthHandler(svc, nil)

	rec := httptest.NewRecorder()
	h.Login(rec, postJSON(t, "/api/auth/login", map[string]string{"email": "a@x.io", "password": "secret1"}))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["requiresOTP"])
	assert.Equal(t, "a@x.io", body["email"])
	assert.NotContains(t, body, "token")
}

func TestLogin_ErrorStatuses(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"bad credentials", fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized), http.StatusUnauthorized, "invalid credentials"},
		{"unverified", fmt.Errorf("please verify your email first: %w", domain.ErrUnverified), http.StatusUnauthorized, "please verify your email first"},
		{"external only", fmt.Errorf("please use Google login for this account: %w", domain.ErrExternalOnly), http.StatusUnauthorized, "please use Google login for this account"},
		{"delivery", fmt.Errorf("failed to send OTP email: %w", domain.ErrDeliveryFailed), http.StatusInternalServerError, "failed to send OTP email"},
		{"internal", domain.ErrInternal, http.StatusInternalServerError, "internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(mockAuthSvc)
			svc.On("Login", mock.Anything, "a@x.io", "secret1").Return(nil, tc.err)
			h := newAuthHandler(svc, nil)

			rec := httptest.NewRecorder()
			h.Login(rec, postJSON(t, "/api/auth/login", map[string]string{"email": "a@x.io", "password": "secret1"}))

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.msg, decodeBody(t, rec)["error"])
		})
	}
}

func TestVerifyLogin_ReturnsSession(t *testing.T) {
	svc := new(mockAuthSvc)
	svc.On("VerifyLogin", mock.Anything, "a@x.io", "654321").Return(verifiedSession(), nil)
	h := newAuthHandler(svc, nil)

	rec := httptest.NewRecorder()
	h.VerifyLogin(rec, postJSON(t, "/api/auth/verify-login-otp", map[string]string{"email": "a@x.io", "otp": "654321"}))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Login successful", body["message"])
	assert.Equal(t, "tok", body["token"])
}

func TestGoogleToken_NotConfigured(t *testing.T) {
	h := newAuthHandler(new(mockAuthSvc), nil)

	rec := httptest.NewRecorder()
	h.GoogleToken(rec, postJSON(t, "/api/auth/google/token", map[string]string{"id_token": "x"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Google OAuth not configured", decodeBody(t, rec)["error"])
}

func TestGoogleToken_LogsIn(t *testing.T) {
	svc := new(mockAuthSvc)
	g := new(mockGoogle)
	g.On("Verify", mock.Anything, "idtok").Return(&google.Payload{Sub: "g-1", Email: "a@x.io", EmailVerified: true}, nil)
	svc.On("LoginExternal", mock.Anything, domain.ExternalIdentity{Provider: google.Provider, ProviderID: "g-1", Email: "a@x.io"}).
		Return(verifiedSession(), nil)
	h := newAuthHandler(svc, g)

	rec := httptest.NewRecorder()
	h.GoogleToken(rec, postJSON(t, "/api/auth/google/token", map[string]string{"id_token": "idtok"}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tok", decodeBody(t, rec)["token"])
	svc.AssertExpectations(t)
	g.AssertExpectations(t)
}

func TestGoogleToken_RejectedToken(t *testing.T) {
	svc := new(mockAuthSvc)
	g := new(mockGoogle)
	g.On("Verify", mock.Anything, "bad").Return(nil, fmt.Errorf("invalid google token: %w", domain.ErrUnauthorized))
	h := newAuthHandler(svc, g)

	rec := httptest.NewRecorder()
	h.GoogleToken(rec, postJSON(t, "/api/auth/google/token", map[string]string{"credential": "bad"}))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	svc.AssertNotCalled(t, "LoginExternal", mock.Anything, mock.Anything)
}

func TestGoogleStart_NotConfigured(t *testing.T) {
	h := newAuthHandler(new(mockAuthSvc), nil)

	rec := httptest.NewRecorder()
	h.GoogleStart(rec, httptest.NewRequest(http.MethodGet, "/api/auth/google", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGoogleStart_SetsStateCookie(t *testing.T) {
	g := new(mockGoogle)
	g.On("AuthCodeURL", mock.AnythingOfType("string")).Return("https://accounts.example/consent")
	h := newAuthHandler(new(mockAuthSvc), g)

	rec := httptest.NewRecorder()
	h.GoogleStart(rec, httptest.NewRequest(http.MethodGet, "/api/auth/google", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://accounts.example/consent", rec.Header().Get("Location"))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, stateCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	g.AssertCalled(t, "AuthCodeURL", cookies[0].Value)
}

func callbackRequest(state, cookieState, code string) *http.Request {
	q := url.Values{"state": {state}, "code": {code}}
	req := httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?"+q.Encode(), nil)
	if cookieState != "" {
		req.AddCookie(&http.Cookie{Name: stateCookie, Value: cookieState})
	}
	return req
}

func TestGoogleCallback_StateMismatch(t *testing.T) {
	g := new(mockGoogle)
	h := newAuthHandler(new(mockAuthSvc), g)

	rec := httptest.NewRecorder()
	h.GoogleCallback(rec, callbackRequest("a", "b", "code"))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, frontend+"/login?error=auth_failed", rec.Header().Get("Location"))
	g.AssertNotCalled(t, "Exchange", mock.Anything, mock.Anything)
}

func TestGoogleCallback_MissingCookie(t *testing.T) {
	h := newAuthHandler(new(mockAuthSvc), new(mockGoogle))

	rec := httptest.NewRecorder()
	h.GoogleCallback(rec, callbackRequest("a", "", "code"))

	assert.Equal(t, frontend+"/login?error=auth_failed", rec.Header().Get("Location"))
}

func TestGoogleCallback_NotConfigured(t *testing.T) {
	h := newAuthHandler(new(mockAuthSvc), nil)

	rec := httptest.NewRecorder()
	h.GoogleCallback(rec, callbackRequest("a", "a", "code"))

	assert.Equal(t, frontend+"/login?error=oauth_not_configured", rec.Header().Get("Location"))
}

func TestGoogleCallback_ExchangeFails(t *testing.T) {
	g := new(mockGoogle)
	g.On("Exchange", mock.Anything, "code").Return(nil, fmt.Errorf("google code exchange: %w", domain.ErrUnauthorized))
	h := newAuthHandler(new(mockAuthSvc), g)

	rec := httptest.NewRecorder()
	h.GoogleCallback(rec, callbackRequest("s", "s", "code"))

	assert.Equal(t, frontend+"/login?error=auth_failed", rec.Header().Get("Location"))
}

func TestGoogleCallback_RedirectsWithToken(t *testing.T) {
	svc := new(mockAuthSvc)
	g := new(mockGoogle)
	g.On("Exchange", mock.Anything, "code").Return(&google.Payload{Sub: "g-1", Email: "a@x.io", EmailVerified: true}, nil)
	svc.On("LoginExternal", mock.Anything, mock.AnythingOfType("domain.ExternalIdentity")).Return(verifiedSession(), nil)
	h := newAuthHandler(svc, g)

	rec := httptest.NewRecorder()
	h.GoogleCallback(rec, callbackRequest("s", "s", "code"))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, frontend+"/auth/success?token=tok", rec.Header().Get("Location"))
}

func TestMe_ReturnsUser(t *testing.T) {
	svc := new(mockAuthSvc)
	svc.On("WhoAmI", mock.Anything, "tok").Return(&domain.PublicUser{ID: "u1", Email: "a@x.io", Verified: true}, nil)
	h := newAuthHandler(svc, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer tok")

	rec := httptest.NewRecorder()
	h.Me(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	user := decodeBody(t, rec)["user"].(map[string]interface{})
	assert.Equal(t, "a@x.io", user["email"])
}

func TestRefresh_InvalidToken(t *testing.T) {
	svc := new(mockAuthSvc)
	svc.On("Refresh", mock.Anything, "").Return(nil, fmt.Errorf("token expired: %w", domain.ErrInvalidToken))
	h := newAuthHandler(svc, nil)

	rec := httptest.NewRecorder()
	h.Refresh(rec, httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "token expired", decodeBody(t, rec)["error"])
}
