package handler

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-notes-api/internal/application/auth"
	"github.com/go-notes-api/internal/infrastructure/google"
	pkgtoken "github.com/go-notes-api/internal/pkg/token"
	"github.com/go-notes-api/internal/transport/http/middleware"
)

const stateCookie = "oauth_state"

// IDTokenVerifier checks an ID token issued to the client.
type IDTokenVerifier interface {
	Verify(ctx context.Context, token string) (*google.Payload, error)
}

// OAuthFlow runs the authorization-code redirect login.
type OAuthFlow interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*google.Payload, error)
}

// AuthHandler handles the /auth endpoints.
type AuthHandler struct {
	svc          auth.Service
	idTokens     IDTokenVerifier
	oauth        OAuthFlow
	frontendURL  string
	secureCookie bool
}

type AuthHandlerDeps struct {
	Service      auth.Service
	IDTokens     IDTokenVerifier // nil disables POST /auth/google/token
	OAuth        OAuthFlow       // nil disables the redirect flow
	FrontendURL  string
	SecureCookie bool
}

func NewAuthHandler(deps AuthHandlerDeps) *AuthHandler {
	return &AuthHandler{
		svc:          deps.Service,
		idTokens:     deps.IDTokens,
		oauth:        deps.OAuth,
		frontendURL:  strings.TrimRight(deps.FrontendURL, "/"),
		secureCookie: deps.SecureCookie,
	}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req auth.CredentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := h.svc.Signup(r.Context(), req.Email, req.Password); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, MessageEnvelope{
		Message: "User created successfully. Please check your email for verification code.",
	})
}

func (h *AuthHandler) VerifySignup(w http.ResponseWriter, r *http.Request) {
	var req auth.VerifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, err := h.svc.VerifySignup(r.Context(), req.Email, req.OTP)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionEnvelope{Message: "Email verified successfully", Token: sess.Token, User: sess.User})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.CredentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PendingEnvelope{
		Message:     "Password verified successfully. Please check your email for verification code.",
		RequiresOTP: true,
		Email:       p.Email,
	})
}

func (h *AuthHandler) VerifyLogin(w http.ResponseWriter, r *http.Request) {
	var req auth.VerifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, err := h.svc.VerifyLogin(r.Context(), req.Email, req.OTP)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionEnvelope{Message: "Login successful", Token: sess.Token, User: sess.User})
}

// GoogleToken signs in with an ID token obtained by the client (Google Identity Services).
func (h *AuthHandler) GoogleToken(w http.ResponseWriter, r *http.Request) {
	if h.idTokens == nil {
		writeError(w, http.StatusBadRequest, "Google OAuth not configured")
		return
	}
	var req struct {
		IDToken    string `json:"id_token"`
		Credential string `json:"credential"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	raw := req.IDToken
	if raw == "" {
		raw = req.Credential
	}
	if raw == "" {
		writeError(w, http.StatusBadRequest, "id_token is required")
		return
	}
	payload, err := h.idTokens.Verify(r.Context(), raw)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	sess, err := h.svc.LoginExternal(r.Context(), payload.Identity())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionEnvelope{Message: "Login successful", Token: sess.Token, User: sess.User})
}

// GoogleStart redirects to the Google consent page, binding the flow to a
// state value kept in an HttpOnly cookie.
func (h *AuthHandler) GoogleStart(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		writeError(w, http.StatusBadRequest, "Google OAuth not configured")
		return
	}
	state, err := pkgtoken.NewState()
	if err != nil {
		slog.Error("generate oauth state", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/api/auth/google",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.oauth.AuthCodeURL(state), http.StatusFound)
}

// GoogleCallback completes the redirect flow and hands the token to the frontend.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		h.redirectFailure(w, r, "oauth_not_configured")
		return
	}
	cookie, err := r.Cookie(stateCookie)
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/api/auth/google", MaxAge: -1, HttpOnly: true, Secure: h.secureCookie})
	q := r.URL.Query()
	if err != nil || cookie.Value == "" || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(q.Get("state"))) != 1 {
		h.redirectFailure(w, r, "auth_failed")
		return
	}
	if q.Get("error") != "" || q.Get("code") == "" {
		h.redirectFailure(w, r, "auth_failed")
		return
	}
	payload, err := h.oauth.Exchange(r.Context(), q.Get("code"))
	if err != nil {
		slog.Warn("google code exchange failed", "err", err)
		h.redirectFailure(w, r, "auth_failed")
		return
	}
	sess, err := h.svc.LoginExternal(r.Context(), payload.Identity())
	if err != nil {
		slog.Warn("google login failed", "err", err)
		h.redirectFailure(w, r, "auth_failed")
		return
	}
	http.Redirect(w, r, h.frontendURL+"/auth/success?token="+url.QueryEscape(sess.Token), http.StatusFound)
}

// Refresh exchanges a still-valid token for a new one.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token, _ := middleware.BearerToken(r)
	sess, err := h.svc.Refresh(r.Context(), token)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionEnvelope{Token: sess.Token, User: sess.User})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	token, _ := middleware.BearerToken(r)
	u, err := h.svc.WhoAmI(r.Context(), token)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UserEnvelope{User: u})
}

func (h *AuthHandler) redirectFailure(w http.ResponseWriter, r *http.Request, reason string) {
	http.Redirect(w, r, h.frontendURL+"/login?error="+url.QueryEscape(reason), http.StatusFound)
}
