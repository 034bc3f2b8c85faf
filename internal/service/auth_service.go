package service

import (
	"log/slog"
	"net/http"

	"github.com/mmynk/synapso/internal/auth"
	"github.com/mmynk/synapso/internal/httpx"
	"github.com/mmynk/synapso/internal/metrics"
	"github.com/mmynk/synapso/internal/middleware"
	"github.com/mmynk/synapso/internal/models"
)

// AuthService handles login, logout and the current session.
type AuthService struct {
	authenticator auth.Authenticator
	signer        *auth.CookieSigner
	throttle      *middleware.LoginThrottle
}

// NewAuthService creates a new authentication service. A nil throttle disables login throttling.
func NewAuthService(authenticator auth.Authenticator, signer *auth.CookieSigner, throttle *middleware.LoginThrottle) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		signer:        signer,
		throttle:      throttle,
	}
}

type loginRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=200"`
}

// SessionResponse describes the session of the caller.
type SessionResponse struct {
	User          *models.User `json:"user"`
	EffectiveUser *models.User `json:"effectiveUser"`
	Impersonating bool         `json:"impersonating"`
}

// Login checks the credentials and sets the session cookie.
func (s *AuthService) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		respondError(w, "Login", "user", err)
		return
	}

	ip := clientIP(r)
	slog.Info("Login request", "name", req.Name, "ip", ip)

	if s.throttle != nil && !s.throttle.Allow(ip, req.Name) {
		metrics.LoginAttempts.WithLabelValues("throttled").Inc()
		metrics.RateLimited.WithLabelValues("login").Inc()
		slog.Warn("Login throttled", "name", req.Name, "ip", ip)
		httpx.WriteError(w, http.StatusTooManyRequests, "too many login attempts, try again later")
		return
	}

	user, err := s.authenticator.Authenticate(r.Context(), req.Name, req.Password)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("invalid").Inc()
		respondError(w, "Login", "user", err)
		return
	}

	if err := s.signer.SetSessionCookie(w, user.ID); err != nil {
		respondError(w, "Login", "user", err)
		return
	}
	// A new session never inherits an impersonation
	s.signer.ClearImpersonationCookie(w)
	if s.throttle != nil {
		s.throttle.Reset(ip, req.Name)
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	slog.Info("User logged in successfully", "user_id", user.ID)
	httpx.WriteJSON(w, http.StatusOK, user)
}

// Logout clears the session and impersonation cookies.
func (s *AuthService) Logout(w http.ResponseWriter, r *http.Request) {
	s.signer.ClearSessionCookie(w)
	s.signer.ClearImpersonationCookie(w)
	if user := middleware.GetUser(r.Context()); user != nil {
		slog.Info("User logged out", "user_id", user.ID)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated and effective users.
func (s *AuthService) Me(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, sessionResponse(r))
}

func sessionResponse(r *http.Request) SessionResponse {
	ctx := r.Context()
	return SessionResponse{
		User:          middleware.GetUser(ctx),
		EffectiveUser: middleware.GetEffectiveUser(ctx),
		Impersonating: middleware.IsImpersonating(ctx),
	}
}
