package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmynk/synapso/internal/auth"
	"github.com/mmynk/synapso/internal/httpx"
	"github.com/mmynk/synapso/internal/metrics"
	"github.com/mmynk/synapso/internal/middleware"
	"github.com/mmynk/synapso/internal/models"
	"github.com/mmynk/synapso/internal/storage"
)

// UserService handles the settings of the caller and the admin user management.
type UserService struct {
	store         storage.UserStore
	authenticator auth.Authenticator
	signer        *auth.CookieSigner
}

// NewUserService creates a new UserService.
func NewUserService(store storage.UserStore, authenticator auth.Authenticator, signer *auth.CookieSigner) *UserService {
	return &UserService{
		store:         store,
		authenticator: authenticator,
		signer:        signer,
	}
}

type updateSettingsRequest struct {
	ResetFrequency *models.ResetFrequency `json:"resetFrequency" validate:"omitempty,oneof=DAILY WEEKLY"`
	DominantHand   *models.DominantHand   `json:"dominantHand" validate:"omitempty,oneof=RIGHT LEFT"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

type createUserRequest struct {
	Name     string      `json:"name" validate:"required,max=100"`
	Password string      `json:"password" validate:"required"`
	Role     models.Role `json:"role" validate:"omitempty,oneof=USER ADMIN"`
}

type setPasswordRequest struct {
	Password string `json:"password" validate:"required"`
}

type impersonateRequest struct {
	UserID string `json:"userId" validate:"required"`
}

// UpdateSettings changes the reset frequency and dominant hand of the
// effective user, so an admin can adjust the settings of the patient they
// impersonate.
func (s *UserService) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		respondError(w, "UpdateSettings", "user", err)
		return
	}

	// Copy so the user in the request context is left untouched
	user := *effectiveUser(r)
	if req.ResetFrequency != nil {
		user.ResetFrequency = *req.ResetFrequency
	}
	if req.DominantHand != nil {
		user.DominantHand = *req.DominantHand
	}

	if err := s.store.UpdateUserSettings(r.Context(), &user); err != nil {
		respondError(w, "UpdateSettings", "user", err)
		return
	}

	slog.Info("Settings updated",
		"user_id", user.ID,
		"reset_frequency", user.ResetFrequency,
		"dominant_hand", user.DominantHand,
	)
	httpx.WriteJSON(w, http.StatusOK, &user)
}

// ChangePassword changes the password of the authenticated user, never the
// impersonated one.
func (s *UserService) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		respondError(w, "ChangePassword", "user", err)
		return
	}

	user := middleware.GetUser(r.Context())
	if err := s.authenticator.ChangePassword(r.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(w, "ChangePassword", "user", err)
		return
	}

	slog.Info("Password changed", "user_id", user.ID)
	w.WriteHeader(http.StatusNoContent)
}

// ListUsers returns every user.
func (s *UserService) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		respondError(w, "ListUsers", "user", err)
		return
	}
	if users == nil {
		users = []*models.User{}
	}
	httpx.WriteJSON(w, http.StatusOK, users)
}

// CreateUser registers a new user. Duplicate names are a 400.
func (s *UserService) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		respondError(w, "CreateUser", "user", err)
		return
	}

	user, err := s.authenticator.Register(r.Context(), req.Name, req.Password, req.Role)
	if err != nil {
		respondError(w, "CreateUser", "user", err)
		return
	}

	slog.Info("User created",
		"user_id", user.ID,
		"role", user.Role,
		"by", middleware.GetUser(r.Context()).ID,
	)
	httpx.WriteJSON(w, http.StatusCreated, user)
}

// DeleteUser removes a user and everything it owns. Admins cannot delete themselves.
func (s *UserService) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	admin := middleware.GetUser(r.Context())
	if id == admin.ID {
		respondError(w, "DeleteUser", "user", httpx.BadRequest("you cannot delete your own account"))
		return
	}

	if err := s.store.DeleteUser(r.Context(), id); err != nil {
		respondError(w, "DeleteUser", "user", err)
		return
	}

	slog.Info("User deleted", "user_id", id, "by", admin.ID)
	w.WriteHeader(http.StatusNoContent)
}

// SetPassword resets the password of any user.
func (s *UserService) SetPassword(w http.ResponseWriter, r *http.Request) {
	var req setPasswordRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		respondError(w, "SetPassword", "user", err)
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.authenticator.SetPassword(r.Context(), id, req.Password); err != nil {
		respondError(w, "SetPassword", "user", err)
		return
	}

	slog.Info("Password reset", "user_id", id, "by", middleware.GetUser(r.Context()).ID)
	w.WriteHeader(http.StatusNoContent)
}

// StartImpersonation makes the admin act as another user until stopped.
func (s *UserService) StartImpersonation(w http.ResponseWriter, r *http.Request) {
	var req impersonateRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		respondError(w, "StartImpersonation", "user", err)
		return
	}

	admin := middleware.GetUser(r.Context())
	if req.UserID == admin.ID {
		respondError(w, "StartImpersonation", "user", httpx.BadRequest("you cannot impersonate yourself"))
		return
	}

	target, err := s.store.GetUserByID(r.Context(), req.UserID)
	if err != nil {
		respondError(w, "StartImpersonation", "user", err)
		return
	}

	if err := s.signer.SetImpersonationCookie(w, admin.ID, target.ID); err != nil {
		respondError(w, "StartImpersonation", "user", err)
		return
	}

	metrics.ImpersonationsStarted.Inc()
	slog.Info("Impersonation started", "admin_id", admin.ID, "target_id", target.ID)
	httpx.WriteJSON(w, http.StatusOK, SessionResponse{
		User:          admin,
		EffectiveUser: target,
		Impersonating: true,
	})
}

// StopImpersonation clears the impersonation cookie.
func (s *UserService) StopImpersonation(w http.ResponseWriter, r *http.Request) {
	s.signer.ClearImpersonationCookie(w)
	if middleware.IsImpersonating(r.Context()) {
		slog.Info("Impersonation stopped",
			"admin_id", middleware.GetUser(r.Context()).ID,
			"target_id", middleware.GetUserID(r.Context()),
		)
	}
	w.WriteHeader(http.StatusNoContent)
}

// EnsureAdmin creates an admin named name unless a user of that name exists.
// Returns whether it was created.
func EnsureAdmin(ctx context.Context, store storage.UserStore, authenticator auth.Authenticator, name, password string) (bool, error) {
	existing, err := store.GetUserByName(ctx, name)
	if err == nil {
		if !existing.IsAdmin() {
			slog.Warn("Bootstrap admin name belongs to a non-admin user", "user_id", existing.ID)
		}
		return false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return false, err
	}

	user, err := authenticator.Register(ctx, name, password, models.RoleAdmin)
	if errors.Is(err, auth.ErrNameExists) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	slog.Info("Bootstrap admin created", "user_id", user.ID)
	return true, nil
}
