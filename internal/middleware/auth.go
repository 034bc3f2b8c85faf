package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mmynk/synapso/internal/auth"
	"github.com/mmynk/synapso/internal/httpx"
	"github.com/mmynk/synapso/internal/models"
	"github.com/mmynk/synapso/internal/storage"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// UserKey is the context key for the authenticated user.
	UserKey contextKey = "user"
	// EffectiveUserKey is the context key for the user whose data is served.
	EffectiveUserKey contextKey = "effective_user"
)

// UserLookup loads users by ID.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// GetUser returns the authenticated user, or nil.
func GetUser(ctx context.Context) *models.User {
	user, _ := ctx.Value(UserKey).(*models.User)
	return user
}

// GetEffectiveUser returns the impersonated user when an admin impersonates
// someone, the authenticated user otherwise. Nil when unauthenticated.
func GetEffectiveUser(ctx context.Context) *models.User {
	user, _ := ctx.Value(EffectiveUserKey).(*models.User)
	return user
}

// GetUserID returns the ID of the effective user.
// Returns empty string if not authenticated.
func GetUserID(ctx context.Context) string {
	if user := GetEffectiveUser(ctx); user != nil {
		return user.ID
	}
	return ""
}

// IsImpersonating reports whether the effective user differs from the authenticated one.
func IsImpersonating(ctx context.Context) bool {
	user, effective := GetUser(ctx), GetEffectiveUser(ctx)
	return user != nil && effective != nil && user.ID != effective.ID
}

// WithUsers returns a context carrying the authenticated and effective users.
func WithUsers(ctx context.Context, user, effective *models.User) context.Context {
	ctx = context.WithValue(ctx, UserKey, user)
	return context.WithValue(ctx, EffectiveUserKey, effective)
}

// Session resolves the users of a request from its cookies. It never rejects
// a request by itself: unauthenticated requests continue without users in the
// context and RequireAuth decides. Invalid cookies are cleared.
func Session(users UserLookup, signer *auth.CookieSigner) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			userID, err := signer.SessionFromRequest(r)
			if err != nil {
				if !errors.Is(err, auth.ErrMissingToken) {
					slog.Debug("Invalid session cookie", "error", err)
					signer.ClearSessionCookie(w)
				}
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.GetUserByID(ctx, userID)
			if errors.Is(err, storage.ErrNotFound) {
				// Deleted since the cookie was issued
				signer.ClearSessionCookie(w)
				signer.ClearImpersonationCookie(w)
				next.ServeHTTP(w, r)
				return
			}
			if err != nil {
				slog.Error("Failed to load session user", "user_id", userID, "error", err)
				httpx.WriteError(w, http.StatusInternalServerError, "internal server error")
				return
			}

			effective := user
			imp, err := signer.ImpersonationFromRequest(r)
			switch {
			case err == nil:
				target, err := resolveImpersonation(ctx, users, user, imp)
				if err != nil {
					slog.Error("Failed to load impersonated user", "target_id", imp.TargetID, "error", err)
					httpx.WriteError(w, http.StatusInternalServerError, "internal server error")
					return
				}
				if target != nil {
					effective = target
				} else {
					signer.ClearImpersonationCookie(w)
				}
			case !errors.Is(err, auth.ErrMissingToken):
				signer.ClearImpersonationCookie(w)
			}

			next.ServeHTTP(w, r.WithContext(WithUsers(ctx, user, effective)))
		})
	}
}

// resolveImpersonation returns the impersonated user, or nil when the
// impersonation no longer holds: issued by someone else, issuer no longer an
// admin, target gone.
func resolveImpersonation(ctx context.Context, users UserLookup, user *models.User, imp *auth.Impersonation) (*models.User, error) {
	if imp.AdminID != user.ID || !user.IsAdmin() || imp.TargetID == user.ID {
		return nil, nil
	}
	target, err := users.GetUserByID(ctx, imp.TargetID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return target, nil
}

// RequireAuth rejects requests without an authenticated user with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUser(r.Context()) == nil {
			httpx.WriteError(w, http.StatusUnauthorized, auth.ErrMissingToken.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests whose authenticated user is not an admin
// with 403. Impersonating a non-admin does not drop admin rights, and
// impersonating an admin does not grant them.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetUser(r.Context())
		if user == nil {
			httpx.WriteError(w, http.StatusUnauthorized, auth.ErrMissingToken.Error())
			return
		}
		if !user.IsAdmin() {
			httpx.WriteError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
