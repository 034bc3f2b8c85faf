// Package service implements the HTTP API: one handler type per resource,
// assembled by NewRouter.
package service

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/mmynk/synapso/internal/auth"
	"github.com/mmynk/synapso/internal/httpx"
	"github.com/mmynk/synapso/internal/middleware"
	"github.com/mmynk/synapso/internal/models"
	"github.com/mmynk/synapso/internal/storage"
)

// Deps are the dependencies shared by the resource handlers.
type Deps struct {
	Store storage.Store

	// Location is the time zone of calendar days and reset periods.
	// Nil means time.Local.
	Location *time.Location

	// Now returns the current time. Nil means time.Now.
	Now func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Deps) location() *time.Location {
	if d.Location != nil {
		return d.Location
	}
	return time.Local
}

// parseDay parses a YYYY-MM-DD query value as local midnight.
func (d *Deps) parseDay(field, value string) (time.Time, error) {
	t, err := time.ParseInLocation(models.DateLayout, value, d.location())
	if err != nil {
		return time.Time{}, httpx.BadRequest("%s must be a date (YYYY-MM-DD)", field)
	}
	return t, nil
}

// effectiveUser returns the user whose data the request reads and writes.
// Routes using it are mounted behind RequireAuth.
func effectiveUser(r *http.Request) *models.User {
	return middleware.GetEffectiveUser(r.Context())
}

// respondError maps err to a status code and writes the error envelope.
// resource names the record in 404 and duplicate messages.
func respondError(w http.ResponseWriter, op, resource string, err error) {
	switch {
	case httpx.IsBadRequest(err):
		slog.Warn(op+" rejected", "error", err)
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		slog.Warn(op+" failed", "error", err)
		httpx.WriteError(w, http.StatusNotFound, resource+" not found")
	case errors.Is(err, storage.ErrConflict), errors.Is(err, auth.ErrNameExists):
		slog.Warn(op+" failed", "error", err)
		httpx.WriteError(w, http.StatusBadRequest, resource+" already exists")
	case errors.Is(err, storage.ErrInvalidReference):
		slog.Warn(op+" failed", "error", err)
		httpx.WriteError(w, http.StatusBadRequest, "referenced record does not exist")
	case errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrLongPassword),
		errors.Is(err, auth.ErrNameRequired):
		slog.Warn(op+" rejected", "error", err)
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		slog.Warn(op+" failed", "error", err)
		httpx.WriteError(w, http.StatusUnauthorized, err.Error())
	default:
		slog.Error(op+" failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}

// clientIP returns the host part of RemoteAddr (rewritten by RealIP behind a trusted proxy).
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// requiredText trims value and rejects it when blank.
func requiredText(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", httpx.BadRequest("%s is required", field)
	}
	return value, nil
}
