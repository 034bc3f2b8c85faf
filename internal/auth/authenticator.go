package auth

import (
	"context"

	"github.com/mmynk/synapso/internal/models"
)

// Authenticator defines the interface for authentication implementations.
// This abstraction allows swapping between different auth methods (password, passkeys, OAuth, etc.)
// without changing the service layer code.
type Authenticator interface {
	// Register creates a new user account with the given name, credential and role.
	// Returns ErrNameExists when the name is taken (names compare case-insensitively).
	Register(ctx context.Context, name, credential string, role models.Role) (*models.User, error)

	// Authenticate verifies the user's credentials and returns the user if successful.
	// Unknown names and wrong credentials both return ErrInvalidCredentials.
	Authenticate(ctx context.Context, name, credential string) (*models.User, error)

	// ValidateCredential checks if the credential meets the implementation's requirements.
	ValidateCredential(credential string) error

	// ChangePassword replaces the credential of a user after checking the current one.
	ChangePassword(ctx context.Context, userID, current, next string) error

	// SetPassword replaces the credential of a user without checking the current one.
	// Used by admins and the maintenance CLI.
	SetPassword(ctx context.Context, userID, next string) error
}
