package user

import (
	pkgerrors "user-auth-service/pkg/errors"
)

// Domain errors returned by the user store and the use cases built on it.
// Compare with errors.Is.
var (
	ErrNotFound           = pkgerrors.NewNotFoundError("user", "user not found")
	ErrDuplicateEmail     = pkgerrors.NewAlreadyExistsError("user", "user with this email already exists")
	ErrInvalidCredentials = pkgerrors.NewUnauthenticatedError("invalid credentials")
	ErrStoreUnavailable   = pkgerrors.NewUnavailableError("user store unavailable", nil)
)
