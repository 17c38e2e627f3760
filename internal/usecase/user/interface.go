package user

import (
	"context"

	domain "user-auth-service/internal/domain/user"
)

// Usecase defines the interface for user business logic operations.
type Usecase interface {
	CreateUser(ctx context.Context, in CreateUserRequest) (*domain.PublicUser, error)
	UpdateUser(ctx context.Context, in UpdateUserRequest) (*domain.PublicUser, error)
	DeleteUser(ctx context.Context, in DeleteUserRequest) error
	GetUser(ctx context.Context, in GetUserRequest) (*domain.PublicUser, error)
	ListUsers(ctx context.Context, in ListUsersRequest) ([]domain.PublicUser, error)
}

// Repository defines the interface for user data access operations.
// Implementations report domain errors: domain.ErrNotFound, domain.ErrDuplicateEmail
// and domain.ErrStoreUnavailable.
type Repository interface {
	Create(ctx context.Context, u *domain.User) (*domain.User, error)                // Insert; ID, role and registration date assigned by the store
	GetByID(ctx context.Context, id string) (*domain.User, error)                    // Retrieve user by ID
	GetByEmail(ctx context.Context, email string) (*domain.User, error)             // Retrieve user by normalised email
	Update(ctx context.Context, id string, patch domain.Patch) (*domain.User, error) // Apply a partial update
	Delete(ctx context.Context, id string) (bool, error)                             // Delete user by ID, reporting whether a row was removed
	List(ctx context.Context, limit int) ([]domain.User, error)                      // List users ordered by registration date
}
