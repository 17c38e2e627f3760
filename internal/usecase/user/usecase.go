package user

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	domain "user-auth-service/internal/domain/user"
	pkgerrors "user-auth-service/pkg/errors"
	"user-auth-service/pkg/logger"
)

// Service implements the business logic for user management operations.
// It provides a clean separation between the transport layer and data layer.
type Service struct {
	repo     Repository          // Repository for data access (usually the cached decorator)
	log      *zap.Logger         // Logger for structured logging
	validate *validator.Validate // Validator for request validation
}

var _ Usecase = (*Service)(nil)

// New creates a new instance of Service with the provided repository and logger.
func New(r Repository, log *zap.Logger) *Service {
	return &Service{repo: r, log: log, validate: validator.New()}
}

// CreateUser validates the request and inserts the user. Uniqueness is decided by
// the store, which returns domain.ErrDuplicateEmail on conflict.
func (uc *Service) CreateUser(ctx context.Context, in CreateUserRequest) (*domain.PublicUser, error) {
	log := logger.WithContext(ctx, uc.log)
	in.Email = domain.NormalizeEmail(in.Email)

	if err := uc.validate.Struct(in); err != nil {
		log.Warn("validate failed", zap.Error(err))
		return nil, pkgerrors.FromValidator(err)
	}

	log.Info("creating user", zap.String("email", in.Email))

	u, err := uc.repo.Create(ctx, &domain.User{
		Name:    in.Name,
		Surname: in.Surname,
		Email:   in.Email,
		Role:    domain.RoleUser,
	})
	if err != nil {
		uc.logFailure(log, "failed to create user", err)
		return nil, err
	}
	return u.Public(), nil
}

// UpdateUser applies the supplied fields only.
func (uc *Service) UpdateUser(ctx context.Context, in UpdateUserRequest) (*domain.PublicUser, error) {
	log := logger.WithContext(ctx, uc.log).With(zap.String("id", in.ID))
	if in.Email != nil {
		normalized := domain.NormalizeEmail(*in.Email)
		in.Email = &normalized
	}

	if err := uc.validate.Struct(in); err != nil {
		log.Warn("validate failed", zap.Error(err))
		return nil, pkgerrors.FromValidator(err)
	}

	log.Info("updating user")

	u, err := uc.repo.Update(ctx, in.ID, domain.Patch{
		Name:    in.Name,
		Surname: in.Surname,
		Email:   in.Email,
	})
	if err != nil {
		uc.logFailure(log, "failed to update user", err)
		return nil, err
	}
	return u.Public(), nil
}

// DeleteUser removes a user. Deleting a user that does not exist is reported as
// domain.ErrNotFound.
func (uc *Service) DeleteUser(ctx context.Context, in DeleteUserRequest) error {
	log := logger.WithContext(ctx, uc.log).With(zap.String("id", in.ID))

	if err := uc.validate.Struct(in); err != nil {
		log.Warn("delete user validation failed", zap.Error(err))
		return pkgerrors.FromValidator(err)
	}

	log.Info("deleting user")

	removed, err := uc.repo.Delete(ctx, in.ID)
	if err != nil {
		uc.logFailure(log, "failed to delete user", err)
		return err
	}
	if !removed {
		return domain.ErrNotFound
	}
	return nil
}

// GetUser retrieves a user by ID.
func (uc *Service) GetUser(ctx context.Context, in GetUserRequest) (*domain.PublicUser, error) {
	log := logger.WithContext(ctx, uc.log).With(zap.String("id", in.ID))

	if err := uc.validate.Struct(in); err != nil {
		log.Warn("get user validation failed", zap.Error(err))
		return nil, pkgerrors.FromValidator(err)
	}

	u, err := uc.repo.GetByID(ctx, in.ID)
	if err != nil {
		uc.logFailure(log, "failed to get user", err)
		return nil, err
	}
	return u.Public(), nil
}

// ListUsers returns users ordered by registration date.
func (uc *Service) ListUsers(ctx context.Context, in ListUsersRequest) ([]domain.PublicUser, error) {
	log := logger.WithContext(ctx, uc.log)

	if err := uc.validate.Struct(in); err != nil {
		log.Warn("list users validation failed", zap.Error(err))
		return nil, pkgerrors.FromValidator(err)
	}

	users, err := uc.repo.List(ctx, in.Limit)
	if err != nil {
		uc.logFailure(log, "failed to list users", err)
		return nil, err
	}

	out := make([]domain.PublicUser, len(users))
	for i := range users {
		out[i] = *users[i].Public()
	}
	return out, nil
}

// logFailure logs expected domain outcomes at debug and everything else at error.
func (uc *Service) logFailure(log *zap.Logger, msg string, err error) {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrDuplicateEmail) {
		log.Debug(msg, zap.Error(err))
		return
	}
	log.Error(msg, zap.Error(err))
}
