package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	domain "user-auth-service/internal/domain/user"
	pkgerrors "user-auth-service/pkg/errors"
	"user-auth-service/pkg/logger"
	"user-auth-service/pkg/security"
)

// TokenType is returned alongside every access token.
const TokenType = "bearer"

// Repository is the slice of the user store the auth flow needs.
type Repository interface {
	Create(ctx context.Context, u *domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// TokenIssuer issues signed access tokens for a subject.
type TokenIssuer interface {
	Issue(subject string) (string, error)
	TTL() time.Duration
}

// RegisterRequest is the self-registration payload.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=100"`
}

// LoginRequest carries user credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse is the result of a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"` // seconds
}

// Usecase implements registration, login and token subject resolution.
type Usecase struct {
	repo     Repository
	hasher   security.PasswordHasher
	tokens   TokenIssuer
	log      *zap.Logger
	validate *validator.Validate

	dummyOnce sync.Once
	dummyHash string
}

// New creates a new auth Usecase.
func New(repo Repository, hasher security.PasswordHasher, tokens TokenIssuer, log *zap.Logger) *Usecase {
	return &Usecase{
		repo:     repo,
		hasher:   hasher,
		tokens:   tokens,
		log:      log,
		validate: validator.New(),
	}
}

// Register validates the payload, hashes the password and stores a new account
// with the default role.
func (uc *Usecase) Register(ctx context.Context, in RegisterRequest) (*domain.PublicUser, error) {
	log := logger.WithContext(ctx, uc.log)
	in.Email = domain.NormalizeEmail(in.Email)

	if err := uc.validate.Struct(in); err != nil {
		log.Warn("register validation failed", zap.Error(err))
		return nil, pkgerrors.FromValidator(err)
	}

	hash, err := uc.hasher.Hash(in.Password)
	if err != nil {
		log.Error("failed to hash password", zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to hash password", err)
	}

	u, err := uc.repo.Create(ctx, &domain.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			log.Info("registration rejected, email taken", zap.String("email", in.Email))
		} else {
			log.Error("failed to register user", zap.Error(err))
		}
		return nil, err
	}

	log.Info("user registered", zap.String("user_id", u.ID))
	return u.Public(), nil
}

// Login verifies credentials and issues an access token. Unknown email and wrong
// password are indistinguishable to the caller.
func (uc *Usecase) Login(ctx context.Context, in LoginRequest) (*TokenResponse, error) {
	log := logger.WithContext(ctx, uc.log)
	in.Email = domain.NormalizeEmail(in.Email)

	if err := uc.validate.Struct(in); err != nil {
		return nil, pkgerrors.FromValidator(err)
	}

	u, err := uc.repo.GetByEmail(ctx, in.Email)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// keep the timing of the unknown-email path close to a real verification
		uc.hasher.Verify(in.Password, uc.dummy())
		log.Info("login failed", zap.String("reason", "unknown email"))
		return nil, domain.ErrInvalidCredentials
	case err != nil:
		log.Error("failed to load user for login", zap.Error(err))
		return nil, err
	}

	if !uc.hasher.Verify(in.Password, u.PasswordHash) {
		log.Info("login failed", zap.String("reason", "bad password"), zap.String("user_id", u.ID))
		return nil, domain.ErrInvalidCredentials
	}

	token, err := uc.tokens.Issue(u.ID)
	if err != nil {
		log.Error("failed to issue token", zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to issue token", err)
	}

	log.Info("user logged in", zap.String("user_id", u.ID))
	return &TokenResponse{
		AccessToken: token,
		TokenType:   TokenType,
		ExpiresIn:   int64(uc.tokens.TTL() / time.Second),
	}, nil
}

// Me resolves a validated token subject to the account it names.
func (uc *Usecase) Me(ctx context.Context, subject string) (*domain.PublicUser, error) {
	u, err := uc.repo.GetByID(ctx, subject)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	return u.Public(), nil
}

func (uc *Usecase) dummy() string {
	uc.dummyOnce.Do(func() {
		hash, err := uc.hasher.Hash("dummy-password-for-timing")
		if err != nil {
			uc.log.Warn("failed to prepare dummy hash", zap.Error(err))
			return
		}
		uc.dummyHash = hash
	})
	return uc.dummyHash
}
