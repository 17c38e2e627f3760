package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"user-auth-service/internal/domain/user"
	"user-auth-service/pkg/logger"
)

const (
	// MaxListSize caps the number of users returned by List.
	MaxListSize = 1000

	// DefaultTimeout bounds a single store call when none is configured.
	DefaultTimeout = 5 * time.Second

	uniqueViolationCode = "23505"
)

// UserStore implements user persistence on a SQL database through GORM.
// Email uniqueness is enforced by a unique index, so concurrent writers race on the
// insert/update itself and the loser gets user.ErrDuplicateEmail.
type UserStore struct {
	db      *gorm.DB      // GORM database handle (postgres in production, sqlite locally)
	log     *zap.Logger   // Structured logger for database operations
	timeout time.Duration // Upper bound for every call
}

// NewUserStore creates a new instance of UserStore.
func NewUserStore(db *gorm.DB, timeout time.Duration, log *zap.Logger) *UserStore {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &UserStore{db: db, log: log, timeout: timeout}
}

// UserSchema represents the database schema for the users table.
type UserSchema struct {
	ID               string    `gorm:"primaryKey;size:36"`                            // Random UUID, never reused
	Name             string    `gorm:"size:50;not null"`                              // Display name
	Surname          string    `gorm:"size:50;not null"`                              // Empty for self-registered users
	Email            string    `gorm:"size:254;not null;uniqueIndex:idx_users_email"` // Unique, normalised address
	PasswordHash     string    `gorm:"not null"`                                      // Encoded Argon2id hash, empty for admin-created users
	Role             string    `gorm:"size:16;not null"`                              // user or admin
	RegistrationDate time.Time `gorm:"not null;index"`                                // Set once on insert
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "users"
}

func (m UserSchema) toDomain() *user.User {
	return &user.User{
		ID:               m.ID,
		Name:             m.Name,
		Surname:          m.Surname,
		Email:            m.Email,
		PasswordHash:     m.PasswordHash,
		Role:             user.Role(m.Role),
		RegistrationDate: m.RegistrationDate.UTC(),
	}
}

// Migrate creates or updates the users table and its indexes.
func (s *UserStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&UserSchema{}); err != nil {
		return fmt.Errorf("failed to migrate users table: %w", err)
	}
	return nil
}

// Ping verifies the database connection.
func (s *UserStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

// Create inserts a new user. The store assigns ID, default role and registration date.
func (s *UserStore) Create(ctx context.Context, u *user.User) (*user.User, error) {
	if u == nil {
		return nil, errors.New("user cannot be nil")
	}

	role := u.Role
	if role == "" {
		role = user.RoleUser
	}
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	model := UserSchema{
		ID:               uuid.NewString(),
		Name:             u.Name,
		Surname:          u.Surname,
		Email:            u.Email,
		PasswordHash:     u.PasswordHash,
		Role:             string(role),
		RegistrationDate: time.Now().UTC().Truncate(time.Microsecond),
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return nil, s.translateError(ctx, "create user", err)
	}

	logger.WithContext(ctx, s.log).Info("user created in db", zap.String("id", model.ID))
	return model.toDomain(), nil
}

// GetByID retrieves a user by ID. Malformed IDs are reported as user.ErrNotFound.
func (s *UserStore) GetByID(ctx context.Context, id string) (*user.User, error) {
	key, ok := user.CanonicalID(id)
	if !ok {
		return nil, user.ErrNotFound
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var model UserSchema
	if err := s.db.WithContext(ctx).Where("id = ?", key).First(&model).Error; err != nil {
		return nil, s.translateError(ctx, "get user", err)
	}
	return model.toDomain(), nil
}

// GetByEmail retrieves a user by (normalised) email address.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var model UserSchema
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&model).Error; err != nil {
		return nil, s.translateError(ctx, "get user by email", err)
	}
	return model.toDomain(), nil
}

// Update applies the present fields of patch in a single transaction and returns the
// resulting record. An email collision rolls the whole update back.
func (s *UserStore) Update(ctx context.Context, id string, patch user.Patch) (*user.User, error) {
	key, ok := user.CanonicalID(id)
	if !ok {
		return nil, user.ErrNotFound
	}

	if patch.IsEmpty() {
		return s.GetByID(ctx, key)
	}

	fields := make(map[string]any, 3)
	if patch.Name != nil {
		fields["name"] = *patch.Name
	}
	if patch.Surname != nil {
		fields["surname"] = *patch.Surname
	}
	if patch.Email != nil {
		fields["email"] = *patch.Email
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var model UserSchema
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&UserSchema{}).Where("id = ?", key).Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("id = ?", key).First(&model).Error
	})
	if err != nil {
		return nil, s.translateError(ctx, "update user", err)
	}

	logger.WithContext(ctx, s.log).Info("user updated in db", zap.String("id", key), zap.Int("fields", len(fields)))
	return model.toDomain(), nil
}

// Delete removes a user and reports whether a record was actually removed.
func (s *UserStore) Delete(ctx context.Context, id string) (bool, error) {
	key, ok := user.CanonicalID(id)
	if !ok {
		return false, nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res := s.db.WithContext(ctx).Where("id = ?", key).Delete(&UserSchema{})
	if res.Error != nil {
		return false, s.translateError(ctx, "delete user", res.Error)
	}

	if res.RowsAffected > 0 {
		logger.WithContext(ctx, s.log).Info("user deleted in db", zap.String("id", key))
	}
	return res.RowsAffected > 0, nil
}

// List returns live users ordered by registration date, at most MaxListSize.
func (s *UserStore) List(ctx context.Context, limit int) ([]user.User, error) {
	if limit <= 0 || limit > MaxListSize {
		limit = MaxListSize
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var models []UserSchema
	if err := s.db.WithContext(ctx).
		Order("registration_date ASC").
		Order("id ASC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, s.translateError(ctx, "list users", err)
	}

	users := make([]user.User, len(models))
	for i, m := range models {
		users[i] = *m.toDomain()
	}
	return users, nil
}

func (s *UserStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// translateError maps backend failures onto the domain taxonomy. Anything that is
// neither "not found" nor a uniqueness conflict is logged and reported as unavailable.
func (s *UserStore) translateError(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return user.ErrNotFound
	case isDuplicateKey(err):
		logger.WithContext(ctx, s.log).Warn("email already exists", zap.String("op", op))
		return user.ErrDuplicateEmail
	}

	logger.WithContext(ctx, s.log).Error("user store failure", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%s: %w: %w", op, user.ErrStoreUnavailable, err)
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}
	// sqlite drivers report constraint violations only through the message
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
