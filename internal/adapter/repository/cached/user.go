package cached

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"user-auth-service/internal/adapter/cache"
	domain "user-auth-service/internal/domain/user"
	"user-auth-service/internal/usecase/user"
	"user-auth-service/pkg/logger"
)

// CachedUserRepository implements user.Repository with caching support.
// It wraps a persistent repository (DB) and a cache implementation.
type CachedUserRepository struct {
	dbRepo user.Repository
	cache  cache.UserCache
	log    *zap.Logger
	group  singleflight.Group
}

// NewCachedUserRepository creates a new instance of CachedUserRepository.
// A nil cache disables caching.
func NewCachedUserRepository(dbRepo user.Repository, cache cache.UserCache, log *zap.Logger) *CachedUserRepository {
	return &CachedUserRepository{
		dbRepo: dbRepo,
		cache:  cache,
		log:    log,
	}
}

// Create delegates to the DB repository.
func (r *CachedUserRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	return r.dbRepo.Create(ctx, u)
}

// GetByID retrieves a user by ID using Cache-Aside pattern.
// Cached entries carry no password hash; callers that need it use GetByEmail.
// Any accepted spelling of an ID shares the entry of its canonical form.
func (r *CachedUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	key, ok := domain.CanonicalID(id)
	if !ok {
		return r.dbRepo.GetByID(ctx, id)
	}

	log := logger.WithContext(ctx, r.log).With(zap.String("id", key))

	if r.cache != nil {
		cachedUser, err := r.cache.Get(ctx, key)
		if err != nil {
			log.Warn("cache get error, falling back to database", zap.Error(err))
		} else if cachedUser != nil {
			return cachedUser, nil
		}
	}

	// Cache miss or cache disabled - use single-flight to prevent stampede
	result, err, _ := r.group.Do("user:"+key, func() (any, error) {
		fill := r.cache != nil
		var version int64
		if fill {
			cachedUser, err := r.cache.Get(ctx, key)
			if err == nil && cachedUser != nil {
				log.Debug("user retrieved from cache after single-flight wait")
				return cachedUser, nil
			}

			// read before the database so a concurrent invalidation cancels the fill
			version, err = r.cache.Version(ctx, key)
			if err != nil {
				log.Warn("cache version error, skipping cache fill", zap.Error(err))
				fill = false
			}
		}

		u, err := r.dbRepo.GetByID(ctx, key)
		if err != nil {
			return nil, err
		}

		if fill {
			if _, err := r.cache.Set(ctx, u, version); err != nil {
				log.Warn("failed to cache user", zap.Error(err))
			}
		}

		return u, nil
	})
	if err != nil {
		return nil, err
	}

	// singleflight hands the same pointer to every waiter
	u := *result.(*domain.User)
	return &u, nil
}

// GetByEmail delegates to the DB repository.
func (r *CachedUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.dbRepo.GetByEmail(ctx, email)
}

// Update updates the user in DB and invalidates the cache.
func (r *CachedUserRepository) Update(ctx context.Context, id string, patch domain.Patch) (*domain.User, error) {
	u, err := r.dbRepo.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	r.invalidate(ctx, "update", u.ID)
	return u, nil
}

// Delete deletes the user from DB and invalidates the cache.
func (r *CachedUserRepository) Delete(ctx context.Context, id string) (bool, error) {
	removed, err := r.dbRepo.Delete(ctx, id)
	if err != nil {
		return false, err
	}

	if key, ok := domain.CanonicalID(id); ok && removed {
		r.invalidate(ctx, "delete", key)
	}
	return removed, nil
}

// List delegates to the DB repository.
func (r *CachedUserRepository) List(ctx context.Context, limit int) ([]domain.User, error) {
	return r.dbRepo.List(ctx, limit)
}

func (r *CachedUserRepository) invalidate(ctx context.Context, op, id string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, id); err != nil {
		logger.WithContext(ctx, r.log).Warn("failed to invalidate cache", zap.String("op", op), zap.String("id", id), zap.Error(err))
	}
}
