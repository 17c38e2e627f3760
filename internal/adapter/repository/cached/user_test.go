package cached

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"user-auth-service/internal/adapter/cache"
	"user-auth-service/internal/adapter/db/postgres"
	domain "user-auth-service/internal/domain/user"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	args := m.Called(ctx, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockRepo) Update(ctx context.Context, id string, patch domain.Patch) (*domain.User, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockRepo) Delete(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepo) List(ctx context.Context, limit int) ([]domain.User, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]domain.User), args.Error(1)
}

const id = "a3d1c6f0-1d2e-4f6a-9b7c-0e5d4c3b2a19"

func setup(t *testing.T) (*CachedUserRepository, *mockRepo, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	db := new(mockRepo)
	log := zaptest.NewLogger(t)
	return NewCachedUserRepository(db, cache.NewRedisUserCache(client, time.Minute, log), log), db, mr
}

func dbUser(name string) *domain.User {
	return &domain.User{ID: id, Name: name, Email: "x@example.com", Role: domain.RoleUser, PasswordHash: "hash"}
}

func TestGetByID_CacheAside(t *testing.T) {
	repo, db, mr := setup(t)
	ctx := context.Background()

	db.On("GetByID", mock.Anything, id).Return(dbUser("Alice"), nil).Once()

	first, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Alice", first.Name)
	assert.True(t, mr.Exists("user:"+id))

	second, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Alice", second.Name)
	assert.Empty(t, second.PasswordHash)

	db.AssertNumberOfCalls(t, "GetByID", 1)
}

func TestGetByID_NotFoundIsNotCached(t *testing.T) {
	repo, db, mr := setup(t)

	db.On("GetByID", mock.Anything, id).Return(nil, domain.ErrNotFound)

	_, err := repo.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.False(t, mr.Exists("user:"+id))
}

func TestGetByID_CacheDownFallsBackToDatabase(t *testing.T) {
	repo, db, mr := setup(t)
	mr.Close()

	db.On("GetByID", mock.Anything, id).Return(dbUser("Alice"), nil)

	u, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.Name)
}

func TestGetByID_NilCache(t *testing.T) {
	db := new(mockRepo)
	repo := NewCachedUserRepository(db, nil, zaptest.NewLogger(t))

	db.On("GetByID", mock.Anything, id).Return(dbUser("Alice"), nil).Twice()

	for i := 0; i < 2; i++ {
		_, err := repo.GetByID(context.Background(), id)
		require.NoError(t, err)
	}
	db.AssertExpectations(t)
}

func TestGetByID_SingleFlight(t *testing.T) {
	repo, db, _ := setup(t)

	release := make(chan struct{})
	db.On("GetByID", mock.Anything, id).
		Run(func(mock.Arguments) { <-release }).
		Return(dbUser("Alice"), nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := repo.GetByID(context.Background(), id)
			assert.NoError(t, err)
			assert.Equal(t, "Alice", u.Name)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	calls := 0
	for _, c := range db.Calls {
		if c.Method == "GetByID" {
			calls++
		}
	}
	assert.LessOrEqual(t, calls, 2)
}

func TestUpdate_InvalidatesCache(t *testing.T) {
	repo, db, mr := setup(t)
	ctx := context.Background()

	db.On("GetByID", mock.Anything, id).Return(dbUser("Alice"), nil).Once()
	_, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.True(t, mr.Exists("user:"+id))

	name := "Alicia"
	db.On("Update", mock.Anything, id, domain.Patch{Name: &name}).Return(dbUser("Alicia"), nil)
	updated, err := repo.Update(ctx, id, domain.Patch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Alicia", updated.Name)
	assert.False(t, mr.Exists("user:"+id))

	db.On("GetByID", mock.Anything, id).Return(dbUser("Alicia"), nil).Once()
	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Alicia", got.Name)
}

func TestUpdate_FailureKeepsCache(t *testing.T) {
	repo, db, mr := setup(t)
	ctx := context.Background()

	db.On("GetByID", mock.Anything, id).Return(dbUser("Alice"), nil).Once()
	_, err := repo.GetByID(ctx, id)
	require.NoError(t, err)

	db.On("Update", mock.Anything, id, mock.Anything).Return(nil, domain.ErrDuplicateEmail)
	_, err = repo.Update(ctx, id, domain.Patch{})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
	assert.True(t, mr.Exists("user:"+id))
}

func TestDelete_InvalidatesCache(t *testing.T) {
	repo, db, mr := setup(t)
	ctx := context.Background()

	db.On("GetByID", mock.Anything, id).Return(dbUser("Alice"), nil).Once()
	_, err := repo.GetByID(ctx, id)
	require.NoError(t, err)

	db.On("Delete", mock.Anything, id).Return(true, nil).Once()
	removed, err := repo.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.False(t, mr.Exists("user:"+id))

	db.On("Delete", mock.Anything, id).Return(false, nil).Once()
	removed, err = repo.Delete(ctx, id)
	require.NoError(t, err)
	assert.False(t, removed)

	db.On("GetByID", mock.Anything, id).Return(nil, domain.ErrNotFound)
	_, err = repo.GetByID(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPassThrough(t *testing.T) {
	repo, db, _ := setup(t)
	ctx := context.Background()

	db.On("Create", mock.Anything, mock.Anything).Return(dbUser("Alice"), nil)
	db.On("GetByEmail", mock.Anything, "x@example.com").Return(dbUser("Alice"), nil)
	db.On("List", mock.Anything, 5).Return([]domain.User{*dbUser("Alice")}, nil)

	created, err := repo.Create(ctx, &domain.User{Name: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, id, created.ID)

	byEmail, err := repo.GetByEmail(ctx, "x@example.com")
	require.NoError(t, err)
	assert.Equal(t, "hash", byEmail.PasswordHash)

	list, err := repo.List(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	db.On("Delete", mock.Anything, "boom").Return(false, errors.New("boom"))
	_, err = repo.Delete(ctx, "boom")
	assert.Error(t, err)
}

// setupWithStore wires the decorator over a real sqlite-backed store.
func setupWithStore(t *testing.T) (*CachedUserRepository, *miniredis.Miniredis) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "users.db")), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	log := zaptest.NewLogger(t)
	store := postgres.NewUserStore(db, 0, log)
	require.NoError(t, store.Migrate(context.Background()))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewCachedUserRepository(store, cache.NewRedisUserCache(client, 5*time.Minute, log), log), mr
}

func TestIDSpellingsShareOneCacheEntry(t *testing.T) {
	repo, mr := setupWithStore(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, &domain.User{Name: "Alice", Email: "alice@example.com"})
	require.NoError(t, err)
	lower := created.ID
	upper := strings.ToUpper(lower)

	_, err = repo.GetByID(ctx, upper)
	require.NoError(t, err)
	assert.True(t, mr.Exists("user:"+lower))
	assert.False(t, mr.Exists("user:"+upper))

	name := "Alicia"
	_, err = repo.Update(ctx, upper, domain.Patch{Name: &name})
	require.NoError(t, err)
	assert.False(t, mr.Exists("user:"+lower))

	got, err := repo.GetByID(ctx, lower)
	require.NoError(t, err)
	assert.Equal(t, "Alicia", got.Name)

	removed, err := repo.Delete(ctx, "{"+upper+"}")
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = repo.GetByID(ctx, lower)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repo.GetByID(ctx, "urn:uuid:"+lower)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetByID_MalformedIDSkipsCache(t *testing.T) {
	repo, db, mr := setup(t)

	db.On("GetByID", mock.Anything, "nope").Return(nil, domain.ErrNotFound).Once()

	_, err := repo.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, mr.Keys())
}

func TestGetByID_DeleteDuringReadIsNotCached(t *testing.T) {
	repo, db, mr := setup(t)
	ctx := context.Background()

	db.On("Delete", mock.Anything, id).Return(true, nil).Once()
	// the delete commits after the reader has loaded the old row
	db.On("GetByID", mock.Anything, id).
		Run(func(mock.Arguments) {
			removed, err := repo.Delete(ctx, id)
			assert.NoError(t, err)
			assert.True(t, removed)
		}).
		Return(dbUser("Alice"), nil).Once()

	u, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.Name)
	assert.False(t, mr.Exists("user:"+id))

	db.On("GetByID", mock.Anything, id).Return(nil, domain.ErrNotFound).Once()
	_, err = repo.GetByID(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	db.AssertExpectations(t)
}

func TestGetByID_VersionErrorStillServesDatabase(t *testing.T) {
	repo, db, mr := setup(t)

	require.NoError(t, mr.Set("user:ver:"+id, "not-a-number"))
	db.On("GetByID", mock.Anything, id).Return(dbUser("Alice"), nil).Once()

	u, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.Name)
	assert.False(t, mr.Exists("user:"+id))
}
