package integration

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"user-auth-service/internal/adapter/db/postgres"
	domain "user-auth-service/internal/domain/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// startPostgres runs a throwaway PostgreSQL container and returns its DSN.
func startPostgres(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "users",
			},
			WaitingFor: wait.ForAll(
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
				wait.ForListeningPort("5432/tcp"),
			),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Errorf("failed to terminate postgres container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("host=%s port=%s user=test password=test dbname=users sslmode=disable", host, port.Port())
}

func TestUserStore_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	db, err := gorm.Open(pgdriver.Open(startPostgres(ctx, t)), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	store := postgres.NewUserStore(db, 5*time.Second, zaptest.NewLogger(t))
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Ping(ctx))

	t.Run("create and fetch", func(t *testing.T) {
		u, err := store.Create(ctx, &domain.User{Name: "Ada", Surname: "Lovelace", Email: "ada@example.com"})
		require.NoError(t, err)
		assert.Equal(t, domain.RoleUser, u.Role)

		got, err := store.GetByEmail(ctx, "ada@example.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
	})

	t.Run("unique violation maps to duplicate email", func(t *testing.T) {
		_, err := store.Create(ctx, &domain.User{Name: "Ada", Email: "ada@example.com"})
		assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
	})

	t.Run("concurrent inserts of one email", func(t *testing.T) {
		const workers = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			dupes     int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.Create(ctx, &domain.User{Name: "Race", Email: "race@example.com"})
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					successes++
				case assert.ErrorIs(t, err, domain.ErrDuplicateEmail):
					dupes++
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, successes)
		assert.Equal(t, workers-1, dupes)
	})

	t.Run("update and delete", func(t *testing.T) {
		u, err := store.Create(ctx, &domain.User{Name: "Grace", Surname: "Hopper", Email: "grace@example.com"})
		require.NoError(t, err)

		name := "Admiral"
		updated, err := store.Update(ctx, u.ID, domain.Patch{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, "Admiral", updated.Name)
		assert.Equal(t, "Hopper", updated.Surname)

		taken := "ada@example.com"
		_, err = store.Update(ctx, u.ID, domain.Patch{Email: &taken})
		assert.ErrorIs(t, err, domain.ErrDuplicateEmail)

		removed, err := store.Delete(ctx, u.ID)
		require.NoError(t, err)
		assert.True(t, removed)
		removed, err = store.Delete(ctx, u.ID)
		require.NoError(t, err)
		assert.False(t, removed)
	})
}
