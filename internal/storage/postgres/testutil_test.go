package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"memedesk/internal/domain"
	"memedesk/internal/storage"
	"memedesk/internal/storage/migrations"
)

// newTestStore starts a disposable postgres, applies the embedded schema
// and returns a store over it. Everything is torn down with the test.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test")
	}
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("memedesk"),
		tcpostgres.WithUsername("memedesk"),
		tcpostgres.WithPassword("memedesk"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(90*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := ctr.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	applied, err := migrations.ApplyPostgres(ctx, pool.Pool)
	require.NoError(t, err)
	require.NotEmpty(t, applied)

	again, err := migrations.ApplyPostgres(ctx, pool.Pool)
	require.NoError(t, err)
	require.Empty(t, again, "migrations must be recorded once applied")

	return NewStore(pool)
}

// seedCoin inserts a dex coin inside its own transaction.
func seedCoin(t *testing.T, s *Store, ca, chain string) *domain.Coin {
	t.Helper()
	c := &domain.Coin{CA: ca, Chain: chain, Name: "Coin " + ca, SourceType: domain.SourceDex}
	err := s.Update(context.Background(), func(r storage.Repository) error {
		return r.InsertCoin(context.Background(), c)
	})
	require.NoError(t, err)
	return c
}

func ptr[T any](v T) *T { return &v }
