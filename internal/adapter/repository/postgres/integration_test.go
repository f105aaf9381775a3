package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/iho/cardbank/internal/adapter/repository/storetest"
	"github.com/iho/cardbank/internal/domain"
	pginfra "github.com/iho/cardbank/internal/infrastructure/postgres"
	"github.com/iho/cardbank/internal/usecase"
)

// TestLedgerStoreIntegration runs the store suite against a real database.
// It is skipped unless CARDBANK_TEST_DATABASE_URL is set.
func TestLedgerStoreIntegration(t *testing.T) {
	dbURL := os.Getenv("CARDBANK_TEST_DATABASE_URL")
	if testing.Short() || dbURL == "" {
		t.Skip("skipping integration test")
	}

	if err := pginfra.RunMigrations(dbURL); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pginfra.NewPoolWithConfig(ctx, pginfra.PoolConfig{DatabaseURL: dbURL, MaxConns: 50})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	storetest.Run(t, func(t *testing.T, hooks domain.TransferHooks) usecase.LedgerStore {
		if _, err := pool.Exec(context.Background(), `TRUNCATE TABLE cards`); err != nil {
			t.Fatalf("failed to truncate cards: %v", err)
		}
		return NewLedgerStore(pool, WithHooks(hooks))
	}, storetest.Options{Workers: 20})
}
