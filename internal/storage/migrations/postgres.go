package migrations

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgLockKey serializes concurrent migrators on one database.
const pgLockKey int64 = 0x6d656d65

const pgVersionTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
    version    TEXT        PRIMARY KEY,
    applied_ts TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// ApplyPostgres applies pending migrations, one transaction per version.
// It returns the versions applied by this call.
func ApplyPostgres(ctx context.Context, pool *pgxpool.Pool) ([]string, error) {
	ms, err := Load("postgres")
	if err != nil {
		return nil, err
	}
	if _, err := pool.Exec(ctx, pgVersionTable); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	var applied []string
	for _, m := range ms {
		ok, err := applyPostgres(ctx, pool, m)
		if err != nil {
			return applied, fmt.Errorf("apply migration %s: %w", m.Version, err)
		}
		if ok {
			applied = append(applied, m.Version)
		}
	}
	return applied, nil
}

func applyPostgres(ctx context.Context, pool *pgxpool.Pool, m Migration) (applied bool, err error) {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, pgLockKey); err != nil {
		return false, err
	}
	var one int
	err = tx.QueryRow(ctx, `SELECT 1 FROM schema_migrations WHERE version = $1`, m.Version).Scan(&one)
	switch {
	case err == nil:
		return false, tx.Commit(ctx)
	case !errors.Is(err, pgx.ErrNoRows):
		return false, err
	}

	for _, stmt := range m.Statements {
		if _, err = tx.Exec(ctx, stmt); err != nil {
			return false, err
		}
	}
	if _, err = tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, m.Version); err != nil {
		return false, err
	}
	if err = tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}
