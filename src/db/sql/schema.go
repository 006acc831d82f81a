package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		username      VARCHAR(30) NOT NULL UNIQUE,
		email         VARCHAR(254) NOT NULL UNIQUE,
		password_hash BYTEA NOT NULL,
		locked        BOOLEAN NOT NULL DEFAULT FALSE,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_login    TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		description VARCHAR(255) NOT NULL,
		amount      NUMERIC(10, 2) NOT NULL CHECK (amount >= 0.01),
		type        VARCHAR(7) NOT NULL CHECK (type IN ('income', 'expense')),
		date        DATE NOT NULL,
		owner_id    BIGINT REFERENCES users (id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS transactions_owner_id_idx ON transactions (owner_id)`,
}

// Migrate creates the tables when they do not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
