// internal/database/db.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the historian tables. It is safe to run on every start.
const Schema = `
CREATE TABLE IF NOT EXISTS rooms_history (
	id          UUID PRIMARY KEY,
	code        TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'open',
	opened_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	closed_at   TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS room_actions (
	room_id        UUID NOT NULL REFERENCES rooms_history(id),
	action_index   INT NOT NULL,
	actor_id       TEXT,
	action_type    TEXT NOT NULL,
	action_payload JSONB NOT NULL DEFAULT '{}',
	created_at     TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (room_id, action_index)
);
`

// Connect opens a pgx pool for url and pings it.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("unable to parse pgx config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return pool, nil
}

// EnsureSchema runs Schema against pool.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// txBeginner is the part of *pgxpool.Pool that pgx.BeginTxFunc needs.
type txBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}
