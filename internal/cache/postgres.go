package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS cv_analyses (
	digest     TEXT PRIMARY KEY,
	result     BYTEA NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// pgQuerier is the subset of *pgxpool.Pool used by the backend.
type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres stores entries in a PostgreSQL table. Results are kept as BYTEA so
// the stored bytes are returned unchanged.
type Postgres struct {
	db   pgQuerier
	pool *pgxpool.Pool
}

// NewPostgres connects, verifies the connection and creates the table if
// needed.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	p := &Postgres{db: pool, pool: pool}
	if err := p.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// EnsureSchema creates the cv_analyses table when it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create cv_analyses table: %w", err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := p.db.QueryRow(ctx, `SELECT result FROM cv_analyses WHERE digest = $1`, key).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get analysis %s: %w", key, err)
	}
	return data, nil
}

func (p *Postgres) PutIfAbsent(ctx context.Context, key string, data []byte) (bool, error) {
	tag, err := p.db.Exec(ctx,
		`INSERT INTO cv_analyses (digest, result) VALUES ($1, $2)
		 ON CONFLICT (digest) DO NOTHING`,
		key, data,
	)
	if err != nil {
		return false, fmt.Errorf("failed to save analysis %s: %w", key, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}
