package status

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/polymerwire/modelhub/ingest/internal/models"
)

// Postgres stores status rows in the model_status table created by ingest/migrations.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres opens a pool and pings it.
func NewPostgres(ctx context.Context, connString string, maxConns int32) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	if maxConns > 0 {
		config.MaxConns = maxConns
	}
	config.MinConns = 1
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

const upsertStatusSQL = `
INSERT INTO model_status (name, status, log, updated_at)
VALUES ($1, $2, ARRAY[$3::text], NOW())
ON CONFLICT (name) DO UPDATE SET
    status = EXCLUDED.status,
    log = model_status.log || EXCLUDED.log,
    updated_at = EXCLUDED.updated_at`

func (p *Postgres) Upsert(ctx context.Context, name string, code int, message string) error {
	if _, err := p.pool.Exec(ctx, upsertStatusSQL, name, code, message); err != nil {
		return fmt.Errorf("upsert status %s: %w", name, err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, name string) (*models.StatusRecord, error) {
	var rec models.StatusRecord
	err := p.pool.QueryRow(ctx,
		`SELECT name, status, log, updated_at FROM model_status WHERE name = $1`, name,
	).Scan(&rec.Name, &rec.Status, &rec.Log, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query status %s: %w", name, err)
	}
	return &rec, nil
}
