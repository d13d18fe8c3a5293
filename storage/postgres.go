package storage

import (
	"context"
	"errors"
	"fmt"

	"calltrack.pro/license/models"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

// ApplicationName identifies this service in pg_stat_activity.
const ApplicationName = "calltrack-pro-license-api"

// PgxPool is the subset of *pgxpool.Pool the store uses; pgxmock satisfies it too.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

type PostgresStorage struct {
	pool PgxPool
}

type PostgresOptions struct {
	DatabaseURL string
	// ServiceKey replaces the password in DatabaseURL when set.
	ServiceKey string
	// Migrate applies the embedded schema on connect. Off when the managed
	// datastore owns the licenses table.
	Migrate bool
}

func NewPostgresStorage(ctx context.Context, opts PostgresOptions) (*PostgresStorage, error) {
	config, err := pgxpool.ParseConfig(opts.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	if opts.ServiceKey != "" {
		config.ConnConfig.Password = opts.ServiceKey
	}
	config.ConnConfig.RuntimeParams["application_name"] = ApplicationName
	config.MaxConns = 10
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if opts.Migrate {
		driver, err := migratepgx.WithInstance(stdlib.OpenDBFromPool(pool), &migratepgx.Config{})
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		if err := migrateUp("pgx5", driver); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	return &PostgresStorage{pool: pool}, nil
}

func NewPostgresStorageWithPool(pool PgxPool) *PostgresStorage {
	return &PostgresStorage{pool: pool}
}

func (s *PostgresStorage) Insert(ctx context.Context, license *models.License) error {
	const q = `INSERT INTO licenses (key, active) VALUES ($1, $2)`

	_, err := s.pool.Exec(ctx, q, license.Key, license.Active)
	if isUniqueViolation(err) {
		return fmt.Errorf("failed to insert license: %w", ErrDuplicateKey)
	}
	if err != nil {
		return fmt.Errorf("failed to insert license: %w", err)
	}
	return nil
}

func (s *PostgresStorage) FindByKey(ctx context.Context, key string) (*models.License, error) {
	// only key and active: the managed table may carry other columns or none
	const q = `SELECT key, active FROM licenses WHERE key = $1`

	var license models.License
	var active *bool
	err := s.pool.QueryRow(ctx, q, key).Scan(&license.Key, &active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find license: %w", err)
	}

	license.Active = active != nil && *active
	return &license, nil
}

func (s *PostgresStorage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStorage) Close() error {
	s.pool.Close()
	return nil
}

// isUniqueViolation reports whether the error is a unique constraint violation.
func isUniqueViolation(err error) bool {
	var pg *pgconn.PgError
	return errors.As(err, &pg) && pg.Code == "23505"
}
