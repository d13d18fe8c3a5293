package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"calltrack.pro/license/models"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/mattn/go-sqlite3"
)

type SQLiteStorage struct {
	db   *sql.DB
	path string
}

func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer at a time; sqlite serializes anyway
	db.SetMaxOpenConns(1)

	storage := &SQLiteStorage{
		db:   db,
		path: path,
	}

	if err := storage.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) migrate() error {
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return err
	}
	return migrateUp("sqlite3", driver)
}

func (s *SQLiteStorage) Insert(ctx context.Context, license *models.License) error {
	query := `INSERT INTO licenses (key, active) VALUES (?, ?)`

	_, err := s.db.ExecContext(ctx, query, license.Key, license.Active)
	if isSQLiteConstraint(err) {
		return fmt.Errorf("failed to insert license: %w", ErrDuplicateKey)
	}
	if err != nil {
		return fmt.Errorf("failed to insert license: %w", err)
	}

	return nil
}

func (s *SQLiteStorage) FindByKey(ctx context.Context, key string) (*models.License, error) {
	query := `SELECT key, active, created_at FROM licenses WHERE key = ?`

	var license models.License
	var active sql.NullBool
	err := s.db.QueryRowContext(ctx, query, key).Scan(
		&license.Key,
		&active,
		&license.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find license: %w", err)
	}

	license.Active = active.Valid && active.Bool
	return &license, nil
}

// SetActive is the operator path for deactivating a key; the HTTP API never calls it.
func (s *SQLiteStorage) SetActive(ctx context.Context, key string, active bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE licenses SET active = ? WHERE key = ?`, active, key)
	if err != nil {
		return fmt.Errorf("failed to update license: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func isSQLiteConstraint(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}
