package settings

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/a-h/revchat/models"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `create table if not exists settings (
  key text primary key,
  value text not null
)`

// SQLiteStore keeps settings in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)
	if _, err = db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (models.Settings, error) {
	rows, err := s.db.QueryContext(ctx, `select key, value from settings`)
	if err != nil {
		return models.Settings{}, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()
	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err = rows.Scan(&k, &v); err != nil {
			return models.Settings{}, fmt.Errorf("failed to scan setting: %w", err)
		}
		values[k] = v
	}
	if err = rows.Err(); err != nil {
		return models.Settings{}, fmt.Errorf("failed to read settings: %w", err)
	}
	return models.SettingsFromMap(values), nil
}

func (s *SQLiteStore) Save(ctx context.Context, settings models.Settings) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, `delete from settings`); err != nil {
		return fmt.Errorf("failed to clear settings: %w", err)
	}
	for k, v := range settings.Map() {
		if _, err = tx.ExecContext(ctx, `insert into settings (key, value) values (?, ?)`, k, v); err != nil {
			return fmt.Errorf("failed to save setting %q: %w", k, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit settings: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
