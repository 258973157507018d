// Package sqlite provides the SQLite-backed spritesheet blob store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ivlev/spritegrid/internal/storage"
	"github.com/ivlev/spritegrid/internal/storage/sqlite/migrations"
	"github.com/ivlev/spritegrid/internal/storage/sqlitemigrate"
	_ "modernc.org/sqlite"
)

// Store persists uploaded sheets in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ storage.SheetStore = (*Store)(nil)

// Open opens the database at path and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(context.Background(), sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// StoreSheet inserts the raw upload and returns its id.
func (s *Store) StoreSheet(ctx context.Context, name string, data []byte) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	if len(data) == 0 {
		return 0, fmt.Errorf("sheet data is required")
	}
	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO sheets (name, data, size, created_at) VALUES (?, ?, ?, ?)`,
		strings.TrimSpace(name), data, len(data), time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("store sheet: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store sheet: %w", err)
	}
	return id, nil
}

// Sheet loads one stored upload.
func (s *Store) Sheet(ctx context.Context, id int64) (storage.SheetRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.SheetRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.SheetRecord{}, fmt.Errorf("storage is not configured")
	}

	var rec storage.SheetRecord
	var createdAt int64
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, name, data, created_at FROM sheets WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.Name, &rec.Data, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.SheetRecord{}, storage.ErrNotFound
		}
		return storage.SheetRecord{}, fmt.Errorf("get sheet %d: %w", id, err)
	}
	rec.CreatedAt = time.UnixMilli(createdAt).UTC()
	return rec, nil
}

// SheetInfo is a listing row without the blob.
type SheetInfo struct {
	ID        int64
	Name      string
	Size      int64
	CreatedAt time.Time
}

// ListSheets returns stored sheets, newest first.
func (s *Store) ListSheets(ctx context.Context) ([]SheetInfo, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, name, size, created_at FROM sheets ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sheets: %w", err)
	}
	defer rows.Close()

	var out []SheetInfo
	for rows.Next() {
		var info SheetInfo
		var createdAt int64
		if err := rows.Scan(&info.ID, &info.Name, &info.Size, &createdAt); err != nil {
			return nil, fmt.Errorf("scan sheet: %w", err)
		}
		info.CreatedAt = time.UnixMilli(createdAt).UTC()
		out = append(out, info)
	}
	return out, rows.Err()
}
