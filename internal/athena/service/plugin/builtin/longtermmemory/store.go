package longtermmemory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // Register SQLite3 driver
)

const TableMemories = "memories"

// ErrNotFound is returned when a key has no entry.
var ErrNotFound = errors.New("key does not exist")

// Entry is one remembered item.
type Entry struct {
	Key       string
	Desc      string
	Data      string
	CreatedAt time.Time
}

// Store is the sqlite table behind the plugin.
type Store struct {
	db *sql.DB
}

// OpenStore opens (and creates) the database at path.
func OpenStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS ` + TableMemories + ` (
		key TEXT PRIMARY KEY,
		desc TEXT NOT NULL,
		data TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Put inserts or replaces an entry.
func (s *Store) Put(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO `+TableMemories+` (key, desc, data, created_at) VALUES (?, ?, ?, ?)`,
		e.Key, e.Desc, e.Data, e.CreatedAt.UnixMilli())
	return err
}

// Delete removes an entry. It returns ErrNotFound if nothing was removed.
func (s *Store) Delete(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+TableMemories+` WHERE key = ?`, key)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns the entry stored under key.
func (s *Store) Get(ctx context.Context, key string) (Entry, error) {
	var (
		e       Entry
		created int64
	)
	row := s.db.QueryRowContext(ctx, `SELECT key, desc, data, created_at FROM `+TableMemories+` WHERE key = ?`, key)
	if err := row.Scan(&e.Key, &e.Desc, &e.Data, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, ErrNotFound
		}
		return e, err
	}
	e.CreatedAt = time.UnixMilli(created)
	return e, nil
}

// List returns every entry without its data, oldest first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, desc, created_at FROM `+TableMemories+` ORDER BY created_at, key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			created int64
		)
		if err := rows.Scan(&e.Key, &e.Desc, &created); err != nil {
			return nil, err
		}
		e.CreatedAt = time.UnixMilli(created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
