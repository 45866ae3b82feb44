// Package store persists gateway connection targets (address, port,
// credential) in a local SQLite database. It is the concrete form of the
// persistence collaborator that hands the client its targets.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"gatewayctl/internal/domain"
)

// SQLiteTargetStore implements target persistence using SQLite.
type SQLiteTargetStore struct {
	db *sql.DB
}

// NewSQLiteTargetStore opens (or creates) a SQLite database at dbPath
// and runs the schema migration.
func NewSQLiteTargetStore(dbPath string) (*SQLiteTargetStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open target db: %w", err)
	}
	// WAL mode for better concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate target db: %w", err)
	}
	return &SQLiteTargetStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS targets (
			name       TEXT PRIMARY KEY,
			host       TEXT NOT NULL,
			port       INTEGER NOT NULL,
			token      TEXT NOT NULL,
			role       TEXT NOT NULL DEFAULT '',
			scopes     TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`)
	return err
}

// Close closes the underlying database connection.
func (s *SQLiteTargetStore) Close() error {
	return s.db.Close()
}

// Get returns a target by name.
func (s *SQLiteTargetStore) Get(_ context.Context, name string) (*domain.Target, error) {
	row := s.db.QueryRow(
		"SELECT name, host, port, token, role, scopes, created_at, updated_at FROM targets WHERE name = ?", name,
	)
	t, err := scanTarget(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", domain.ErrTargetNotFound, name)
	}
	return t, err
}

// Create inserts a new target. Names are unique.
func (s *SQLiteTargetStore) Create(_ context.Context, t *domain.Target) error {
	if err := t.Validate(); err != nil {
		return err
	}
	scopesJSON, err := json.Marshal(scopesOrEmpty(t.Scopes))
	if err != nil {
		return fmt.Errorf("marshal target scopes: %w", err)
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	var exists int
	if err := s.db.QueryRow("SELECT COUNT(1) FROM targets WHERE name = ?", t.Name).Scan(&exists); err != nil {
		return err
	}
	if exists > 0 {
		return fmt.Errorf("%w: %s", domain.ErrTargetDuplicate, t.Name)
	}

	_, err = s.db.Exec(
		"INSERT INTO targets (name, host, port, token, role, scopes, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		t.Name, t.Host, t.Port, t.Token, t.Role, string(scopesJSON),
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	return err
}

// Update overwrites an existing target.
func (s *SQLiteTargetStore) Update(_ context.Context, t *domain.Target) error {
	if err := t.Validate(); err != nil {
		return err
	}
	scopesJSON, err := json.Marshal(scopesOrEmpty(t.Scopes))
	if err != nil {
		return fmt.Errorf("marshal target scopes: %w", err)
	}
	now := time.Now().UTC()
	t.UpdatedAt = now
	res, err := s.db.Exec(
		"UPDATE targets SET host = ?, port = ?, token = ?, role = ?, scopes = ?, updated_at = ? WHERE name = ?",
		t.Host, t.Port, t.Token, t.Role, string(scopesJSON),
		now.Format(time.RFC3339Nano), t.Name,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrTargetNotFound, t.Name)
	}
	return nil
}

// Delete removes a target by name.
func (s *SQLiteTargetStore) Delete(_ context.Context, name string) error {
	res, err := s.db.Exec("DELETE FROM targets WHERE name = ?", name)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrTargetNotFound, name)
	}
	return nil
}

// List returns all targets ordered by creation time.
func (s *SQLiteTargetStore) List(_ context.Context) ([]*domain.Target, error) {
	rows, err := s.db.Query("SELECT name, host, port, token, role, scopes, created_at, updated_at FROM targets ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []*domain.Target
	for rows.Next() {
		t, err := scanTarget(rows.Scan)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

func scopesOrEmpty(scopes []string) []string {
	if scopes == nil {
		return []string{}
	}
	return scopes
}

func scanTarget(scan func(dest ...any) error) (*domain.Target, error) {
	var t domain.Target
	var scopesStr, createdStr, updatedStr string
	if err := scan(&t.Name, &t.Host, &t.Port, &t.Token, &t.Role, &scopesStr, &createdStr, &updatedStr); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(scopesStr), &t.Scopes); err != nil {
		return nil, fmt.Errorf("unmarshal target scopes: %w", err)
	}
	t.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	t.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedStr)
	return &t, nil
}
