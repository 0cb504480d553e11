// Package archive stores serialized values by name in sqlite files.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/serialize"
	"github.com/funvibe/rcore/internal/value"
)

const schema = `CREATE TABLE IF NOT EXISTS rvalues (
	name     TEXT PRIMARY KEY,
	kind     TEXT NOT NULL,
	data     BLOB NOT NULL,
	saved_at INTEGER NOT NULL
)`

// Store is one open archive file.
type Store struct {
	Path string
	db   *sql.DB
}

// Open opens or creates the archive at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", path, err)
	}
	// sqlite allows one writer; a single connection keeps writes ordered
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing archive %s: %w", path, err)
	}
	return &Store{Path: path, db: db}, nil
}

// Save stores v under name, replacing any earlier value.
func (s *Store) Save(ctx context.Context, name string, v value.Value) error {
	data, err := serialize.Marshal(v)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO rvalues (name, kind, data, saved_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET kind = excluded.kind, data = excluded.data, saved_at = excluded.saved_at`,
		name, v.Kind().String(), data, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("saving '%s' to %s: %w", name, s.Path, err)
	}
	return nil
}

// Load returns a fresh copy of the value stored under name.
func (s *Store) Load(ctx context.Context, name string) (value.Value, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM rvalues WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, diagnostics.Errorf(diagnostics.ErrR008, "object '%s' not found in archive '%s'", name, s.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("loading '%s' from %s: %w", name, s.Path, err)
	}
	return serialize.Unmarshal(data)
}

// List returns the stored names in sorted order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM rvalues ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", s.Path, err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// Delete removes name; removing a missing name is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM rvalues WHERE name = ?`, name)
	return err
}

func (s *Store) Close() error { return s.db.Close() }

// Pool keeps the archives a context has opened, keyed by absolute path, and closes
// them together when the context is destroyed.
type Pool struct {
	mu     sync.Mutex
	stores map[string]*Store
	logger zerolog.Logger
}

func NewPool(logger zerolog.Logger) *Pool {
	return &Pool{stores: map[string]*Store{}, logger: logger}
}

// Get returns the open store for path, opening it on first use.
func (p *Pool) Get(ctx context.Context, path string) (*Store, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.stores[abs]; ok {
		return s, nil
	}
	s, err := Open(ctx, abs)
	if err != nil {
		return nil, err
	}
	p.logger.Debug().Str("path", abs).Msg("archive opened")
	p.stores[abs] = s
	return s, nil
}

// CloseAll closes every store and reports the first failure.
func (p *Pool) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var first error
	for path, s := range p.stores {
		if err := s.Close(); err != nil {
			p.logger.Error().Err(err).Str("path", path).Msg("closing archive")
			if first == nil {
				first = err
			}
		}
		delete(p.stores, path)
	}
	return first
}

// Len is the number of open stores.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.stores)
}
