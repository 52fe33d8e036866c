package ontology

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"
)

const schemaClasses = `
CREATE TABLE IF NOT EXISTS classes (
    name TEXT PRIMARY KEY,
    parent TEXT
)`

const indexClassesParent = `CREATE INDEX IF NOT EXISTS idx_classes_parent ON classes(parent)`

const pragmaBusyTimeout = `PRAGMA busy_timeout=5000`

// queryAncestors walks the parent chain of a class. UNION (not UNION ALL)
// stops the recursion on cycles.
const queryAncestors = `
WITH RECURSIVE ancestry(name) AS (
    SELECT parent FROM classes WHERE name = ? AND parent IS NOT NULL
    UNION
    SELECT c.parent FROM classes c JOIN ancestry a ON c.name = a.name
    WHERE c.parent IS NOT NULL
)
SELECT name FROM ancestry`

// SQLiteResolver resolves ancestry from a class hierarchy stored in SQLite
type SQLiteResolver struct {
	db *sql.DB
}

// NewSQLite opens (or creates) a class hierarchy database at dbPath.
// Use ":memory:" for a throwaway store.
func NewSQLite(ctx context.Context, dbPath string) (*SQLiteResolver, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// :memory: databases are per-connection
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to sqlite: %w", err)
	}

	for _, stmt := range []string{pragmaBusyTimeout, schemaClasses, indexClassesParent} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}

	return &SQLiteResolver{db: db}, nil
}

// Open opens the hierarchy at path. A .yaml or .yml file is loaded into an
// in-memory store with ImportYAML; anything else must be an existing SQLite
// database.
func Open(ctx context.Context, path string) (*SQLiteResolver, error) {
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		r, err := NewSQLite(ctx, ":memory:")
		if err != nil {
			return nil, err
		}
		if _, err := r.ImportYAML(ctx, path); err != nil {
			r.Close()
			return nil, err
		}
		return r, nil
	default:
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("opening ontology: %w", err)
		}
		return NewSQLite(ctx, path)
	}
}

// Close closes the SQLite connection
func (r *SQLiteResolver) Close() error {
	return r.db.Close()
}

// AddClass registers a class and its direct parent. An empty parent marks a
// root class. Re-adding a class replaces its parent.
func (r *SQLiteResolver) AddClass(ctx context.Context, name, parent string) error {
	var p any
	if parent != "" {
		p = parent
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO classes (name, parent) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET parent = excluded.parent`,
		name, p)
	if err != nil {
		return fmt.Errorf("inserting class %q: %w", name, err)
	}
	return nil
}

// AncestorsContext returns every transitive parent of leaf
func (r *SQLiteResolver) AncestorsContext(ctx context.Context, leaf string) ([]string, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM classes WHERE name = ?`, leaf).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("looking up class %q: %w", leaf, err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, leaf)
	}

	rows, err := r.db.QueryContext(ctx, queryAncestors, leaf)
	if err != nil {
		return nil, fmt.Errorf("querying ancestry of %q: %w", leaf, err)
	}
	defer rows.Close()

	var ancestors []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning ancestor: %w", err)
		}
		ancestors = append(ancestors, name)
	}
	return ancestors, rows.Err()
}

// Ancestors implements Resolver
func (r *SQLiteResolver) Ancestors(leaf string) ([]string, error) {
	return r.AncestorsContext(context.Background(), leaf)
}

// ImportYAML loads a hierarchy file mapping each class to its direct parent:
//
//	protein: polypeptide
//	polypeptide: biological entity
//	biological entity: named thing
//	named thing:
//
// Classes are added in one transaction.
func (r *SQLiteResolver) ImportYAML(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading hierarchy: %w", err)
	}
	var parents map[string]string
	if err := yaml.Unmarshal(data, &parents); err != nil {
		return 0, fmt.Errorf("parsing hierarchy %s: %w", path, err)
	}

	names := make([]string, 0, len(parents))
	for name := range parents {
		names = append(names, name)
	}
	sort.Strings(names)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, name := range names {
		var p any
		if parent := parents[name]; parent != "" {
			p = parent
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO classes (name, parent) VALUES (?, ?)
			 ON CONFLICT(name) DO UPDATE SET parent = excluded.parent`,
			name, p); err != nil {
			return 0, fmt.Errorf("inserting class %q: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing hierarchy: %w", err)
	}
	return len(names), nil
}
