// Package sqlitestore is a store.Store persisted in a SQLite database
// through the pure Go modernc.org/sqlite driver.
//
// Every entity lives in one table keyed by (kind, id); the body column
// holds the JSON encoding of the entity and parent_id mirrors its parent
// for FindByParent.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/specialistvlad/testgrid/internal/model"
	"github.com/specialistvlad/testgrid/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS entities (
	seq       INTEGER PRIMARY KEY AUTOINCREMENT,
	kind      TEXT NOT NULL,
	id        TEXT NOT NULL,
	parent_id TEXT NOT NULL DEFAULT '',
	body      TEXT NOT NULL,
	UNIQUE (kind, id)
);
CREATE INDEX IF NOT EXISTS entities_parent ON entities (kind, parent_id);
`

// Store is a SQLite backed store.Store.
type Store struct {
	db        *sql.DB
	tests     *Collection[*model.Test]
	campaigns *Collection[*model.Campaign]
	variables *Collection[*model.Variable]
	reports   *Collection[*model.Report]
}

// Open opens (creating if needed) the database at dsn and applies the
// schema. ":memory:" gives a private in-memory database.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", dsn, err)
	}
	// One connection keeps ":memory:" databases shared and serializes
	// writers, which SQLite requires anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{
		db:        db,
		tests:     newCollection(db, "test", func() *model.Test { return new(model.Test) }),
		campaigns: newCollection(db, "campaign", func() *model.Campaign { return new(model.Campaign) }),
		variables: newCollection(db, "variable", func() *model.Variable { return new(model.Variable) }),
		reports:   newCollection(db, "report", func() *model.Report { return new(model.Report) }),
	}, nil
}

func (s *Store) Tests() store.Collection[*model.Test]         { return s.tests }
func (s *Store) Campaigns() store.Collection[*model.Campaign] { return s.campaigns }
func (s *Store) Variables() store.Collection[*model.Variable] { return s.variables }
func (s *Store) Reports() store.Collection[*model.Report]     { return s.reports }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Collection stores one entity kind.
type Collection[T model.Entity] struct {
	db    *sql.DB
	kind  string
	codec store.Codec[T]
}

func newCollection[T model.Entity](db *sql.DB, kind string, newT func() T) *Collection[T] {
	return &Collection[T]{db: db, kind: kind, codec: store.Codec[T]{New: newT}}
}

// Create implements store.Collection.
func (c *Collection[T]) Create(ctx context.Context, e T) (T, error) {
	var zero T
	data, err := c.codec.Encode(e)
	if err != nil {
		return zero, err
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO entities (kind, id, parent_id, body) VALUES (?, ?, ?, ?)`,
		c.kind, e.GetID(), e.GetParentID(), string(data))
	if err != nil {
		return zero, fmt.Errorf("create %s %q: %w", c.kind, e.GetID(), err)
	}
	return c.codec.Decode(data)
}

// FindByID implements store.Collection.
func (c *Collection[T]) FindByID(ctx context.Context, id string) (T, error) {
	var zero T
	var body string
	err := c.db.QueryRowContext(ctx,
		`SELECT body FROM entities WHERE kind = ? AND id = ?`, c.kind, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, fmt.Errorf("%s %q: %w", c.kind, id, store.ErrNotFound)
	}
	if err != nil {
		return zero, fmt.Errorf("find %s %q: %w", c.kind, id, err)
	}
	return c.codec.Decode([]byte(body))
}

// FindByParent implements store.Collection.
func (c *Collection[T]) FindByParent(ctx context.Context, parentID string) ([]T, error) {
	return c.query(ctx,
		`SELECT body FROM entities WHERE kind = ? AND parent_id = ? ORDER BY seq`, c.kind, parentID)
}

// List implements store.Collection.
func (c *Collection[T]) List(ctx context.Context) ([]T, error) {
	return c.query(ctx, `SELECT body FROM entities WHERE kind = ? ORDER BY seq`, c.kind)
}

func (c *Collection[T]) query(ctx context.Context, q string, args ...any) ([]T, error) {
	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", c.kind, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		e, err := c.codec.Decode([]byte(body))
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Update implements store.Collection.
func (c *Collection[T]) Update(ctx context.Context, id string, fields map[string]any) (T, error) {
	var zero T
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return zero, err
	}
	defer tx.Rollback()

	var body string
	err = tx.QueryRowContext(ctx,
		`SELECT body FROM entities WHERE kind = ? AND id = ?`, c.kind, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, fmt.Errorf("%s %q: %w", c.kind, id, store.ErrNotFound)
	}
	if err != nil {
		return zero, err
	}

	data, e, err := c.codec.Merge([]byte(body), fields)
	if err != nil {
		return zero, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE entities SET body = ?, parent_id = ? WHERE kind = ? AND id = ?`,
		string(data), e.GetParentID(), c.kind, id); err != nil {
		return zero, fmt.Errorf("update %s %q: %w", c.kind, id, err)
	}
	if err := tx.Commit(); err != nil {
		return zero, err
	}
	return e, nil
}

// Delete implements store.Collection.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM entities WHERE kind = ? AND id = ?`, c.kind, id)
	if err != nil {
		return fmt.Errorf("delete %s %q: %w", c.kind, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s %q: %w", c.kind, id, store.ErrNotFound)
	}
	return nil
}
