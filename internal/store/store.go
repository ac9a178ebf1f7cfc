// Package store defines the persistence boundary of the engine. The engine
// only talks to these interfaces; inmemorystore and sqlitestore provide
// the concrete backends.
package store

import (
	"context"
	"errors"

	"github.com/specialistvlad/testgrid/internal/model"
)

// ErrNotFound is returned when no entity has the requested id.
var ErrNotFound = errors.New("not found")

// Collection persists one entity type.
type Collection[T model.Entity] interface {
	// Create stores e, assigning a fresh id when e has none. Creating an
	// entity whose id already exists fails.
	Create(ctx context.Context, e T) (T, error)
	FindByID(ctx context.Context, id string) (T, error)
	// FindByParent returns the children of parentID in creation order.
	FindByParent(ctx context.Context, parentID string) ([]T, error)
	// List returns every entity in creation order.
	List(ctx context.Context) ([]T, error)
	// Update merges fields, keyed by JSON name, into the stored entity and
	// returns the result.
	Update(ctx context.Context, id string, fields map[string]any) (T, error)
	Delete(ctx context.Context, id string) error
}

// Store groups the collections the engine needs.
type Store interface {
	Tests() Collection[*model.Test]
	Campaigns() Collection[*model.Campaign]
	Variables() Collection[*model.Variable]
	Reports() Collection[*model.Report]
	Close() error
}
