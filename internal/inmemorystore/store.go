package inmemorystore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/testgrid/internal/model"
	"github.com/specialistvlad/testgrid/internal/store"
)

// record is the stored form of one entity.
type record struct {
	seq    int64
	parent string
	data   []byte
}

// Collection is a sync.Map backed store.Collection.
type Collection[T model.Entity] struct {
	codec   store.Codec[T]
	records sync.Map // Key: entity id, Value: record
	seq     atomic.Int64
	writeMu sync.Mutex
}

// NewCollection creates an empty collection. newT returns a zero entity.
func NewCollection[T model.Entity](newT func() T) *Collection[T] {
	return &Collection[T]{codec: store.Codec[T]{New: newT}}
}

// Create implements store.Collection.
func (c *Collection[T]) Create(_ context.Context, e T) (T, error) {
	var zero T
	data, err := c.codec.Encode(e)
	if err != nil {
		return zero, err
	}
	rec := record{seq: c.seq.Add(1), parent: e.GetParentID(), data: data}
	if _, loaded := c.records.LoadOrStore(e.GetID(), rec); loaded {
		return zero, fmt.Errorf("entity %q already exists", e.GetID())
	}
	return c.codec.Decode(data)
}

// FindByID implements store.Collection.
func (c *Collection[T]) FindByID(_ context.Context, id string) (T, error) {
	v, ok := c.records.Load(id)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%q: %w", id, store.ErrNotFound)
	}
	return c.codec.Decode(v.(record).data)
}

// FindByParent implements store.Collection.
func (c *Collection[T]) FindByParent(_ context.Context, parentID string) ([]T, error) {
	return c.collect(func(r record) bool { return r.parent == parentID })
}

// List implements store.Collection.
func (c *Collection[T]) List(_ context.Context) ([]T, error) {
	return c.collect(func(record) bool { return true })
}

func (c *Collection[T]) collect(match func(record) bool) ([]T, error) {
	var recs []record
	c.records.Range(func(_, v any) bool {
		if r := v.(record); match(r) {
			recs = append(recs, r)
		}
		return true
	})
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })

	out := make([]T, 0, len(recs))
	for _, r := range recs {
		e, err := c.codec.Decode(r.data)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Update implements store.Collection.
func (c *Collection[T]) Update(_ context.Context, id string, fields map[string]any) (T, error) {
	var zero T
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	v, ok := c.records.Load(id)
	if !ok {
		return zero, fmt.Errorf("%q: %w", id, store.ErrNotFound)
	}
	rec := v.(record)
	data, e, err := c.codec.Merge(rec.data, fields)
	if err != nil {
		return zero, err
	}
	rec.data = data
	rec.parent = e.GetParentID()
	c.records.Store(id, rec)
	return e, nil
}

// Delete implements store.Collection.
func (c *Collection[T]) Delete(_ context.Context, id string) error {
	if _, ok := c.records.LoadAndDelete(id); !ok {
		return fmt.Errorf("%q: %w", id, store.ErrNotFound)
	}
	return nil
}

// Store is an in-memory store.Store.
type Store struct {
	tests     *Collection[*model.Test]
	campaigns *Collection[*model.Campaign]
	variables *Collection[*model.Variable]
	reports   *Collection[*model.Report]
}

// New creates a new, empty in-memory store.
func New() store.Store {
	return &Store{
		tests:     NewCollection(func() *model.Test { return new(model.Test) }),
		campaigns: NewCollection(func() *model.Campaign { return new(model.Campaign) }),
		variables: NewCollection(func() *model.Variable { return new(model.Variable) }),
		reports:   NewCollection(func() *model.Report { return new(model.Report) }),
	}
}

func (s *Store) Tests() store.Collection[*model.Test]         { return s.tests }
func (s *Store) Campaigns() store.Collection[*model.Campaign] { return s.campaigns }
func (s *Store) Variables() store.Collection[*model.Variable] { return s.variables }
func (s *Store) Reports() store.Collection[*model.Report]     { return s.reports }

// Close is a no-op.
func (s *Store) Close() error { return nil }
