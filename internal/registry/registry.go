package registry

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/testgrid/internal/action"
	"github.com/specialistvlad/testgrid/internal/ctxlog"
	"github.com/specialistvlad/testgrid/internal/reporter"
)

// Categorized is implemented by modules that declare their plugin category
// up front, so a failure before any registration is attributed correctly.
type Categorized interface {
	Category() Category
}

// snapshot is an immutable view of the registered plugins.
type snapshot struct {
	entries  map[string]*entry
	errors   []LoadError
	loadedAt time.Time
}

// Registry holds the plugins of a single application instance.
type Registry struct {
	modules []Module

	// mu serialises writers; readers only touch snap.
	mu   sync.Mutex
	snap atomic.Pointer[snapshot]
}

// New creates an empty registry over the given module catalog. Call
// Discover to populate it.
func New(modules ...Module) *Registry {
	r := &Registry{modules: modules}
	r.snap.Store(&snapshot{entries: map[string]*entry{}})
	return r
}

// Discover registers every module of the catalog into a fresh snapshot and
// publishes it. Module failures are recorded and skipped; duplicate keys
// abort the discovery and leave the current snapshot in place.
func (r *Registry) Discover(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Plugin discovery started.", "modules", len(r.modules))

	r.mu.Lock()
	defer r.mu.Unlock()

	next := &snapshot{entries: make(map[string]*entry), loadedAt: time.Now()}
	var dupErrs []error

	for _, m := range r.modules {
		t, lerr := loadModule(m)
		if lerr != nil {
			logger.Warn("Plugin module failed to load, skipping.", "candidate", lerr.Candidate, "category", lerr.Category, "error", lerr.Message)
			next.errors = append(next.errors, *lerr)
			continue
		}
		for _, d := range t.dups {
			dupErrs = append(dupErrs, d)
		}
		for _, key := range t.order {
			e := t.entries[key]
			if prev, exists := next.entries[key]; exists {
				dupErrs = append(dupErrs, &DuplicateKeyError{Key: key, First: prev.desc.Module, Second: e.desc.Module})
				continue
			}
			logger.Debug("Registering plugin.", "key", key, "category", e.desc.Category, "module", e.desc.Module)
			next.entries[key] = e
		}
	}

	if len(dupErrs) > 0 {
		return fmt.Errorf("plugin discovery failed: %w", errors.Join(dupErrs...))
	}

	r.snap.Store(next)
	logger.Info("🔌 Plugins discovered.", "count", len(next.entries), "load_errors", len(next.errors))
	return nil
}

// Reload discards every registered plugin and load error and runs discovery
// again. Readers keep working against the previous snapshot until the new
// one is published.
func (r *Registry) Reload(ctx context.Context) error {
	ctxlog.FromContext(ctx).Info("🔄 Reloading plugins...")
	return r.Discover(ctx)
}

func loadModule(m Module) (t *Table, lerr *LoadError) {
	name := moduleName(m)
	t = newTable(name)
	if c, ok := m.(Categorized); ok {
		t.category = c.Category()
	}

	defer func() {
		if rec := recover(); rec != nil {
			lerr = &LoadError{
				Candidate: name,
				Category:  t.category,
				Message:   fmt.Sprintf("panic: %v", rec),
				Stack:     string(debug.Stack()),
				Timestamp: time.Now(),
			}
			t = nil
		}
	}()

	if err := m.Register(t); err != nil {
		return nil, &LoadError{
			Candidate: name,
			Category:  t.category,
			Message:   err.Error(),
			Stack:     string(debug.Stack()),
			Timestamp: time.Now(),
		}
	}
	return t, nil
}

// Get returns a new instance of the action registered under key.
func (r *Registry) Get(key string) (action.Action, bool) {
	e, ok := r.snap.Load().entries[normalizeKey(key)]
	if !ok || e.newAction == nil {
		return nil, false
	}
	return e.newAction(), true
}

// GetReport returns a new instance of the report plugin registered under key.
func (r *Registry) GetReport(key string) (reporter.Reporter, bool) {
	e, ok := r.snap.Load().entries[normalizeKey(key)]
	if !ok || e.newReporter == nil {
		return nil, false
	}
	return e.newReporter(), true
}

// Describe returns the descriptor of key.
func (r *Registry) Describe(key string) (Descriptor, bool) {
	e, ok := r.snap.Load().entries[normalizeKey(key)]
	if !ok {
		return Descriptor{}, false
	}
	return e.desc, true
}

// Inputs returns the input fields of the plugin registered under key.
func (r *Registry) Inputs(key string) ([]action.Field, bool) {
	e, ok := r.snap.Load().entries[normalizeKey(key)]
	if !ok {
		return nil, false
	}
	if e.newAction != nil {
		return e.newAction().Inputs(), true
	}
	return e.newReporter().Inputs(), true
}

// List returns the descriptors of all plugins sorted by category and key.
func (r *Registry) List() []Descriptor {
	s := r.snap.Load()
	out := make([]Descriptor, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.desc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Keys returns the sorted keys of one category.
func (r *Registry) Keys(c Category) []string {
	var keys []string
	for _, d := range r.List() {
		if d.Category == c {
			keys = append(keys, d.Key)
		}
	}
	return keys
}

// Errors returns the load errors of the current snapshot.
func (r *Registry) Errors() []LoadError {
	return append([]LoadError(nil), r.snap.Load().errors...)
}

// Register adds a single action outside of discovery. It fails if the key
// is taken. The next Reload discards manual registrations.
func (r *Registry) Register(factory func() action.Action) error {
	t := newTable("manual")
	t.Action(factory)
	return r.merge(t)
}

// RegisterReport adds a single report plugin outside of discovery.
func (r *Registry) RegisterReport(factory func() reporter.Reporter) error {
	t := newTable("manual")
	t.Report(factory)
	return r.merge(t)
}

func (r *Registry) merge(t *Table) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snap.Load()
	next := &snapshot{entries: make(map[string]*entry, len(cur.entries)+len(t.entries)), errors: cur.errors, loadedAt: cur.loadedAt}
	for k, e := range cur.entries {
		next.entries[k] = e
	}
	for _, key := range t.order {
		if prev, exists := next.entries[key]; exists {
			return &DuplicateKeyError{Key: key, First: prev.desc.Module, Second: t.module}
		}
		next.entries[key] = t.entries[key]
	}
	r.snap.Store(next)
	return nil
}

// Unregister removes key. It reports whether the key was registered.
func (r *Registry) Unregister(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key = normalizeKey(key)
	cur := r.snap.Load()
	if _, ok := cur.entries[key]; !ok {
		return false
	}
	next := &snapshot{entries: make(map[string]*entry, len(cur.entries)), errors: cur.errors, loadedAt: cur.loadedAt}
	for k, e := range cur.entries {
		if k != key {
			next.entries[k] = e
		}
	}
	r.snap.Store(next)
	return true
}
