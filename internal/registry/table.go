package registry

import (
	"fmt"
	"path"
	"reflect"
	"strings"

	"github.com/specialistvlad/testgrid/internal/action"
	"github.com/specialistvlad/testgrid/internal/reporter"
)

// Module is the interface that all plugin modules implement to be registered.
type Module interface {
	Register(t *Table) error
}

// Named is implemented by plugins that declare their registration key.
// Plugins without it get a key derived from their type name.
type Named interface {
	PluginName() string
}

type entry struct {
	desc        Descriptor
	newAction   func() action.Action
	newReporter func() reporter.Reporter
}

// Table collects the registrations of a single module.
type Table struct {
	module   string
	category Category
	entries  map[string]*entry
	order    []string
	dups     []*DuplicateKeyError
}

func newTable(module string) *Table {
	return &Table{module: module, category: CategoryAction, entries: make(map[string]*entry)}
}

// Action registers an action factory. The key is taken from the instance.
func (t *Table) Action(factory func() action.Action) {
	sample := factory()
	info := sample.Info()
	t.add(&entry{
		desc: Descriptor{
			Key:         KeyOf(sample),
			Category:    CategoryAction,
			Type:        fmt.Sprintf("%T", sample),
			Version:     info.Version,
			Author:      info.Author,
			Description: info.Description,
		},
		newAction: factory,
	})
}

// Report registers a report plugin factory.
func (t *Table) Report(factory func() reporter.Reporter) {
	sample := factory()
	info := sample.Info()
	key := sample.Format()
	if n, ok := sample.(Named); ok {
		key = n.PluginName()
	}
	t.add(&entry{
		desc: Descriptor{
			Key:         normalizeKey(key),
			Category:    CategoryReport,
			Type:        fmt.Sprintf("%T", sample),
			Version:     info.Version,
			Author:      info.Author,
			Description: info.Description,
		},
		newReporter: factory,
	})
}

func (t *Table) add(e *entry) {
	e.desc.Module = t.module
	t.category = e.desc.Category
	if _, exists := t.entries[e.desc.Key]; exists {
		t.dups = append(t.dups, &DuplicateKeyError{Key: e.desc.Key, First: t.module, Second: t.module})
		return
	}
	t.entries[e.desc.Key] = e
	t.order = append(t.order, e.desc.Key)
}

// KeyOf returns the registration key of a plugin instance.
func KeyOf(p any) string {
	if n, ok := p.(Named); ok && n.PluginName() != "" {
		return normalizeKey(n.PluginName())
	}
	return DeriveKey(reflect.TypeOf(p).String())
}

var keySuffixes = []string{"_action", "_plugin", "_report", "action", "plugin", "reporter", "report"}

// DeriveKey turns a Go type name such as "*ssh.SSHAction" or
// "ftp_action" into a plugin key: package qualifier and pointer marker are
// dropped, a known suffix is stripped, underscores are removed and the
// result is lower-cased.
func DeriveKey(typeName string) string {
	name := strings.TrimLeft(typeName, "*")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	lower := strings.ToLower(name)
	for _, suffix := range keySuffixes {
		if strings.HasSuffix(lower, suffix) && len(lower) > len(suffix) {
			lower = strings.TrimSuffix(lower, suffix)
			break
		}
	}
	return strings.ReplaceAll(lower, "_", "")
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// moduleName names a module after its package, plus its type name when the
// type is not the conventional "Module".
func moduleName(m Module) string {
	t := reflect.TypeOf(m)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := path.Base(t.PkgPath())
	if t.Name() != "" && t.Name() != "Module" {
		name += "." + t.Name()
	}
	return name
}
