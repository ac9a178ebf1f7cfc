package hcl_adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/specialistvlad/testgrid/internal/ctxlog"
	"github.com/specialistvlad/testgrid/internal/model"
	"github.com/specialistvlad/testgrid/internal/store"
)

// SyncStats counts what Apply changed.
type SyncStats struct {
	Created int
	Updated int
}

// Apply writes the definitions into st. Existing entities with the same id
// are overwritten field by field and keep their creation time; entities
// absent from d are left alone.
func (d *Definitions) Apply(ctx context.Context, st store.Store) (SyncStats, error) {
	var stats SyncStats
	for _, v := range d.Variables {
		if err := upsert(ctx, st.Variables(), v, &stats); err != nil {
			return stats, fmt.Errorf("variable %s: %w", v.ID, err)
		}
	}
	for _, c := range d.Campaigns {
		if err := upsert(ctx, st.Campaigns(), c, &stats); err != nil {
			return stats, fmt.Errorf("campaign %s: %w", c.ID, err)
		}
	}
	for _, t := range d.Tests {
		if err := upsert(ctx, st.Tests(), t, &stats); err != nil {
			return stats, fmt.Errorf("test %s: %w", t.ID, err)
		}
	}
	ctxlog.FromContext(ctx).Info("📚 Definitions synced.", "created", stats.Created, "updated", stats.Updated)
	return stats, nil
}

func upsert[T model.Entity](ctx context.Context, c store.Collection[T], e T, stats *SyncStats) error {
	_, err := c.FindByID(ctx, e.GetID())
	if errors.Is(err, store.ErrNotFound) {
		setCreatedAt(e, time.Now().UTC())
		if _, err := c.Create(ctx, e); err != nil {
			return err
		}
		stats.Created++
		return nil
	}
	if err != nil {
		return err
	}

	fields, err := replacementFields(e)
	if err != nil {
		return err
	}
	if _, err := c.Update(ctx, e.GetID(), fields); err != nil {
		return err
	}
	stats.Updated++
	return nil
}

// setCreatedAt fills a zero CreatedAt field, when the entity has one.
func setCreatedAt(e any, now time.Time) {
	rv := reflect.ValueOf(e)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return
	}
	f := rv.Elem().FieldByName("CreatedAt")
	if f.IsValid() && f.CanSet() && f.Type() == reflect.TypeOf(time.Time{}) && f.Interface().(time.Time).IsZero() {
		f.Set(reflect.ValueOf(now))
	}
}

// replacementFields returns every JSON field of e except id and created_at.
// Fields that e omits are sent as null so that they are cleared.
func replacementFields(e any) (map[string]any, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	for _, name := range jsonNames(reflect.TypeOf(e)) {
		if _, ok := fields[name]; !ok {
			fields[name] = nil
		}
	}
	delete(fields, "id")
	delete(fields, "created_at")
	return fields, nil
}

func jsonNames(t reflect.Type) []string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	var names []string
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if name == "" {
			name = f.Name
		}
		names = append(names, name)
	}
	return names
}
