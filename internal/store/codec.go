package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/specialistvlad/testgrid/internal/model"
)

// Codec encodes entities of one type to JSON and back. Backends store the
// encoded form so that callers never share memory with the store.
type Codec[T model.Entity] struct {
	New func() T
}

// NewID returns a fresh entity id.
func NewID() string { return uuid.NewString() }

// Encode assigns an id to e when it has none and returns its JSON form.
func (c Codec[T]) Encode(e T) ([]byte, error) {
	if e.GetID() == "" {
		e.SetID(NewID())
	}
	return json.Marshal(e)
}

// Decode parses data into a new entity.
func (c Codec[T]) Decode(data []byte) (T, error) {
	e := c.New()
	if err := json.Unmarshal(data, e); err != nil {
		var zero T
		return zero, fmt.Errorf("decode entity: %w", err)
	}
	return e, nil
}

// Merge overlays fields onto the encoded entity and returns the new
// encoding together with the decoded entity. The id cannot be changed and
// unknown fields are rejected.
func (c Codec[T]) Merge(data []byte, fields map[string]any) ([]byte, T, error) {
	var zero T
	if _, ok := fields["id"]; ok {
		return nil, zero, errors.New("field 'id' cannot be updated")
	}

	doc := map[string]any{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, zero, fmt.Errorf("decode entity: %w", err)
	}
	for k, v := range fields {
		doc[k] = v
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		return nil, zero, fmt.Errorf("encode fields: %w", err)
	}

	e := c.New()
	dec := json.NewDecoder(bytes.NewReader(merged))
	dec.DisallowUnknownFields()
	if err := dec.Decode(e); err != nil {
		return nil, zero, fmt.Errorf("invalid update: %s", strings.TrimPrefix(err.Error(), "json: "))
	}
	out, err := json.Marshal(e)
	if err != nil {
		return nil, zero, err
	}
	return out, e, nil
}
