package action

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleFields = []Field{
	{Name: "host", Type: FieldText, Label: "Host", Required: true},
	{Name: "port", Type: FieldNumber, Label: "Port", Default: 22},
	{Name: "method", Type: FieldSelect, Label: "Method", Options: []string{"GET", "PUT"}},
	{Name: "verbose", Type: FieldCheckbox, Label: "Verbose"},
}

func TestSchema_DescribesFields(t *testing.T) {
	s := Schema("sample", sampleFields)

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "object", doc["type"])
	assert.Equal(t, []any{"host"}, doc["required"])
	props := doc["properties"].(map[string]any)
	assert.Contains(t, props, "host")
	assert.Contains(t, props, "port")
	assert.Contains(t, props, "method")
}

func TestValidateSchema(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantField string
	}{
		{name: "valid", cfg: Config{"host": "h", "port": 22, "method": "get", "verbose": true}},
		{name: "numeric string port", cfg: Config{"host": "h", "port": "2222"}},
		{name: "blank optional select", cfg: Config{"host": "h", "method": ""}},
		{name: "non numeric port", cfg: Config{"host": "h", "port": "abc"}, wantField: "port"},
		{name: "unknown method", cfg: Config{"host": "h", "method": "DELETE"}, wantField: "method"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateSchema("sample", sampleFields, tc.cfg)
			if tc.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.wantField, verr.Field)
		})
	}
}

func TestValidateSchema_ReusesCompiledSchema(t *testing.T) {
	// --- Act ---
	first, err := compiled("cached", sampleFields)
	require.NoError(t, err)
	second, err := compiled("cached", sampleFields)
	require.NoError(t, err)
	other, err := compiled("cached", sampleFields[:1])
	require.NoError(t, err)

	// --- Assert ---
	assert.Same(t, first, second)
	assert.NotSame(t, first, other, "a different field list gets its own schema")

	err = ValidateSchema("cached", sampleFields[:1], Config{"host": "h", "port": "abc"})
	assert.NoError(t, err, "port is not a field of the shorter list")
	err = ValidateSchema("cached", sampleFields, Config{"host": "h", "port": "abc"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "port", ve.Field)
}
