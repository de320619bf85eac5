package toolcall

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// snapshotAndRestoreCustomTypes backs up the global custom type registry and
// restores it via t.Cleanup. Use in tests that call RegisterType; do not run
// such tests with t.Parallel().
func snapshotAndRestoreCustomTypes(t *testing.T) {
	t.Helper()
	customTypesMu.Lock()
	before := make(map[reflect.Type]map[string]any, len(customTypes))
	for k, v := range customTypes {
		before[k] = v
	}
	customTypesMu.Unlock()
	t.Cleanup(func() {
		customTypesMu.Lock()
		customTypes = before
		customTypesMu.Unlock()
	})
}

func TestSignatureSchema_Shape(t *testing.T) {
	params := []param{
		{name: "ticker", desc: "Stock ticker symbol", typ: reflect.TypeOf("")},
		{name: "limit", desc: "Max results", typ: reflect.TypeOf(0), hasDefault: true, def: reflect.ValueOf(10)},
		{name: "verbose", typ: reflect.TypeOf(false)},
	}
	out, err := signatureSchema(params)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "object",
		"properties": {
			"ticker": {"type": "string", "description": "Stock ticker symbol"},
			"limit": {"type": "number", "description": "Max results"},
			"verbose": {"type": "boolean"}
		},
		"required": ["ticker", "verbose"]
	}`, string(out))
}

func TestSignatureSchema_Deterministic(t *testing.T) {
	params := []param{
		{name: "b", typ: reflect.TypeOf("")},
		{name: "a", typ: reflect.TypeOf(0)},
		{name: "c", typ: reflect.TypeOf(false), hasDefault: true, def: reflect.ValueOf(false)},
	}
	first, err := signatureSchema(params)
	require.NoError(t, err)
	for range 5 {
		again, err := signatureSchema(params)
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestSchemaType_Mapping(t *testing.T) {
	tests := []struct {
		typ  reflect.Type
		want string
	}{
		{reflect.TypeOf(0), "number"},
		{reflect.TypeOf(int64(0)), "number"},
		{reflect.TypeOf(uint8(0)), "number"},
		{reflect.TypeOf(float32(0)), "number"},
		{reflect.TypeOf(false), "boolean"},
		{reflect.TypeOf(""), "string"},
		{reflect.TypeOf(struct{ X int }{}), "string"},
		{reflect.TypeOf(map[string]int(nil)), "string"},
		{reflect.TypeOf((*int)(nil)), "number"},
	}
	for _, tt := range tests {
		got := schemaType(tt.typ)
		assert.Equal(t, tt.want, got["type"], "type %s", tt.typ)
	}
}

func TestSchemaType_ArrayAndTime(t *testing.T) {
	arr := schemaType(reflect.TypeOf([]int(nil)))
	assert.Equal(t, "array", arr["type"])
	assert.Equal(t, map[string]any{"type": "number"}, arr["items"])

	ts := schemaType(timeType)
	assert.Equal(t, "string", ts["type"])
	assert.Equal(t, "date-time", ts["format"])

	assert.Equal(t, "string", schemaType(reflect.TypeOf(time.Duration(0)))["type"])
}

func TestRegisterType_CustomMapping(t *testing.T) {
	snapshotAndRestoreCustomTypes(t)
	type money struct{ cents int64 }
	RegisterType(money{}, "number", "decimal")

	got := schemaType(reflect.TypeOf(money{}))
	assert.Equal(t, "number", got["type"])
	assert.Equal(t, "decimal", got["format"])

	// Pointer parameters use the value type's mapping.
	got = schemaType(reflect.TypeOf(&money{}))
	assert.Equal(t, "number", got["type"])
}

func TestRegisterType_Panics(t *testing.T) {
	assert.Panics(t, func() { RegisterType(nil, "string", "") })
	assert.Panics(t, func() { RegisterType(struct{}{}, "", "") })
}

func TestSchemaFor_Struct(t *testing.T) {
	type Filters struct {
		Min int `json:"min"`
		Max int `json:"max,omitempty"`
	}
	m, err := SchemaFor[Filters]()
	require.NoError(t, err)
	require.NotNil(t, m)
	var found map[string]any
	walkSchema(m, func(n map[string]any) {
		if found == nil && n["properties"] != nil {
			found = n
		}
	})
	require.NotNil(t, found, "expected an object schema with properties")
	props := found["properties"].(map[string]any)
	assert.Contains(t, props, "min")
	assert.Contains(t, props, "max")
	// $id must be stripped so resolution never depends on it.
	walkSchema(m, func(n map[string]any) {
		assert.NotContains(t, n, "$id")
	})
}
