package toolcall

import (
	"encoding/json"
	"reflect"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

var (
	customTypesMu sync.RWMutex
	customTypes   = make(map[reflect.Type]map[string]any)
)

// RegisterType maps a custom Go type to a JSON Schema type/format in
// generated signature schemas. emptyInstance is a value of the type to
// register (e.g. uuid.UUID{}); jsonType is the JSON Schema type (e.g.
// "string"); format is optional (e.g. "uuid"). Pointer parameters (*T) use
// the same mapping as T. Call RegisterType at application startup before
// the first New.
func RegisterType(emptyInstance any, jsonType, format string) {
	if emptyInstance == nil {
		panic("toolcall: RegisterType emptyInstance must not be nil")
	}
	if jsonType == "" {
		panic("toolcall: RegisterType jsonType must not be empty")
	}
	t := reflect.TypeOf(emptyInstance)
	s := map[string]any{"type": jsonType}
	if format != "" {
		s["format"] = format
	}
	customTypesMu.Lock()
	defer customTypesMu.Unlock()
	customTypes[t] = s
}

// lookupCustomType returns a copy of a registered mapping, if any.
func lookupCustomType(t reflect.Type) (map[string]any, bool) {
	customTypesMu.RLock()
	defer customTypesMu.RUnlock()
	s, ok := customTypes[t]
	if !ok {
		return nil, false
	}
	out := make(map[string]any, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out, true
}

// SchemaFor generates a full JSON Schema map for type T by reflection.
// Use it with WithParamSchema when a struct parameter deserves a richer
// advertisement than the conservative default mapping.
func SchemaFor[T any]() (map[string]any, error) {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var schemaMap map[string]any
	if err := json.Unmarshal(data, &schemaMap); err != nil {
		return nil, err
	}
	stripSchemaIDs(schemaMap)
	return schemaMap, nil
}

// signatureSchema emits the JSON Schema advertised for a parameter list:
// an object schema whose properties mirror the declared parameters in the
// conservative number/boolean/string mapping, with required = parameters
// that have no default. Output is deterministic for identical input.
func signatureSchema(params []param) (json.RawMessage, error) {
	props := make(map[string]any, len(params))
	var required []string
	for _, p := range params {
		prop := p.schema
		if prop == nil {
			prop = schemaType(p.typ)
		}
		if p.desc != "" {
			prop["description"] = p.desc
		}
		props[p.name] = prop
		if !p.hasDefault {
			required = append(required, p.name)
		}
	}
	doc := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		doc["required"] = required
	}
	return json.Marshal(doc)
}

// schemaType maps a Go type to a coarse JSON Schema fragment. The consuming
// model only needs a rough hint; the binder accepts strings for any scalar
// target anyway, so everything without a better mapping advertises as a
// string.
func schemaType(t reflect.Type) map[string]any {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if s, ok := lookupCustomType(t); ok {
		return s
	}
	switch t {
	case timeType:
		return map[string]any{"type": "string", "format": "date-time"}
	case durationType:
		return map[string]any{"type": "string"}
	}
	switch t.Kind() {
	case reflect.Bool:
		return map[string]any{"type": "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}
	case reflect.Slice, reflect.Array:
		return map[string]any{"type": "array", "items": schemaType(t.Elem())}
	default:
		return map[string]any{"type": "string"}
	}
}

// walkSchema recursively visits every map node in a schema tree (including
// $defs and definitions).
func walkSchema(schemaMap map[string]any, visit func(map[string]any)) {
	if schemaMap == nil {
		return
	}
	visit(schemaMap)
	for _, val := range schemaMap {
		switch v := val.(type) {
		case map[string]any:
			walkSchema(v, visit)
		case []any:
			for _, item := range v {
				if m, ok := item.(map[string]any); ok {
					walkSchema(m, visit)
				}
			}
		}
	}
}

// stripSchemaIDs removes id and $id so resolution does not depend on them.
func stripSchemaIDs(schemaMap map[string]any) {
	walkSchema(schemaMap, func(n map[string]any) {
		delete(n, "id")
		delete(n, "$id")
	})
}
