package toolcall

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// DefaultMaxArgLen is the default upper bound on raw argument text, applied
// before any parsing as a guard against pathological model output.
const DefaultMaxArgLen = 10000

// param is one declared parameter of a callable, in declaration order.
type param struct {
	name       string
	desc       string
	typ        reflect.Type
	hasDefault bool
	def        reflect.Value // valid only when hasDefault
	schema     map[string]any
}

// binder turns raw argument text into a positional argument vector aligned
// 1:1 with the declared parameter order. It is pure and reentrant; one
// binder serves all in-flight calls of its tool.
type binder struct {
	params    []param
	maxRawLen int
	sch       *jsonschema.Schema // nil unless WithValidation
}

func (b *binder) bind(raw string) ([]reflect.Value, error) {
	if strings.TrimSpace(raw) == "" {
		raw = "{}"
	}
	if len(raw) > b.maxRawLen {
		return nil, &BindError{Raw: raw, Reason: fmt.Sprintf("argument text length %d exceeds limit %d", len(raw), b.maxRawLen)}
	}
	root, err := parseStrict(Repair(raw))
	if err != nil {
		return nil, &BindError{Raw: raw, Reason: "arguments are not valid JSON", Err: err}
	}

	obj, ok := root.(map[string]any)
	if !ok {
		// Models sometimes emit a bare value instead of {"param": value};
		// accept it when there is exactly one parameter to feed.
		if len(b.params) == 1 {
			v, cerr := coerceValue(root, b.params[0].typ)
			if cerr != nil {
				return nil, b.wrapCoercion(raw, b.params[0].name, cerr)
			}
			return []reflect.Value{v}, nil
		}
		return nil, &BindError{Raw: raw, Reason: fmt.Sprintf("expected a JSON object, got %s", jsonKindName(root))}
	}

	if err := validateArgs(b.sch, root); err != nil {
		return nil, &BindError{Raw: raw, Reason: err.Error(), Err: err}
	}

	out := make([]reflect.Value, len(b.params))
	for i, p := range b.params {
		v, present := obj[p.name]
		if !present {
			if !p.hasDefault {
				return nil, &BindError{Raw: raw, Reason: fmt.Sprintf("missing required parameter %q", p.name)}
			}
			out[i] = p.def
			continue
		}
		cv, cerr := coerceValue(v, p.typ)
		if cerr != nil {
			return nil, b.wrapCoercion(raw, p.name, cerr)
		}
		out[i] = cv
	}
	return out, nil
}

func (b *binder) wrapCoercion(raw, paramName string, err error) error {
	var ce *CoercionError
	if errors.As(err, &ce) {
		ce.Param = paramName
	}
	return &BindError{Raw: raw, Reason: err.Error(), Err: err}
}

// parseStrict decodes s as a single JSON document with UseNumber, rejecting
// trailing content.
func parseStrict(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON value")
	}
	return v, nil
}

func jsonKindName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	default:
		return fmt.Sprintf("%T", v)
	}
}
