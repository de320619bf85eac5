package toolcall

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"time"
)

var (
	timeType     = reflect.TypeOf(time.Time{})
	durationType = reflect.TypeOf(time.Duration(0))
	rawMsgType   = reflect.TypeOf(json.RawMessage(nil))
	emptyAnyType = reflect.TypeOf((*any)(nil)).Elem()
	timeLayouts  = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}
)

// coerceValue converts one parsed JSON value into target type t. Values come
// from a json.Decoder with UseNumber, so the input is one of nil, bool,
// json.Number, string, []any, or map[string]any. When no viable conversion
// exists the result is a *CoercionError (parameter name filled by the
// binder).
//
// Integer targets fed from fractional numbers go through json.Number.Int64
// first and otherwise fall back to Go's default float-to-int conversion;
// the exact rounding there is unspecified beyond that default.
func coerceValue(v any, t reflect.Type) (reflect.Value, error) {
	// JSON null: absent value for any nilable target, error otherwise.
	if v == nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map:
			return reflect.Zero(t), nil
		default:
			return reflect.Value{}, &CoercionError{Target: t, Value: v}
		}
	}

	switch t {
	case emptyAnyType:
		return reflect.ValueOf(v), nil
	case rawMsgType:
		b, err := json.Marshal(v)
		if err != nil {
			return reflect.Value{}, &CoercionError{Target: t, Value: v, Err: err}
		}
		return reflect.ValueOf(json.RawMessage(b)), nil
	case timeType:
		return coerceTime(v, t)
	case durationType:
		return coerceDuration(v, t)
	}

	if t.Kind() == reflect.Pointer {
		elem, err := coerceValue(v, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(elem)
		return p, nil
	}

	switch t.Kind() {
	case reflect.Bool:
		return coerceBool(v, t)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return coerceInt(v, t)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return coerceUint(v, t)
	case reflect.Float32, reflect.Float64:
		return coerceFloat(v, t)
	case reflect.String:
		return coerceString(v, t)
	case reflect.Slice, reflect.Array:
		return coerceSequence(v, t)
	default:
		// Structural fallback: re-serialize the parsed value and let the
		// target type's own unmarshaling take over (structs, maps, custom
		// Unmarshalers).
		return coerceStructural(v, t)
	}
}

func coerceBool(v any, t reflect.Type) (reflect.Value, error) {
	switch x := v.(type) {
	case bool:
		return reflect.ValueOf(x).Convert(t), nil
	case string:
		b, err := strconv.ParseBool(x)
		if err != nil {
			return reflect.Value{}, &CoercionError{Target: t, Value: v, Err: err}
		}
		return reflect.ValueOf(b).Convert(t), nil
	}
	return reflect.Value{}, &CoercionError{Target: t, Value: v}
}

func coerceInt(v any, t reflect.Type) (reflect.Value, error) {
	var n int64
	switch x := v.(type) {
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			f, ferr := x.Float64()
			if ferr != nil {
				return reflect.Value{}, &CoercionError{Target: t, Value: v, Err: err}
			}
			i = int64(f)
		}
		n = i
	case string:
		i, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(x, 64)
			if ferr != nil {
				return reflect.Value{}, &CoercionError{Target: t, Value: v, Err: err}
			}
			i = int64(f)
		}
		n = i
	default:
		return reflect.Value{}, &CoercionError{Target: t, Value: v}
	}
	out := reflect.New(t).Elem()
	if out.OverflowInt(n) {
		return reflect.Value{}, &CoercionError{Target: t, Value: v, Err: fmt.Errorf("value %d overflows %s", n, t)}
	}
	out.SetInt(n)
	return out, nil
}

func coerceUint(v any, t reflect.Type) (reflect.Value, error) {
	var n uint64
	switch x := v.(type) {
	case json.Number:
		i, err := strconv.ParseUint(x.String(), 10, 64)
		if err != nil {
			return reflect.Value{}, &CoercionError{Target: t, Value: v, Err: err}
		}
		n = i
	case string:
		i, err := strconv.ParseUint(x, 10, 64)
		if err != nil {
			return reflect.Value{}, &CoercionError{Target: t, Value: v, Err: err}
		}
		n = i
	default:
		return reflect.Value{}, &CoercionError{Target: t, Value: v}
	}
	out := reflect.New(t).Elem()
	if out.OverflowUint(n) {
		return reflect.Value{}, &CoercionError{Target: t, Value: v, Err: fmt.Errorf("value %d overflows %s", n, t)}
	}
	out.SetUint(n)
	return out, nil
}

func coerceFloat(v any, t reflect.Type) (reflect.Value, error) {
	var f float64
	switch x := v.(type) {
	case json.Number:
		g, err := x.Float64()
		if err != nil {
			return reflect.Value{}, &CoercionError{Target: t, Value: v, Err: err}
		}
		f = g
	case string:
		g, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return reflect.Value{}, &CoercionError{Target: t, Value: v, Err: err}
		}
		f = g
	default:
		return reflect.Value{}, &CoercionError{Target: t, Value: v}
	}
	out := reflect.New(t).Elem()
	if out.OverflowFloat(f) {
		return reflect.Value{}, &CoercionError{Target: t, Value: v, Err: fmt.Errorf("value %v overflows %s", f, t)}
	}
	out.SetFloat(f)
	return out, nil
}

func coerceString(v any, t reflect.Type) (reflect.Value, error) {
	switch x := v.(type) {
	case string:
		return reflect.ValueOf(x).Convert(t), nil
	case json.Number:
		return reflect.ValueOf(x.String()).Convert(t), nil
	case bool:
		return reflect.ValueOf(strconv.FormatBool(x)).Convert(t), nil
	}
	return reflect.Value{}, &CoercionError{Target: t, Value: v}
}

func coerceTime(v any, t reflect.Type) (reflect.Value, error) {
	s, ok := v.(string)
	if !ok {
		return reflect.Value{}, &CoercionError{Target: t, Value: v}
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return reflect.ValueOf(ts), nil
		}
	}
	return reflect.Value{}, &CoercionError{Target: t, Value: v, Err: fmt.Errorf("unrecognized time format %q", s)}
}

func coerceDuration(v any, t reflect.Type) (reflect.Value, error) {
	switch x := v.(type) {
	case string:
		d, err := time.ParseDuration(x)
		if err != nil {
			return reflect.Value{}, &CoercionError{Target: t, Value: v, Err: err}
		}
		return reflect.ValueOf(d), nil
	case json.Number:
		// Bare numbers are seconds; models rarely emit nanoseconds.
		f, err := x.Float64()
		if err != nil {
			return reflect.Value{}, &CoercionError{Target: t, Value: v, Err: err}
		}
		return reflect.ValueOf(time.Duration(f * float64(time.Second))), nil
	}
	return reflect.Value{}, &CoercionError{Target: t, Value: v}
}

// coerceSequence fills a slice or fixed-size array target element by
// element. Non-array JSON input is an error; a fixed array also rejects a
// length mismatch.
func coerceSequence(v any, t reflect.Type) (reflect.Value, error) {
	items, ok := v.([]any)
	if !ok {
		return reflect.Value{}, &CoercionError{Target: t, Value: v}
	}
	if t.Kind() == reflect.Array {
		if len(items) != t.Len() {
			return reflect.Value{}, &CoercionError{Target: t, Value: v, Err: fmt.Errorf("expected %d elements, got %d", t.Len(), len(items))}
		}
		out := reflect.New(t).Elem()
		for i, item := range items {
			ev, err := coerceValue(item, t.Elem())
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(ev)
		}
		return out, nil
	}
	out := reflect.MakeSlice(t, 0, len(items))
	for _, item := range items {
		ev, err := coerceValue(item, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		out = reflect.Append(out, ev)
	}
	return out, nil
}

func coerceStructural(v any, t reflect.Type) (reflect.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return reflect.Value{}, &CoercionError{Target: t, Value: v, Err: err}
	}
	p := reflect.New(t)
	if err := json.Unmarshal(b, p.Interface()); err != nil {
		return reflect.Value{}, &CoercionError{Target: t, Value: v, Err: err}
	}
	return p.Elem(), nil
}
