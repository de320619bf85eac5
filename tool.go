package toolcall

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"
)

var (
	ctxType   = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType   = reflect.TypeOf((*error)(nil)).Elem()
	yieldType = reflect.TypeOf((func(string) error)(nil))
)

// Tool owns one callable and its invocation metadata. It is built once at
// registration (reflection happens only here, never on the call path) and is
// safe for concurrent use; calls share no mutable state except the
// FinalResult flag.
type Tool struct {
	mu   sync.Mutex // guards desc.FinalResult
	desc Descriptor

	fn       reflect.Value
	bind     *binder
	takesCtx bool
	streams  bool
	retVal   bool
	retErr   bool
	logger   *slog.Logger
}

var (
	_ Invoker  = (*Tool)(nil)
	_ Streamer = (*Tool)(nil)
)

// New builds a Tool from a Go function. The function may optionally take a
// leading context.Context and, for streamable tools, a trailing
// func(string) error yield; every data parameter in between must be declared
// with WithParam or WithOptionalParam, in order. Return shapes: none, error,
// value, or (value, error); stream functions return at most an error.
//
// A tool is asynchronous when its function takes a context, streams, or
// WithAsync is set. Registration fails fast on a declaration/signature
// mismatch or an incoercible default value.
func New(name, description string, fn any, opts ...ToolOption) (*Tool, error) {
	var o toolOptions
	for _, opt := range opts {
		opt(&o)
	}
	return newTool(name, description, fn, KindFunction, o)
}

func newTool(name, description string, fn any, kind Kind, o toolOptions) (*Tool, error) {
	if name == "" {
		return nil, errors.New("tool name must not be empty")
	}
	if description == "" {
		return nil, fmt.Errorf("tool %q: description must not be empty", name)
	}
	fv := reflect.ValueOf(fn)
	if !fv.IsValid() || fv.Kind() != reflect.Func {
		return nil, fmt.Errorf("tool %q: callable must be a function, got %T", name, fn)
	}
	ft := fv.Type()
	if ft.IsVariadic() {
		return nil, fmt.Errorf("tool %q: variadic functions are not supported", name)
	}

	takesCtx := ft.NumIn() > 0 && ft.In(0) == ctxType
	first := 0
	if takesCtx {
		first = 1
	}
	last := ft.NumIn()
	streams := last > first && ft.In(last-1) == yieldType
	if streams {
		last--
	}

	retVal, retErr, err := classifyReturns(ft, streams)
	if err != nil {
		return nil, fmt.Errorf("tool %q: %w", name, err)
	}

	dataParams := last - first
	if len(o.params) != dataParams {
		return nil, fmt.Errorf("tool %q: %d parameter declarations for %d function parameters", name, len(o.params), dataParams)
	}

	params := make([]param, dataParams)
	seen := make(map[string]bool, dataParams)
	for i, decl := range o.params {
		if decl.name == "" {
			return nil, fmt.Errorf("tool %q: parameter %d has an empty name", name, i)
		}
		if seen[decl.name] {
			return nil, fmt.Errorf("tool %q: duplicate parameter %q", name, decl.name)
		}
		seen[decl.name] = true
		p := param{
			name:   decl.name,
			desc:   decl.desc,
			typ:    ft.In(first + i),
			schema: o.paramSchemas[decl.name],
		}
		if decl.hasDefault {
			dv, err := coerceDefault(decl.def, p.typ)
			if err != nil {
				return nil, fmt.Errorf("tool %q: default for parameter %q: %w", name, decl.name, err)
			}
			p.hasDefault = true
			p.def = dv
		}
		params[i] = p
	}
	for pname := range o.paramSchemas {
		if !seen[pname] {
			return nil, fmt.Errorf("tool %q: schema override for undeclared parameter %q", name, pname)
		}
	}

	schemaJSON, err := signatureSchema(params)
	if err != nil {
		return nil, fmt.Errorf("tool %q: build signature schema: %w", name, err)
	}

	b := &binder{params: params, maxRawLen: o.maxArgLen}
	if b.maxRawLen <= 0 {
		b.maxRawLen = DefaultMaxArgLen
	}
	if o.validate {
		sch, err := compileSignature(schemaJSON)
		if err != nil {
			return nil, fmt.Errorf("tool %q: %w", name, err)
		}
		b.sch = sch
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Tool{
		desc: Descriptor{
			Name:        name,
			Description: description,
			Kind:        kind,
			Async:       takesCtx || streams || o.forceAsync,
			Streamable:  streams,
			FinalResult: o.finalResult,
			Schema:      schemaJSON,
		},
		fn:       fv,
		bind:     b,
		takesCtx: takesCtx,
		streams:  streams,
		retVal:   retVal,
		retErr:   retErr,
		logger:   logger,
	}, nil
}

func classifyReturns(ft reflect.Type, streams bool) (retVal, retErr bool, err error) {
	switch ft.NumOut() {
	case 0:
	case 1:
		if ft.Out(0) == errType {
			retErr = true
		} else {
			retVal = true
		}
	case 2:
		if ft.Out(1) != errType {
			return false, false, errors.New("second return value must be error")
		}
		retVal, retErr = true, true
	default:
		return false, false, errors.New("too many return values")
	}
	if streams && retVal {
		return false, false, errors.New("stream functions must return at most an error")
	}
	return retVal, retErr, nil
}

// coerceDefault converts a declared default value to the parameter type,
// reusing the coercion table via a JSON round trip so defaults behave
// exactly like model-supplied values.
func coerceDefault(def any, t reflect.Type) (reflect.Value, error) {
	if def == nil {
		return coerceValue(nil, t)
	}
	dv := reflect.ValueOf(def)
	if dv.Type() == t {
		return dv, nil
	}
	b, err := json.Marshal(def)
	if err != nil {
		return reflect.Value{}, err
	}
	v, err := parseStrict(string(b))
	if err != nil {
		return reflect.Value{}, err
	}
	return coerceValue(v, t)
}

// Descriptor returns a copy of the tool's registered metadata.
func (t *Tool) Descriptor() Descriptor {
	t.mu.Lock()
	defer t.mu.Unlock()
	d := t.desc
	d.Schema = append(json.RawMessage(nil), t.desc.Schema...)
	return d
}

// SetFinalResult toggles whether this tool's result ends the agent turn.
// The rest of the descriptor is immutable after registration.
func (t *Tool) SetFinalResult(final bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.desc.FinalResult = final
}

// ExecuteSync runs a synchronous tool inline. Asynchronous tools (context,
// streaming, or WithAsync) return ErrInvalidOperation.
func (t *Tool) ExecuteSync(rawArgs string) (string, error) {
	if t.desc.Async {
		return "", fmt.Errorf("%w: tool %q is asynchronous", ErrInvalidOperation, t.desc.Name)
	}
	return t.invoke(context.Background(), rawArgs, nil)
}

// Execute runs the tool. Synchronous tools run inline and return as an
// already-completed result. Asynchronous tools run in a goroutine raced
// against ctx.Done(); when cancellation wins, Execute returns ErrCancelled
// and the callable's own completion, if it arrives later, is discarded.
// Cancellation is cooperative: in-flight host code that ignores its context
// is not force-aborted.
func (t *Tool) Execute(ctx context.Context, rawArgs string) (string, error) {
	if !t.desc.Async {
		return t.invoke(ctx, rawArgs, nil)
	}
	type outcome struct {
		result string
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := t.invoke(ctx, rawArgs, nil)
		done <- outcome{result, err}
	}()
	select {
	case o := <-done:
		return o.result, o.err
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	}
}

// Stream runs a streamable tool, delivering chunks through yield as they
// are produced. Non-streamable tools return ErrInvalidOperation. A yield
// error stops the execution and is returned wrapped as ErrStreamAborted.
func (t *Tool) Stream(ctx context.Context, rawArgs string, yield func(chunk string) error) error {
	if !t.streams {
		return fmt.Errorf("%w: tool %q is not streamable", ErrInvalidOperation, t.desc.Name)
	}
	_, err := t.invoke(ctx, rawArgs, yield)
	return err
}

// invoke is the unified dispatch path: bind, call, stringify. Binding
// errors pass through untouched; callable errors are wrapped as
// InvocationError with the original preserved as cause. The debug trace of
// (tool, args) and result/error is the only side effect.
func (t *Tool) invoke(ctx context.Context, rawArgs string, yield func(string) error) (string, error) {
	name := t.desc.Name
	args, err := t.bind.bind(rawArgs)
	if err != nil {
		t.logger.Debug("tool binding failed", "tool", name, "args", rawArgs, "error", err)
		return "", err
	}
	t.logger.Debug("tool dispatch", "tool", name, "args", rawArgs)

	in := make([]reflect.Value, 0, len(args)+2)
	if t.takesCtx {
		in = append(in, reflect.ValueOf(ctx))
	}
	in = append(in, args...)

	var collected strings.Builder
	var yieldErr error
	if t.streams {
		deliver := yield
		if deliver == nil {
			deliver = func(chunk string) error {
				collected.WriteString(chunk)
				return nil
			}
		}
		wrapped := func(chunk string) error {
			if err := deliver(chunk); err != nil {
				yieldErr = fmt.Errorf("%w: %v", ErrStreamAborted, err)
				return yieldErr
			}
			return nil
		}
		in = append(in, reflect.ValueOf(wrapped))
	}

	outs, callErr := t.call(in)
	if callErr != nil {
		t.logger.Debug("tool failed", "tool", name, "error", callErr)
		return "", callErr
	}

	if t.retErr {
		if e, _ := outs[len(outs)-1].Interface().(error); e != nil {
			if errors.Is(e, ErrStreamAborted) {
				t.logger.Debug("tool stream aborted", "tool", name, "error", e)
				return "", e
			}
			werr := &InvocationError{Tool: name, Err: e}
			t.logger.Debug("tool failed", "tool", name, "error", werr)
			return "", werr
		}
	}
	if yieldErr != nil {
		t.logger.Debug("tool stream aborted", "tool", name, "error", yieldErr)
		return "", yieldErr
	}

	var result string
	switch {
	case t.streams:
		result = collected.String()
	case t.retVal:
		result, err = stringifyResult(outs[0], name)
		if err != nil {
			t.logger.Debug("tool failed", "tool", name, "error", err)
			return "", err
		}
	}
	t.logger.Debug("tool result", "tool", name, "result", result)
	return result, nil
}

// call runs the callable with panic recovery. Async tools execute on a
// spawned goroutine, so a panic left unrecovered here would escape the
// registry's own recovery and kill the process.
func (t *Tool) call(in []reflect.Value) (outs []reflect.Value, err error) {
	defer func() {
		if p := recover(); p != nil {
			outs = nil
			err = &InvocationError{Tool: t.desc.Name, Err: &panicError{p: p}}
		}
	}()
	return t.fn.Call(in), nil
}

// stringifyResult unifies a callable's return value into the single textual
// result the model loop consumes.
func stringifyResult(v reflect.Value, tool string) (string, error) {
	if !v.IsValid() {
		return "", nil
	}
	switch x := v.Interface().(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case json.RawMessage:
		return string(x), nil
	case fmt.Stringer:
		return x.String(), nil
	}
	b, err := json.Marshal(v.Interface())
	if err != nil {
		return "", &InvocationError{Tool: tool, Err: fmt.Errorf("marshal result: %w", err)}
	}
	return string(b), nil
}
