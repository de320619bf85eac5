package toolcall

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// paramDecl is a parameter declaration supplied at registration. Go
// reflection cannot recover parameter names, so every data parameter of the
// callable must be declared, in order.
type paramDecl struct {
	name       string
	desc       string
	hasDefault bool
	def        any
}

// toolOptions hold optional tool settings.
type toolOptions struct {
	params       []paramDecl
	paramSchemas map[string]map[string]any
	validate     bool
	maxArgLen    int
	logger       *slog.Logger
	forceAsync   bool
	finalResult  bool
}

// ToolOption configures a tool (e.g. WithParam, WithValidation).
type ToolOption func(*toolOptions)

// WithParam declares the next required parameter: its name as advertised to
// the model and a human description for the signature schema. Declarations
// must match the callable's data parameters in order and count.
func WithParam(name, description string) ToolOption {
	return func(o *toolOptions) {
		o.params = append(o.params, paramDecl{name: name, desc: description})
	}
}

// WithOptionalParam declares the next parameter with a default value. The
// parameter is omitted from the schema's required list, and def is used
// whenever the model leaves it out. def must be coercible to the parameter's
// declared Go type; New fails otherwise.
func WithOptionalParam(name, description string, def any) ToolOption {
	return func(o *toolOptions) {
		o.params = append(o.params, paramDecl{name: name, desc: description, hasDefault: true, def: def})
	}
}

// WithParamSchema overrides the advertised schema fragment for one declared
// parameter (e.g. a SchemaFor result for a struct parameter). The map is
// deep-copied; the caller's copy is never mutated.
func WithParamSchema(name string, schema map[string]any) ToolOption {
	return func(o *toolOptions) {
		if o.paramSchemas == nil {
			o.paramSchemas = make(map[string]map[string]any)
		}
		o.paramSchemas[name] = deepCopySchema(schema)
	}
}

// WithValidation compiles the signature schema at registration and validates
// every parsed argument object against it before coercion.
func WithValidation() ToolOption {
	return func(o *toolOptions) {
		o.validate = true
	}
}

// WithMaxArgLen overrides the raw argument length guard (DefaultMaxArgLen).
func WithMaxArgLen(n int) ToolOption {
	return func(o *toolOptions) {
		o.maxArgLen = n
	}
}

// WithLogger sets the logger for the tool's dispatch trace. Defaults to
// slog.Default.
func WithLogger(logger *slog.Logger) ToolOption {
	return func(o *toolOptions) {
		o.logger = logger
	}
}

// WithAsync forces the tool to be classified as asynchronous even when its
// function does not take a context.Context.
func WithAsync() ToolOption {
	return func(o *toolOptions) {
		o.forceAsync = true
	}
}

// WithFinalResult marks the tool's result as ending the agent turn.
func WithFinalResult() ToolOption {
	return func(o *toolOptions) {
		o.finalResult = true
	}
}

// deepCopySchema copies a schema map through a JSON round trip so later
// mutations never leak across tools.
func deepCopySchema(schema map[string]any) map[string]any {
	if schema == nil {
		return nil
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

// RegistryOption configures a Registry.
type RegistryOption func(*registryOptions)

type registryOptions struct {
	timeout        time.Duration
	maxConcurrency int
	recoverPanics  bool
	onBefore       func(context.Context, Request)
	onAfter        func(context.Context, Request, Response, time.Duration)
}

// WithDefaultTimeout sets the default execution deadline per handled call.
// Pass 0 to disable.
func WithDefaultTimeout(d time.Duration) RegistryOption {
	return func(o *registryOptions) {
		o.timeout = d
	}
}

// WithMaxConcurrency limits concurrent tool executions (semaphore).
// Pass 0 or negative to disable the semaphore (unlimited concurrency).
func WithMaxConcurrency(n int) RegistryOption {
	return func(o *registryOptions) {
		o.maxConcurrency = n
	}
}

// WithRecoverPanics enables panic recovery in Handle (returns an
// InvocationError wrapping the panic).
func WithRecoverPanics(enable bool) RegistryOption {
	return func(o *registryOptions) {
		o.recoverPanics = enable
	}
}

// WithOnBeforeHandle sets a hook called before each handled call.
func WithOnBeforeHandle(fn func(context.Context, Request)) RegistryOption {
	return func(o *registryOptions) {
		o.onBefore = fn
	}
}

// WithOnAfterHandle sets a hook called after each handled call with the
// final response and duration.
func WithOnAfterHandle(fn func(context.Context, Request, Response, time.Duration)) RegistryOption {
	return func(o *registryOptions) {
		o.onAfter = fn
	}
}
