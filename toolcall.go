package toolcall

import (
	"context"
	"encoding/json"
)

// Kind classifies what a registered tool wraps.
type Kind int

const (
	// KindFunction is a plain Go function or bound method.
	KindFunction Kind = iota
	// KindAgentProxy is another agent exposed as a tool (handoff).
	KindAgentProxy
)

// String returns "function" or "agent_proxy".
func (k Kind) String() string {
	if k == KindAgentProxy {
		return "agent_proxy"
	}
	return "function"
}

// Descriptor is the registered metadata for a tool, independent of any
// particular call. It is created once at registration; FinalResult is the
// only field an orchestrator may change afterwards (Tool.SetFinalResult).
type Descriptor struct {
	Name        string
	Description string
	Kind        Kind
	Async       bool
	Streamable  bool
	FinalResult bool
	// Schema is the JSON Schema describing accepted arguments
	// (type "object", per-parameter properties, required list).
	Schema json.RawMessage
}

// Invoker is the execution surface of a registered tool. Implementations
// must be safe for concurrent use: a single Invoker may serve many in-flight
// calls.
type Invoker interface {
	// Descriptor returns a copy of the tool's registered metadata.
	Descriptor() Descriptor
	// ExecuteSync runs a synchronous tool inline. Calling it on an
	// asynchronous tool returns ErrInvalidOperation.
	ExecuteSync(rawArgs string) (string, error)
	// Execute runs the tool, honoring cooperative cancellation via ctx.
	// Synchronous tools run inline; asynchronous tools are raced against
	// ctx.Done() and a late completion is discarded.
	Execute(ctx context.Context, rawArgs string) (string, error)
}

// Streamer is implemented by streamable tools. Stream delivers intermediate
// chunks through yield; if yield returns an error the execution stops and
// that error is returned wrapped as ErrStreamAborted.
type Streamer interface {
	Stream(ctx context.Context, rawArgs string, yield func(chunk string) error) error
}

// Request is a single tool call as produced by a model-provider adapter.
type Request struct {
	CallID   string
	ToolName string
	// RawArgs is the argument text exactly as the model emitted it,
	// possibly malformed.
	RawArgs string
}

// Response is the outcome of one Request, ready to be re-injected into the
// conversation as a tool-result message.
type Response struct {
	CallID string
	Result string
	Err    error
}

// Text returns the result on success or the error message on failure,
// which is what adapters send back to the model either way.
func (r Response) Text() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	return r.Result
}

// Failed reports whether the call produced an error.
func (r Response) Failed() bool { return r.Err != nil }
