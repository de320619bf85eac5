package toolcall

import (
	"context"
	"errors"
)

// Agent is a conversational agent that can be exposed as a tool (handoff).
// Run receives the delegated input text and returns the agent's final
// answer.
type Agent interface {
	Run(ctx context.Context, input string) (string, error)
}

// NewAgentTool wraps an agent as a tool: KindAgentProxy, always
// asynchronous, with a single required "input" string parameter unless the
// options declare one explicitly. The returned tool holds the agent
// reference itself; there is no process-wide agent registry. Registration
// is explicit and scoped to whoever registers the tool.
func NewAgentTool(name, description string, agent Agent, opts ...ToolOption) (*Tool, error) {
	if agent == nil {
		return nil, errors.New("agent must not be nil")
	}
	var o toolOptions
	for _, opt := range opts {
		opt(&o)
	}
	if len(o.params) == 0 {
		o.params = []paramDecl{{name: "input", desc: "Input forwarded to the delegate agent"}}
	}
	o.forceAsync = true
	fn := func(ctx context.Context, input string) (string, error) {
		return agent.Run(ctx, input)
	}
	return newTool(name, description, fn, KindAgentProxy, o)
}
