package toolcall

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Registry holds registered tools and handles tool-call requests with
// timeout, concurrency limiting, and optional panic recovery.
type Registry struct {
	mu         sync.Mutex
	tools      map[string]Invoker // decorated, used by Handle
	rawTools   map[string]Invoker // undecorated, used by Use to re-wrap from scratch
	decorators []Decorator
	sem        chan struct{}
	opts       registryOptions
	done       chan struct{}
	running    sync.WaitGroup
}

// NewRegistry creates a Registry with the given options.
func NewRegistry(opts ...RegistryOption) *Registry {
	o := registryOptions{
		timeout:        5 * time.Second,
		maxConcurrency: 10,
		recoverPanics:  true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	var sem chan struct{}
	if o.maxConcurrency > 0 {
		sem = make(chan struct{}, o.maxConcurrency)
	}
	return &Registry{
		tools:    make(map[string]Invoker),
		rawTools: make(map[string]Invoker),
		sem:      sem,
		opts:     o,
		done:     make(chan struct{}),
	}
}

// Register adds a tool under its descriptor name. Stored decorators (see
// Use) are applied before registration. A tool with the same name is
// replaced. Safe for concurrent use with Handle and other Register calls.
func (r *Registry) Register(t Invoker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := t.Descriptor().Name
	r.rawTools[name] = t
	for i := len(r.decorators) - 1; i >= 0; i-- {
		t = r.decorators[i](t)
	}
	r.tools[name] = t
}

// Use stores the given decorators and reapplies them from scratch to all
// registered tools (onion order: first decorator is outermost). Tools
// registered after Use also get them. Calling Use again replaces the chain
// and rewraps from raw tools, avoiding double-wrapping.
func (r *Registry) Use(decorators ...Decorator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decorators = decorators
	for name, raw := range r.rawTools {
		t := raw
		for i := len(decorators) - 1; i >= 0; i-- {
			t = decorators[i](t)
		}
		r.tools[name] = t
	}
}

// Get returns the tool with the given name (after decorators), or
// (nil, false) when not registered.
func (r *Registry) Get(name string) (Invoker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tools[name]
	return t, ok
}

// Descriptors returns the descriptors of all registered tools, sorted by
// name for deterministic advertisement to the model.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Descriptor, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.Descriptor())
	}
	slices.SortFunc(out, func(a, b Descriptor) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// Handle runs one tool-call request end to end and returns the response the
// adapter re-injects into the conversation. All failures come back in
// Response.Err; Handle itself never panics when recovery is enabled. A
// request without a CallID is assigned a fresh one.
func (r *Registry) Handle(ctx context.Context, req Request) (resp Response) {
	if req.CallID == "" {
		req.CallID = uuid.NewString()
	}
	resp.CallID = req.CallID

	r.mu.Lock()
	select {
	case <-r.done:
		r.mu.Unlock()
		resp.Err = ErrShutdown
		return resp
	default:
	}
	tool, ok := r.tools[req.ToolName]
	if !ok {
		r.mu.Unlock()
		resp.Err = fmt.Errorf("%w: %q", ErrToolNotFound, req.ToolName)
		return resp
	}
	r.running.Add(1)
	r.mu.Unlock()
	defer r.running.Done()

	if err := r.acquireSemaphore(ctx); err != nil {
		resp.Err = fmt.Errorf("%w: %v", ErrCancelled, err)
		return resp
	}
	defer r.releaseSemaphore()

	if r.opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.timeout)
		defer cancel()
	}

	start := time.Now()
	// The after hook always observes the final response, including one
	// produced by panic recovery (that defer runs first).
	defer func() {
		if r.opts.onAfter != nil {
			r.opts.onAfter(ctx, req, resp, time.Since(start))
		}
	}()
	if r.opts.recoverPanics {
		defer func() {
			if p := recover(); p != nil {
				resp.Result = ""
				resp.Err = &InvocationError{Tool: req.ToolName, Err: &panicError{p: p}}
			}
		}()
	}

	if r.opts.onBefore != nil {
		r.opts.onBefore(ctx, req)
	}

	resp.Result, resp.Err = tool.Execute(ctx, req.RawArgs)
	return resp
}

// HandleBatch runs all requests in parallel and returns responses in
// request order. Failures stay local to their response; one failing call
// never cancels the others.
func (r *Registry) HandleBatch(ctx context.Context, reqs []Request) []Response {
	out := make([]Response, len(reqs))
	var g errgroup.Group
	for i, req := range reqs {
		g.Go(func() error {
			out[i] = r.Handle(ctx, req)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (r *Registry) acquireSemaphore(ctx context.Context) error {
	if r.sem == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	select {
	case r.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Registry) releaseSemaphore() {
	if r.sem != nil {
		<-r.sem
	}
}

// Shutdown closes the registry for new calls and waits for in-flight
// executions or ctx to cancel.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	select {
	case <-r.done:
		r.mu.Unlock()
		return nil
	default:
		close(r.done)
	}
	r.mu.Unlock()
	done := make(chan struct{})
	go func() {
		r.running.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
