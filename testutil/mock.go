// Package testutil provides test helpers for toolcall (e.g. MockInvoker).
package testutil

import (
	"context"

	"github.com/ayefimov/toolcall"
)

// MockInvoker is a configurable Invoker implementation for tests.
type MockInvoker struct {
	DescVal   toolcall.Descriptor
	ExecuteFn func(ctx context.Context, rawArgs string) (string, error)
	SyncFn    func(rawArgs string) (string, error)
}

// Descriptor returns DescVal, defaulting the name to "mock".
func (m *MockInvoker) Descriptor() toolcall.Descriptor {
	d := m.DescVal
	if d.Name == "" {
		d.Name = "mock"
	}
	return d
}

// Execute runs ExecuteFn if set, otherwise returns an empty result.
func (m *MockInvoker) Execute(ctx context.Context, rawArgs string) (string, error) {
	if m.ExecuteFn != nil {
		return m.ExecuteFn(ctx, rawArgs)
	}
	return "", nil
}

// ExecuteSync runs SyncFn if set, falling back to ExecuteFn with a
// background context.
func (m *MockInvoker) ExecuteSync(rawArgs string) (string, error) {
	if m.SyncFn != nil {
		return m.SyncFn(rawArgs)
	}
	return m.Execute(context.Background(), rawArgs)
}

// Ensure MockInvoker implements Invoker.
var _ toolcall.Invoker = (*MockInvoker)(nil)
