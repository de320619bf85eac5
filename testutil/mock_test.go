package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayefimov/toolcall"
)

func TestMockInvoker_Defaults(t *testing.T) {
	m := &MockInvoker{}
	assert.Equal(t, "mock", m.Descriptor().Name)

	res, err := m.Execute(context.Background(), `{}`)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestMockInvoker_SyncFallsBackToExecute(t *testing.T) {
	m := &MockInvoker{
		ExecuteFn: func(_ context.Context, rawArgs string) (string, error) {
			return "saw " + rawArgs, nil
		},
	}
	res, err := m.ExecuteSync(`{"a":1}`)
	require.NoError(t, err)
	assert.Equal(t, `saw {"a":1}`, res)
}

func TestNewTestRegistry(t *testing.T) {
	m := &MockInvoker{
		DescVal: toolcall.Descriptor{Name: "greet"},
		ExecuteFn: func(context.Context, string) (string, error) {
			return "hello", nil
		},
	}
	reg := NewTestRegistry(m)
	resp := reg.Handle(context.Background(), toolcall.Request{ToolName: "greet"})
	require.NoError(t, resp.Err)
	assert.Equal(t, "hello", resp.Result)
}
