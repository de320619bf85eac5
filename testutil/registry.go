package testutil

import (
	"time"

	"github.com/ayefimov/toolcall"
)

// NewTestRegistry returns a Registry with a long timeout and panic recovery
// enabled, suitable for tests.
func NewTestRegistry(tools ...toolcall.Invoker) *toolcall.Registry {
	reg := toolcall.NewRegistry(
		toolcall.WithDefaultTimeout(30*time.Second),
		toolcall.WithRecoverPanics(true),
	)
	for _, t := range tools {
		reg.Register(t)
	}
	return reg
}
