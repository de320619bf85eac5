package toolcall

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Decorator wraps an Invoker with cross-cutting behavior (caching, logging,
// recovery). Decorators compose in onion order via Registry.Use; the first
// decorator is outermost.
type Decorator func(Invoker) Invoker

// invokerBase delegates Invoker and Streamer to the wrapped Invoker; used
// by decorator wrappers.
type invokerBase struct{ next Invoker }

func (b *invokerBase) Descriptor() Descriptor { return b.next.Descriptor() }

func (b *invokerBase) ExecuteSync(rawArgs string) (string, error) {
	return b.next.ExecuteSync(rawArgs)
}

func (b *invokerBase) Execute(ctx context.Context, rawArgs string) (string, error) {
	return b.next.Execute(ctx, rawArgs)
}

func (b *invokerBase) Stream(ctx context.Context, rawArgs string, yield func(string) error) error {
	if s, ok := b.next.(Streamer); ok {
		return s.Stream(ctx, rawArgs, yield)
	}
	return fmt.Errorf("%w: tool %q is not streamable", ErrInvalidOperation, b.next.Descriptor().Name)
}

// WithLogging returns a decorator that logs start, end, duration, and
// errors at Info level. The per-dispatch debug trace of raw arguments and
// results stays with the tool itself.
func WithLogging(logger *slog.Logger) Decorator {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Invoker) Invoker {
		return &loggingInvoker{invokerBase: invokerBase{next: next}, logger: logger}
	}
}

type loggingInvoker struct {
	invokerBase
	logger *slog.Logger
}

func (l *loggingInvoker) Execute(ctx context.Context, rawArgs string) (string, error) {
	name := l.next.Descriptor().Name
	l.logger.Info("tool start", "tool", name)
	start := time.Now()
	result, err := l.next.Execute(ctx, rawArgs)
	dur := time.Since(start)
	if err != nil {
		l.logger.Error("tool error", "tool", name, "duration", dur, "error", err)
		return "", err
	}
	l.logger.Info("tool end", "tool", name, "duration", dur)
	return result, nil
}

func (l *loggingInvoker) ExecuteSync(rawArgs string) (string, error) {
	name := l.next.Descriptor().Name
	l.logger.Info("tool start", "tool", name)
	start := time.Now()
	result, err := l.next.ExecuteSync(rawArgs)
	dur := time.Since(start)
	if err != nil {
		l.logger.Error("tool error", "tool", name, "duration", dur, "error", err)
		return "", err
	}
	l.logger.Info("tool end", "tool", name, "duration", dur)
	return result, nil
}

func (l *loggingInvoker) Stream(ctx context.Context, rawArgs string, yield func(string) error) error {
	name := l.next.Descriptor().Name
	l.logger.Info("tool start", "tool", name)
	start := time.Now()
	err := l.invokerBase.Stream(ctx, rawArgs, yield)
	dur := time.Since(start)
	if err != nil {
		l.logger.Error("tool error", "tool", name, "duration", dur, "error", err)
		return err
	}
	l.logger.Info("tool end", "tool", name, "duration", dur)
	return nil
}

// WithRecovery returns a decorator that recovers panics in the wrapped
// invoker and returns them as InvocationError.
func WithRecovery() Decorator {
	return func(next Invoker) Invoker {
		return &recoveryInvoker{invokerBase{next: next}}
	}
}

type recoveryInvoker struct{ invokerBase }

func (r *recoveryInvoker) Execute(ctx context.Context, rawArgs string) (result string, err error) {
	defer func() {
		if p := recover(); p != nil {
			result = ""
			err = &InvocationError{Tool: r.next.Descriptor().Name, Err: &panicError{p: p}}
		}
	}()
	return r.next.Execute(ctx, rawArgs)
}

func (r *recoveryInvoker) ExecuteSync(rawArgs string) (result string, err error) {
	defer func() {
		if p := recover(); p != nil {
			result = ""
			err = &InvocationError{Tool: r.next.Descriptor().Name, Err: &panicError{p: p}}
		}
	}()
	return r.next.ExecuteSync(rawArgs)
}

func (r *recoveryInvoker) Stream(ctx context.Context, rawArgs string, yield func(string) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &InvocationError{Tool: r.next.Descriptor().Name, Err: &panicError{p: p}}
		}
	}()
	return r.invokerBase.Stream(ctx, rawArgs, yield)
}
