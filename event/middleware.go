package event

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const MetaKey = "__meta__"

// PanicError is a recovered panic. Trace holds the goroutine stack at the
// point of recovery.
type PanicError struct {
	Value any
	Stack []string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func (e *PanicError) Trace() []string { return e.Stack }

// NewPanicError captures the current stack. Call it from the deferred
// function that recovered v.
func NewPanicError(v any) *PanicError {
	if err, ok := v.(*PanicError); ok {
		return err
	}
	return &PanicError{Value: v, Stack: StackLines(debug.Stack())}
}

// StackLines splits a debug.Stack dump into trimmed, non-empty lines.
func StackLines(stack []byte) []string {
	var lines []string
	for _, line := range strings.Split(string(stack), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// Recover turns a panic further down the pipeline into a *PanicError.
func Recover() Middleware {
	return MiddlewareFunc(func(ctx context.Context, ev *Event, next Handler) (result any, err error) {
		defer func() {
			if v := recover(); v != nil {
				result, err = nil, NewPanicError(v)
			}
		}()
		return next.Handle(ctx, ev)
	})
}

// MetaFunc describes the invocation for the payload's __meta__ object.
type MetaFunc func(ev *Event) map[string]any

// DefaultMeta describes the invocation from its Execution Context.
func DefaultMeta(ev *Event) map[string]any {
	c := ev.Context
	if c == nil {
		return map[string]any{}
	}
	return map[string]any{
		"request_id":       c.AwsRequestID(),
		"function_name":    c.FunctionName(),
		"function_version": c.FunctionVersion(),
		"invoked_arn":      c.InvokedFunctionArn(),
		"trace_id":         c.TraceID(),
		"deadline_ms":      c.DeadlineEpochMillis(),
	}
}

// Meta injects a __meta__ object into JSON object payloads that do not carry
// one yet. Other payloads pass through untouched.
func Meta(f MetaFunc) Middleware {
	if f == nil {
		f = DefaultMeta
	}
	return MiddlewareFunc(func(ctx context.Context, ev *Event, next Handler) (any, error) {
		if !ev.Payload.IsObject() || ev.Payload.Get(MetaKey).Exists() {
			return next.Handle(ctx, ev)
		}
		p, err := ev.Payload.Set(MetaKey, f(ev))
		if err != nil {
			return next.Handle(ctx, ev)
		}
		return next.Handle(ctx, ev.WithPayload(p))
	})
}

// Logging writes one debug line per request and one per outcome.
func Logging(logger *log.Logger) Middleware {
	return MiddlewareFunc(func(ctx context.Context, ev *Event, next Handler) (any, error) {
		l := logger
		if l == nil && ev.Context != nil {
			l = ev.Context.Logger()
		}
		if l == nil {
			l = log.Default()
		}
		var requestID string
		if ev.Context != nil {
			requestID = ev.Context.AwsRequestID()
		}

		l.Debug("request", "id", requestID, "payload", ev.Payload.String())
		start := time.Now()
		result, err := next.Handle(ctx, ev)
		if err != nil {
			l.Debug("error", "id", requestID, "err", err, "took", time.Since(start))
		} else {
			l.Debug("response", "id", requestID, "took", time.Since(start))
		}
		return result, err
	})
}
