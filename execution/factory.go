package execution

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/aura-studio/lambda-runtime/runtimeapi"
	"github.com/charmbracelet/log"
)

// DecodeError reports JSON that could not be decoded. Field names the
// header or document that was malformed.
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

type Factory struct {
	env Environment
	now func() time.Time
}

type FactoryOption func(*Factory)

// WithClock replaces time.Now for remaining-time computations.
func WithClock(now func() time.Time) FactoryOption {
	return func(f *Factory) {
		f.now = now
	}
}

func NewFactory(env Environment, opts ...FactoryOption) *Factory {
	f := &Factory{
		env: env,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create builds the Context for inv. A missing request id or deadline is a
// *runtimeapi.ProtocolError; malformed identity or client-context JSON is a
// *DecodeError. Absent optional headers yield zero values.
func (f *Factory) Create(inv *runtimeapi.Invocation, logger *log.Logger) (*Context, error) {
	requestID := inv.RequestID()
	if requestID == "" {
		return nil, &runtimeapi.ProtocolError{Op: "create context", Header: runtimeapi.HeaderRequestID}
	}

	deadlineMs, err := strconv.ParseInt(inv.DeadlineMs(), 10, 64)
	if err != nil {
		return nil, &runtimeapi.ProtocolError{Op: "create context", Header: runtimeapi.HeaderDeadlineMs, Err: err}
	}

	if logger == nil {
		logger = log.Default()
	}

	c := &Context{
		env:                f.env,
		awsRequestID:       requestID,
		deadline:           time.UnixMilli(deadlineMs),
		invokedFunctionArn: inv.InvokedFunctionArn(),
		traceID:            inv.TraceID(),
		logger:             logger,
		now:                f.now,
	}

	if raw := inv.CognitoIdentity(); raw != "" {
		if err := json.Unmarshal([]byte(raw), &c.identity); err != nil {
			return nil, &DecodeError{Field: runtimeapi.HeaderCognitoIdentity, Err: err}
		}
	}
	if raw := inv.ClientContext(); raw != "" {
		if err := json.Unmarshal([]byte(raw), &c.clientContext); err != nil {
			return nil, &DecodeError{Field: runtimeapi.HeaderClientContext, Err: err}
		}
	}

	return c, nil
}
