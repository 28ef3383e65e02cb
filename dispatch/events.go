package dispatch

import (
	"github.com/aura-studio/lambda-runtime/event"
	"github.com/aura-studio/lambda-runtime/execution"
	"github.com/aura-studio/lambda-runtime/runtimeapi"
)

const (
	StartEventName    = "runtime.start"
	RequestEventName  = "runtime.request"
	ResponseEventName = "runtime.response"
	ErrorEventName    = "runtime.error"
)

// Event is anything a Dispatcher can deliver.
type Event interface {
	Name() string
}

// StartEvent is dispatched once, before the first poll.
type StartEvent struct {
	Handler string
}

func (StartEvent) Name() string { return StartEventName }

// RequestEvent is dispatched before the handler runs.
type RequestEvent struct {
	Event *event.Event
}

func (RequestEvent) Name() string { return RequestEventName }

// ResponseEvent is dispatched after the response was posted.
type ResponseEvent struct {
	Event    *event.Event
	Response []byte
}

func (ResponseEvent) Name() string { return ResponseEventName }

// ErrorEvent is dispatched after an invocation error was reported. Context
// is nil when the failure happened before it could be built.
type ErrorEvent struct {
	RequestID string
	Context   *execution.Context
	Err       error
	Body      *runtimeapi.ErrorBody
}

func (ErrorEvent) Name() string { return ErrorEventName }
