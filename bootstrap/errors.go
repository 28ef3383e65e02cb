package bootstrap

import (
	"errors"

	"github.com/aura-studio/lambda-runtime/execution"
	"github.com/aura-studio/lambda-runtime/httpadapter"
	"github.com/aura-studio/lambda-runtime/pipeline"
	"github.com/aura-studio/lambda-runtime/runtimeapi"
)

// ErrFatal is returned once the runtime has reported an init error and
// asked the process to exit.
var ErrFatal = errors.New("bootstrap: fatal")

const (
	ErrorTypeProtocol      = "ProtocolError"
	ErrorTypeDecode        = "DecodeError"
	ErrorTypeAdaptation    = "AdaptationError"
	ErrorTypeHandler       = "HandlerError"
	ErrorTypeEmptyPipeline = "EmptyPipelineError"
)

// HandlerError is any failure raised by the handler or its middleware.
type HandlerError struct {
	Err   error
	Stack []string
}

func (e *HandlerError) Error() string { return e.Err.Error() }

func (e *HandlerError) Unwrap() error { return e.Err }

func (e *HandlerError) Trace() []string { return e.Stack }

type tracer interface {
	Trace() []string
}

func newHandlerError(err error) *HandlerError {
	var herr *HandlerError
	if errors.As(err, &herr) {
		return herr
	}
	herr = &HandlerError{Err: err}
	var t tracer
	if errors.As(err, &t) {
		herr.Stack = t.Trace()
	}
	return herr
}

// ErrorType names the kind of err as reported to the control plane.
func ErrorType(err error) string {
	var (
		perr *runtimeapi.ProtocolError
		derr *execution.DecodeError
		aerr *httpadapter.AdaptationError
	)
	switch {
	case errors.As(err, &perr):
		return ErrorTypeProtocol
	case errors.As(err, &derr):
		return ErrorTypeDecode
	case errors.As(err, &aerr):
		return ErrorTypeAdaptation
	case errors.Is(err, pipeline.ErrEmptyPipeline):
		return ErrorTypeEmptyPipeline
	default:
		return ErrorTypeHandler
	}
}

// ErrorBody renders err for the error endpoints.
func ErrorBody(err error) *runtimeapi.ErrorBody {
	body := &runtimeapi.ErrorBody{
		ErrorMessage: err.Error(),
		ErrorType:    ErrorType(err),
		Trace:        []string{},
	}
	var t tracer
	if errors.As(err, &t) && t.Trace() != nil {
		body.Trace = t.Trace()
	}
	return body
}
