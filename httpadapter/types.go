package httpadapter

import (
	"fmt"
	"net/http"

	"github.com/aura-studio/lambda-runtime/pipeline"
)

// Response is what the HTTP-request pipeline produces.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

type (
	RequestHandler        = pipeline.Handler[*http.Request, *Response]
	RequestHandlerFunc    = pipeline.HandlerFunc[*http.Request, *Response]
	RequestMiddleware     = pipeline.Middleware[*http.Request, *Response]
	RequestMiddlewareFunc = pipeline.MiddlewareFunc[*http.Request, *Response]
	Pipeline              = pipeline.Pipeline[*http.Request, *Response]
)

func NewPipeline(mw ...RequestMiddleware) *Pipeline {
	return pipeline.New(mw...)
}

// AdaptationError reports an inbound event that cannot be turned into an
// HTTP request, or a response that cannot be turned back into an event.
type AdaptationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *AdaptationError) Error() string {
	msg := "httpadapter: " + e.Reason
	if e.Field != "" {
		msg = fmt.Sprintf("httpadapter: %s: %s", e.Field, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AdaptationError) Unwrap() error { return e.Err }
