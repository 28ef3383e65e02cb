// Package httpadapter turns API Gateway proxy events into HTTP requests, runs
// them through an HTTP-request pipeline, and turns the response back into the
// proxy response shape.
package httpadapter

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/aura-studio/lambda-runtime/event"
	"github.com/aws/aws-lambda-go/events"
)

type Adapter struct {
	*Options
	fallback RequestHandler
}

func New(fallback RequestHandler, opts ...Option) *Adapter {
	return &Adapter{
		Options:  NewOptions(opts...),
		fallback: fallback,
	}
}

// ProxyResponse is the outbound payload returned to the control plane. It
// drops the multiValueHeaders key that events.APIGatewayProxyResponse always
// serializes, since headers are already collapsed.
type ProxyResponse struct {
	StatusCode      int               `json:"statusCode"`
	Headers         map[string]string `json:"headers"`
	Body            string            `json:"body"`
	IsBase64Encoded bool              `json:"isBase64Encoded,omitempty"`
}

// Handle makes an Adapter usable as the event handler of the runtime.
func (a *Adapter) Handle(ctx context.Context, ev *event.Event) (any, error) {
	rsp, err := a.Adapt(ctx, ev)
	if err != nil {
		return nil, err
	}
	return ProxyResponse{
		StatusCode:      rsp.StatusCode,
		Headers:         rsp.Headers,
		Body:            rsp.Body,
		IsBase64Encoded: rsp.IsBase64Encoded,
	}, nil
}

func (a *Adapter) Adapt(ctx context.Context, ev *event.Event) (events.APIGatewayProxyResponse, error) {
	req, err := NewRequest(ctx, ev)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}

	if a.DebugMode {
		a.Logger.Debug("adapted request", "method", req.Method, "uri", req.URL.RequestURI())
	}

	var rsp *Response
	if a.Pipeline != nil && a.Pipeline.Len() > 0 {
		rsp, err = a.Pipeline.Process(req.Context(), req, a.fallback)
	} else {
		rsp, err = a.fallback.Handle(req.Context(), req)
	}
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	if rsp == nil {
		return events.APIGatewayProxyResponse{}, &AdaptationError{Reason: "request handler returned no response"}
	}

	if a.DebugMode {
		a.Logger.Debug("adapted response", "status", rsp.StatusCode, "bytes", len(rsp.Body))
	}

	return ToProxyResponse(rsp), nil
}

// ToProxyResponse collapses multi-valued headers into one ", "-joined value
// per name. Bodies that are not valid UTF-8 are base64-encoded.
func ToProxyResponse(rsp *Response) events.APIGatewayProxyResponse {
	out := events.APIGatewayProxyResponse{
		StatusCode: rsp.StatusCode,
		Headers:    make(map[string]string, len(rsp.Header)),
	}
	if out.StatusCode == 0 {
		out.StatusCode = http.StatusOK
	}
	for k, values := range rsp.Header {
		out.Headers[k] = strings.Join(values, ", ")
	}
	if utf8.Valid(rsp.Body) {
		out.Body = string(rsp.Body)
	} else {
		out.Body = base64.StdEncoding.EncodeToString(rsp.Body)
		out.IsBase64Encoded = true
	}
	return out
}
