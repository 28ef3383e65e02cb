// Package event is the generic event flavor of the middleware pipeline: an
// arbitrary JSON payload plus its Execution Context in, any result out.
package event

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/aura-studio/lambda-runtime/execution"
	"github.com/aura-studio/lambda-runtime/pipeline"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Payload is the raw JSON document of an invocation.
type Payload []byte

// DecodePayload validates b as JSON. An empty body is the JSON null.
func DecodePayload(b []byte) (Payload, error) {
	if len(b) == 0 {
		return Payload("null"), nil
	}
	if !gjson.ValidBytes(b) {
		return nil, &execution.DecodeError{Field: "payload", Err: errors.New("invalid JSON")}
	}
	return Payload(b), nil
}

// Get reads a value by gjson path.
func (p Payload) Get(path string) gjson.Result {
	return gjson.GetBytes(p, path)
}

// Set returns a copy of p with path set to value.
func (p Payload) Set(path string, value any) (Payload, error) {
	b, err := sjson.SetBytes(p.clone(), path, value)
	return Payload(b), err
}

// Delete returns a copy of p without path.
func (p Payload) Delete(path string) (Payload, error) {
	b, err := sjson.DeleteBytes(p.clone(), path)
	return Payload(b), err
}

// Decode unmarshals the payload into v.
func (p Payload) Decode(v any) error {
	if err := json.Unmarshal(p, v); err != nil {
		return &execution.DecodeError{Field: "payload", Err: err}
	}
	return nil
}

func (p Payload) IsObject() bool {
	return gjson.ParseBytes(p).IsObject()
}

func (p Payload) MarshalJSON() ([]byte, error) {
	if len(p) == 0 {
		return []byte("null"), nil
	}
	return p, nil
}

func (p Payload) String() string { return string(p) }

func (p Payload) clone() []byte {
	return append([]byte(nil), p...)
}

// Event is what flows through an event pipeline.
type Event struct {
	Payload Payload
	Context *execution.Context
}

// WithPayload returns a shallow copy of e carrying p.
func (e *Event) WithPayload(p Payload) *Event {
	return &Event{Payload: p, Context: e.Context}
}

type (
	Handler        = pipeline.Handler[*Event, any]
	HandlerFunc    = pipeline.HandlerFunc[*Event, any]
	Middleware     = pipeline.Middleware[*Event, any]
	MiddlewareFunc = pipeline.MiddlewareFunc[*Event, any]
	Pipeline       = pipeline.Pipeline[*Event, any]
)

func NewPipeline(mw ...Middleware) *Pipeline {
	return pipeline.New(mw...)
}

// Invoke runs h for ev, through p when it has middleware.
func Invoke(ctx context.Context, p *Pipeline, h Handler, ev *Event) (any, error) {
	if p == nil || p.Len() == 0 {
		return h.Handle(ctx, ev)
	}
	return p.Process(ctx, ev, h)
}
