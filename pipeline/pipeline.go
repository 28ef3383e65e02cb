// Package pipeline composes ordered middleware around a terminal handler.
//
// A Pipeline is a template: it is built once and traversed many times. Every
// call to Handle or Process starts a fresh traversal over a snapshot of the
// middleware list, so reusing the same pipeline across invocations never
// observes cursor state left behind by an earlier traversal.
package pipeline

import (
	"context"
	"errors"
	"slices"
)

// ErrEmptyPipeline is returned by Handle when a traversal runs out of
// middleware and no fallback handler was supplied.
var ErrEmptyPipeline = errors.New("pipeline: no middleware left and no fallback handler")

// ErrTraversalDone is returned when a middleware continues a traversal whose
// fallback has already run.
var ErrTraversalDone = errors.New("pipeline: traversal already reached its fallback")

// Handler produces an output for an input.
type Handler[In, Out any] interface {
	Handle(ctx context.Context, in In) (Out, error)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc[In, Out any] func(ctx context.Context, in In) (Out, error)

func (f HandlerFunc[In, Out]) Handle(ctx context.Context, in In) (Out, error) { return f(ctx, in) }

// Middleware receives the input and the rest of the traversal. It may call
// next to continue, return without calling it to short-circuit, or transform
// the input or output around the call.
type Middleware[In, Out any] interface {
	Process(ctx context.Context, in In, next Handler[In, Out]) (Out, error)
}

// MiddlewareFunc adapts a plain function to Middleware.
type MiddlewareFunc[In, Out any] func(ctx context.Context, in In, next Handler[In, Out]) (Out, error)

func (f MiddlewareFunc[In, Out]) Process(ctx context.Context, in In, next Handler[In, Out]) (Out, error) {
	return f(ctx, in, next)
}

// Pipeline is an ordered middleware list. Append and Prepend are meant for
// composition time; they must not race with traversals.
type Pipeline[In, Out any] struct {
	middleware []Middleware[In, Out]
}

func New[In, Out any](mw ...Middleware[In, Out]) *Pipeline[In, Out] {
	p := &Pipeline[In, Out]{}
	return p.Append(mw...)
}

// Append adds middleware at the end of the list. Nil entries are skipped.
func (p *Pipeline[In, Out]) Append(mw ...Middleware[In, Out]) *Pipeline[In, Out] {
	for _, m := range mw {
		if m != nil {
			p.middleware = append(p.middleware, m)
		}
	}
	return p
}

// Prepend adds middleware at the front of the list, keeping their relative
// order.
func (p *Pipeline[In, Out]) Prepend(mw ...Middleware[In, Out]) *Pipeline[In, Out] {
	head := make([]Middleware[In, Out], 0, len(mw)+len(p.middleware))
	for _, m := range mw {
		if m != nil {
			head = append(head, m)
		}
	}
	p.middleware = append(head, p.middleware...)
	return p
}

func (p *Pipeline[In, Out]) Len() int {
	return len(p.middleware)
}

// Handle runs a fresh traversal with no fallback. A traversal that exhausts
// the list fails with ErrEmptyPipeline.
func (p *Pipeline[In, Out]) Handle(ctx context.Context, in In) (Out, error) {
	return p.traverse(nil).Handle(ctx, in)
}

// Process runs a fresh traversal that ends in fallback. It makes a Pipeline
// usable as a Middleware of another pipeline.
func (p *Pipeline[In, Out]) Process(ctx context.Context, in In, fallback Handler[In, Out]) (Out, error) {
	return p.traverse(fallback).Handle(ctx, in)
}

// Then binds a fallback and returns a Handler whose every call is a fresh
// traversal.
func (p *Pipeline[In, Out]) Then(fallback Handler[In, Out]) Handler[In, Out] {
	return HandlerFunc[In, Out](func(ctx context.Context, in In) (Out, error) {
		return p.Process(ctx, in, fallback)
	})
}

func (p *Pipeline[In, Out]) traverse(fallback Handler[In, Out]) *cursor[In, Out] {
	return &cursor[In, Out]{
		middleware: slices.Clone(p.middleware),
		fallback:   fallback,
	}
}
