package pipeline

import "context"

type step int

const (
	stepNext step = iota
	stepFallback
	stepEmpty
	stepDone
)

// cursor is the state of one traversal: a snapshot of the middleware list and
// the index of the next unit to run. It is handed to every middleware as its
// next handler.
type cursor[In, Out any] struct {
	middleware []Middleware[In, Out]
	pos        int
	fallback   Handler[In, Out]
	done       bool
}

func (c *cursor[In, Out]) advance() (Middleware[In, Out], step) {
	if c.pos < len(c.middleware) {
		m := c.middleware[c.pos]
		c.pos++
		return m, stepNext
	}
	if c.done {
		return nil, stepDone
	}
	if c.fallback == nil {
		return nil, stepEmpty
	}
	c.done = true
	return nil, stepFallback
}

func (c *cursor[In, Out]) Handle(ctx context.Context, in In) (Out, error) {
	m, s := c.advance()
	switch s {
	case stepNext:
		return m.Process(ctx, in, c)
	case stepFallback:
		return c.fallback.Handle(ctx, in)
	case stepDone:
		var zero Out
		return zero, ErrTraversalDone
	default:
		var zero Out
		return zero, ErrEmptyPipeline
	}
}
