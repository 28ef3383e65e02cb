package bootstrap

import (
	"context"

	"github.com/aura-studio/lambda-runtime/dispatch"
	"github.com/aura-studio/lambda-runtime/event"
	"github.com/aura-studio/lambda-runtime/execution"
	"github.com/aura-studio/lambda-runtime/runtimeapi"
	"github.com/charmbracelet/log"
)

// Client is the part of runtimeapi.Client the loop drives.
type Client interface {
	Next(ctx context.Context) (*runtimeapi.Invocation, error)
	PostResponse(ctx context.Context, requestID string, body []byte) error
	PostError(ctx context.Context, requestID string, body *runtimeapi.ErrorBody) error
	PostInitError(ctx context.Context, body *runtimeapi.ErrorBody) error
}

type Options struct {
	Client     Client
	Factory    *execution.Factory
	Dispatcher *dispatch.Dispatcher
	Logger     *log.Logger
	// Middleware wraps the handler on every invocation.
	Middleware *event.Pipeline
	Exit       func(code int)
	DebugMode  bool
}

type Option interface {
	Apply(o *Options)
}

type OptionFunc func(*Options)

func (f OptionFunc) Apply(o *Options) { f(o) }

func NewOptions(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		if opt != nil {
			opt.Apply(o)
		}
	}
	return o
}

func WithClient(client Client) Option {
	return OptionFunc(func(o *Options) {
		o.Client = client
	})
}

func WithFactory(f *execution.Factory) Option {
	return OptionFunc(func(o *Options) {
		o.Factory = f
	})
}

func WithDispatcher(d *dispatch.Dispatcher) Option {
	return OptionFunc(func(o *Options) {
		o.Dispatcher = d
	})
}

func WithLogger(logger *log.Logger) Option {
	return OptionFunc(func(o *Options) {
		o.Logger = logger
	})
}

func WithPipeline(p *event.Pipeline) Option {
	return OptionFunc(func(o *Options) {
		o.Middleware = p
	})
}

// WithMiddleware appends mw to the invocation pipeline.
func WithMiddleware(mw ...event.Middleware) Option {
	return OptionFunc(func(o *Options) {
		if o.Middleware == nil {
			o.Middleware = event.NewPipeline()
		}
		o.Middleware.Append(mw...)
	})
}

func WithExit(exit func(code int)) Option {
	return OptionFunc(func(o *Options) {
		o.Exit = exit
	})
}

func WithDebugMode() Option {
	return OptionFunc(func(o *Options) {
		o.DebugMode = true
	})
}
