package httpadapter

import (
	"github.com/charmbracelet/log"
	"github.com/mohae/deepcopy"
)

type Option interface {
	Apply(o *Options)
}

type OptionFunc func(*Options)

func (f OptionFunc) Apply(o *Options) { f(o) }

type Options struct {
	Pipeline  *Pipeline
	DebugMode bool
	Logger    *log.Logger
}

var defaultOptions = &Options{
	DebugMode: false,
}

func NewOptions(opts ...Option) *Options {
	options := deepcopy.Copy(defaultOptions).(*Options)
	options.init(opts...)
	return options
}

func (o *Options) init(opts ...Option) {
	for _, opt := range opts {
		if opt != nil {
			opt.Apply(o)
		}
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
}

// WithPipeline runs every adapted request through p before the terminal
// handler.
func WithPipeline(p *Pipeline) Option {
	return OptionFunc(func(o *Options) {
		o.Pipeline = p
	})
}

// WithMiddleware appends mw to the adapter's pipeline, creating it if needed.
func WithMiddleware(mw ...RequestMiddleware) Option {
	return OptionFunc(func(o *Options) {
		if o.Pipeline == nil {
			o.Pipeline = NewPipeline()
		}
		o.Pipeline.Append(mw...)
	})
}

func WithDebugMode() Option {
	return OptionFunc(func(o *Options) {
		o.DebugMode = true
	})
}

func WithLogger(logger *log.Logger) Option {
	return OptionFunc(func(o *Options) {
		o.Logger = logger
	})
}
