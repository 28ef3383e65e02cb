package httpengine

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
	DebugMode        bool
	CorsMode         bool
	PageNotFoundPath string
	Logger           *log.Logger
}

var defaultOptions = &Options{
	DebugMode:        false,
	CorsMode:         false,
	PageNotFoundPath: "",
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

func WithDebugMode() Option {
	return OptionFunc(func(o *Options) {
		o.DebugMode = true
	})
}

func WithCors() Option {
	return OptionFunc(func(o *Options) {
		o.CorsMode = true
	})
}

func WithPageNotFoundPath(path string) Option {
	return OptionFunc(func(o *Options) {
		o.PageNotFoundPath = path
	})
}

func WithLogger(logger *log.Logger) Option {
	return OptionFunc(func(o *Options) {
		o.Logger = logger
	})
}
