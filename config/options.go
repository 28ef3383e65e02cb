package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
)

type document struct {
	path string
	data []byte
}

type Options struct {
	Lookup func(key string) (string, bool)

	documents      []document
	useDefaultFile bool
	errs           *multierror.Error
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
	if o.Lookup == nil {
		o.Lookup = os.LookupEnv
	}
	return o
}

// WithEnviron replaces os.LookupEnv as the environment source.
func WithEnviron(lookup func(key string) (string, bool)) Option {
	return OptionFunc(func(o *Options) {
		o.Lookup = lookup
	})
}

// WithEnvironMap is WithEnviron over a fixed map.
func WithEnvironMap(env map[string]string) Option {
	return WithEnviron(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
}

// WithConfig adds a YAML document.
func WithConfig(yamlBytes []byte) Option {
	return OptionFunc(func(o *Options) {
		o.documents = append(o.documents, document{data: yamlBytes})
	})
}

// WithConfigFile adds a YAML file. A missing file fails Load.
func WithConfigFile(path string) Option {
	return OptionFunc(func(o *Options) {
		b, err := os.ReadFile(path)
		if err != nil {
			o.errs = multierror.Append(o.errs, fmt.Errorf("config: WithConfigFile(%s): %w", path, err))
			return
		}
		o.documents = append(o.documents, document{path: path, data: b})
	})
}

// WithDefaultConfigFile loads the first file FindDefaultConfigFile finds,
// before any other document. Finding none is not an error.
func WithDefaultConfigFile() Option {
	return OptionFunc(func(o *Options) {
		o.useDefaultFile = true
	})
}
