package runtimeapi

import (
	"net/http"
	"time"

	"github.com/mohae/deepcopy"
)

// HTTPClient is the transport used to talk to the control plane.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Options struct {
	HTTPClient HTTPClient
	BaseURL    string
	// PostTimeout bounds response and error reports. The next-invocation
	// long poll is never bounded.
	PostTimeout time.Duration
	Headers     map[string]string
}

type Option interface {
	Apply(o *Options)
}

type OptionFunc func(*Options)

func (f OptionFunc) Apply(o *Options) { f(o) }

var defaultOptions = &Options{
	HTTPClient:  &http.Client{},
	BaseURL:     "http://127.0.0.1:9001",
	PostTimeout: 30 * time.Second,
	Headers: map[string]string{
		"User-Agent": "aura-lambda-runtime",
	},
}

func NewOptions(opts ...Option) *Options {
	o := deepcopy.Copy(defaultOptions).(*Options)
	for _, opt := range opts {
		if opt != nil {
			opt.Apply(o)
		}
	}
	return o
}

func WithHTTPClient(client HTTPClient) Option {
	return OptionFunc(func(o *Options) {
		o.HTTPClient = client
	})
}

func WithBaseURL(url string) Option {
	return OptionFunc(func(o *Options) {
		o.BaseURL = url
	})
}

// WithRuntimeAPI sets the control-plane host, as found in
// AWS_LAMBDA_RUNTIME_API.
func WithRuntimeAPI(host string) Option {
	return OptionFunc(func(o *Options) {
		o.BaseURL = "http://" + host
	})
}

func WithPostTimeout(timeout time.Duration) Option {
	return OptionFunc(func(o *Options) {
		o.PostTimeout = timeout
	})
}

func WithHeader(key, value string) Option {
	return OptionFunc(func(o *Options) {
		if o.Headers == nil {
			o.Headers = make(map[string]string)
		}
		o.Headers[key] = value
	})
}

func WithUserAgent(ua string) Option {
	return WithHeader("User-Agent", ua)
}
