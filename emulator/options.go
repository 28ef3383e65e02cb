package emulator

import (
	"time"

	"github.com/aura-studio/lambda-runtime/runtimeapi"
	"github.com/charmbracelet/log"
	"github.com/mohae/deepcopy"
)

type Options struct {
	// Timeout is the default invocation deadline, measured from delivery.
	Timeout     time.Duration
	FunctionArn string
	QueueSize   int
	DebugMode   bool
	Logger      *log.Logger
}

type Option interface {
	Apply(o *Options)
}

type OptionFunc func(*Options)

func (f OptionFunc) Apply(o *Options) { f(o) }

var defaultOptions = &Options{
	Timeout:     3 * time.Second,
	FunctionArn: "arn:aws:lambda:us-east-1:000000000000:function:function",
	QueueSize:   64,
}

func NewOptions(opts ...Option) *Options {
	o := deepcopy.Copy(defaultOptions).(*Options)
	for _, opt := range opts {
		if opt != nil {
			opt.Apply(o)
		}
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

func WithTimeout(d time.Duration) Option {
	return OptionFunc(func(o *Options) {
		o.Timeout = d
	})
}

func WithDefaultFunctionArn(arn string) Option {
	return OptionFunc(func(o *Options) {
		o.FunctionArn = arn
	})
}

func WithQueueSize(n int) Option {
	return OptionFunc(func(o *Options) {
		o.QueueSize = n
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

// InvokeOption customises a single enqueued invocation.
type InvokeOption func(*invocation)

func WithDeadline(t time.Time) InvokeOption {
	return func(inv *invocation) {
		inv.deadline = t
	}
}

func WithTraceID(id string) InvokeOption {
	return func(inv *invocation) {
		inv.header.Set(runtimeapi.HeaderTraceID, id)
	}
}

func WithFunctionArn(arn string) InvokeOption {
	return func(inv *invocation) {
		inv.header.Set(runtimeapi.HeaderInvokedFunctionArn, arn)
	}
}

// WithClientContext sets the raw client-context JSON.
func WithClientContext(raw string) InvokeOption {
	return func(inv *invocation) {
		inv.header.Set(runtimeapi.HeaderClientContext, raw)
	}
}

// WithIdentity sets the raw cognito-identity JSON.
func WithIdentity(raw string) InvokeOption {
	return func(inv *invocation) {
		inv.header.Set(runtimeapi.HeaderCognitoIdentity, raw)
	}
}
