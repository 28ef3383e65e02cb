package notify

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/charmbracelet/log"
)

type SQSClient interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

type Encoding string

const (
	EncodingJSON  Encoding = "json"
	EncodingProto Encoding = "proto"
)

type Options struct {
	SQSClient SQSClient
	QueueURL  string
	Encoding  Encoding
	// IncludeResponse copies the posted response body into success records.
	IncludeResponse bool
	Logger          *log.Logger
}

type Option interface {
	Apply(o *Options)
}

type OptionFunc func(*Options)

func (f OptionFunc) Apply(o *Options) { f(o) }

func NewOptions(opts ...Option) *Options {
	o := &Options{Encoding: EncodingJSON}
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

func WithSQSClient(client SQSClient) Option {
	return OptionFunc(func(o *Options) {
		o.SQSClient = client
	})
}

func WithQueueURL(url string) Option {
	return OptionFunc(func(o *Options) {
		o.QueueURL = url
	})
}

func WithEncoding(enc Encoding) Option {
	return OptionFunc(func(o *Options) {
		o.Encoding = enc
	})
}

func WithResponse() Option {
	return OptionFunc(func(o *Options) {
		o.IncludeResponse = true
	})
}

func WithLogger(logger *log.Logger) Option {
	return OptionFunc(func(o *Options) {
		o.Logger = logger
	})
}
