// Package trace links invocations to their X-Ray trace with OpenTelemetry
// spans.
package trace

import (
	"context"

	"github.com/aura-studio/lambda-runtime/event"
	"go.opentelemetry.io/contrib/propagators/aws/xray"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/aura-studio/lambda-runtime/trace"

// HeaderKey is the carrier key the X-Ray propagator reads.
const HeaderKey = "X-Amzn-Trace-Id"

type Options struct {
	TracerProvider oteltrace.TracerProvider
	Propagator     propagation.TextMapPropagator
	SpanName       string
}

type Option func(*Options)

func WithTracerProvider(tp oteltrace.TracerProvider) Option {
	return func(o *Options) {
		o.TracerProvider = tp
	}
}

func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(o *Options) {
		o.Propagator = p
	}
}

func WithSpanName(name string) Option {
	return func(o *Options) {
		o.SpanName = name
	}
}

type flusher interface {
	ForceFlush(ctx context.Context) error
}

// Middleware wraps each invocation in a server span. The invocation's X-Ray
// header, when valid, becomes the remote parent. The provider is flushed
// before the result is returned, since the process may be frozen right after.
func Middleware(opts ...Option) event.Middleware {
	o := &Options{SpanName: "invocation", Propagator: xray.Propagator{}}
	for _, opt := range opts {
		opt(o)
	}
	if o.TracerProvider == nil {
		o.TracerProvider = otel.GetTracerProvider()
	}
	tracer := o.TracerProvider.Tracer(instrumentationName)
	f, _ := o.TracerProvider.(flusher)

	return event.MiddlewareFunc(func(ctx context.Context, ev *event.Event, next event.Handler) (any, error) {
		var attrs []attribute.KeyValue
		if c := ev.Context; c != nil {
			if h := c.TraceID(); h != "" {
				ctx = o.Propagator.Extract(ctx, propagation.MapCarrier{HeaderKey: h})
			}
			attrs = append(attrs,
				attribute.String("faas.invocation_id", c.AwsRequestID()),
				attribute.String("faas.name", c.FunctionName()),
				attribute.String("faas.version", c.FunctionVersion()),
				attribute.String("cloud.resource_id", c.InvokedFunctionArn()),
			)
		}

		ctx, span := tracer.Start(ctx, o.SpanName,
			oteltrace.WithSpanKind(oteltrace.SpanKindServer),
			oteltrace.WithAttributes(attrs...),
		)
		defer func() {
			span.End()
			if f != nil {
				if ferr := f.ForceFlush(context.WithoutCancel(ctx)); ferr != nil {
					otel.Handle(ferr)
				}
			}
		}()

		result, err := next.Handle(ctx, ev)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return result, err
	})
}
