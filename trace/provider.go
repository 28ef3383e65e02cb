package trace

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/contrib/propagators/aws/xray"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	ExporterNone   = ""
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

type ProviderOptions struct {
	Exporter string
	// Endpoint is the OTLP/HTTP collector URL. Empty falls back to the
	// OTEL_EXPORTER_OTLP_* environment.
	Endpoint string
	Writer   io.Writer
}

type ProviderOption func(*ProviderOptions)

func WithExporter(name string) ProviderOption {
	return func(o *ProviderOptions) {
		o.Exporter = name
	}
}

func WithEndpoint(url string) ProviderOption {
	return func(o *ProviderOptions) {
		o.Endpoint = url
	}
}

// WithWriter sets where the stdout exporter writes.
func WithWriter(w io.Writer) ProviderOption {
	return func(o *ProviderOptions) {
		o.Writer = w
	}
}

func NewExporter(ctx context.Context, opts ...ProviderOption) (sdktrace.SpanExporter, error) {
	o := &ProviderOptions{Writer: os.Stdout}
	for _, opt := range opts {
		opt(o)
	}

	switch o.Exporter {
	case ExporterNone:
		return nil, nil
	case ExporterStdout:
		return stdouttrace.New(stdouttrace.WithWriter(o.Writer))
	case ExporterOTLP:
		var httpOpts []otlptracehttp.Option
		if o.Endpoint != "" {
			httpOpts = append(httpOpts, otlptracehttp.WithEndpointURL(o.Endpoint))
		}
		return otlptracehttp.New(ctx, httpOpts...)
	default:
		return nil, fmt.Errorf("trace: unknown exporter %q", o.Exporter)
	}
}

// NewTracerProvider samples whatever the upstream X-Ray header decided and
// issues X-Ray compatible trace ids for new roots. Spans are batched to the
// configured exporter; Middleware flushes the batch after each invocation.
func NewTracerProvider(ctx context.Context, opts ...ProviderOption) (*sdktrace.TracerProvider, error) {
	exp, err := NewExporter(ctx, opts...)
	if err != nil {
		return nil, err
	}

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
		sdktrace.WithIDGenerator(xray.NewIDGenerator()),
	}
	if exp != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exp))
	}
	return sdktrace.NewTracerProvider(tpOpts...), nil
}
