package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aura-studio/lambda-runtime/bootstrap"
	"github.com/aura-studio/lambda-runtime/config"
	"github.com/aura-studio/lambda-runtime/dispatch"
	"github.com/aura-studio/lambda-runtime/dynamic"
	"github.com/aura-studio/lambda-runtime/event"
	"github.com/aura-studio/lambda-runtime/handler"
	"github.com/aura-studio/lambda-runtime/httpadapter"
	"github.com/aura-studio/lambda-runtime/httpengine"
	"github.com/aura-studio/lambda-runtime/notify"
	"github.com/aura-studio/lambda-runtime/runtimeapi"
	"github.com/aura-studio/lambda-runtime/trace"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/propagators/aws/xray"
	"go.opentelemetry.io/otel"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Run the function runtime",
	Long: `Run the function runtime loop against the control plane named by
AWS_LAMBDA_RUNTIME_API.

The handler comes from _HANDLER, or from the config file's "handler" key.
Without --config the first of runtime.yaml, runtime.yml, bootstrap.yaml and
bootstrap.yml found in LAMBDA_TASK_ROOT, the working directory or the
executable's directory is loaded.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "runtime config file")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	opt := config.WithDefaultConfigFile()
	if configFile != "" {
		opt = config.WithConfigFile(configFile)
	}
	cfg, err := config.Load(opt)
	if err != nil {
		return reportInitError(ctx, err)
	}

	logger := cfg.NewLogger(os.Stderr)
	log.SetDefault(logger)
	if cfg.File != "" {
		logger.Debug("config loaded", "file", cfg.File)
	}

	h, err := newHandler(cfg, logger)
	if err != nil {
		return reportInitError(ctx, err)
	}
	d, err := newDispatcher(ctx, cfg, logger)
	if err != nil {
		return reportInitError(ctx, err)
	}

	p, shutdown, err := newPipeline(ctx, cfg, logger)
	if err != nil {
		return reportInitError(ctx, err)
	}
	defer shutdown()

	rt := bootstrap.New(cfg, h,
		bootstrap.WithLogger(logger),
		bootstrap.WithDispatcher(d),
		bootstrap.WithPipeline(p),
	)
	if err := rt.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newHandler(cfg *config.Config, logger *log.Logger) (event.Handler, error) {
	dynOpts, err := cfg.DynamicOptions()
	if err != nil {
		return nil, err
	}
	dyn := dynamic.NewDynamic(dynOpts...)

	reg := handler.Default()
	reg.UseDynamic(dyn)
	reg.RegisterFactory("http", func() (event.Handler, error) {
		engineOpts := append(cfg.EngineOptions(), httpengine.WithLogger(logger))
		engine := httpengine.NewEngine(dyn, engineOpts...)

		adapterOpts := []httpadapter.Option{httpadapter.WithLogger(logger)}
		if cfg.DebugMode {
			adapterOpts = append(adapterOpts, httpadapter.WithDebugMode())
		}
		if len(cfg.StaticLinks) > 0 {
			adapterOpts = append(adapterOpts, httpadapter.WithMiddleware(httpadapter.StaticLink(cfg.StaticLinks)))
		}
		if len(cfg.PrefixLinks) > 0 {
			adapterOpts = append(adapterOpts, httpadapter.WithMiddleware(httpadapter.PrefixLink(cfg.PrefixLinks)))
		}
		if len(cfg.HeaderLinks) > 0 {
			adapterOpts = append(adapterOpts, httpadapter.WithMiddleware(httpadapter.HeaderLink(cfg.HeaderLinks)))
		}
		return httpadapter.New(httpadapter.Handler(engine), adapterOpts...), nil
	})

	return reg.Resolve(cfg.Handler)
}

func newPipeline(ctx context.Context, cfg *config.Config, logger *log.Logger) (*event.Pipeline, func(), error) {
	shutdown := func() {}
	p := event.NewPipeline(event.Recover())
	if cfg.TraceEnabled {
		tp, err := trace.NewTracerProvider(ctx,
			trace.WithExporter(cfg.TraceExporter),
			trace.WithEndpoint(cfg.TraceEndpoint),
			trace.WithWriter(os.Stderr),
		)
		if err != nil {
			return nil, nil, err
		}
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(xray.Propagator{})
		shutdown = func() {
			if err := tp.Shutdown(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("tracer shutdown", "err", err)
			}
		}
		p.Append(trace.Middleware(trace.WithTracerProvider(tp)))
	}
	if cfg.MetaEnabled {
		p.Append(event.Meta(nil))
	}
	if cfg.DebugMode {
		p.Append(event.Logging(logger))
	}
	return p, shutdown, nil
}

func newDispatcher(ctx context.Context, cfg *config.Config, logger *log.Logger) (*dispatch.Dispatcher, error) {
	d := dispatch.New()
	d.SubscribeAll(dispatch.LogListener(logger))

	if cfg.NotifyEnabled() {
		n, err := notify.New(ctx,
			notify.WithQueueURL(cfg.NotifyQueueURL),
			notify.WithEncoding(notify.Encoding(cfg.NotifyEncoding)),
			notify.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		d.Subscribe(dispatch.ResponseEventName, n)
		d.Subscribe(dispatch.ErrorEventName, n)
	}
	return d, nil
}

// reportInitError tells the control plane about a startup failure when one
// is reachable. The process exits non-zero either way.
func reportInitError(ctx context.Context, err error) error {
	host, ok := os.LookupEnv(config.EnvRuntimeAPI)
	if !ok || host == "" {
		return err
	}
	client := runtimeapi.NewClient(runtimeapi.WithRuntimeAPI(host))
	return bootstrap.ReportInitError(ctx, client, err, nil)
}
