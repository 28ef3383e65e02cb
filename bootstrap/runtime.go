// Package bootstrap runs the invocation loop: poll the control plane, build
// the execution context, run the handler, report the outcome.
package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/aura-studio/lambda-runtime/config"
	"github.com/aura-studio/lambda-runtime/dispatch"
	"github.com/aura-studio/lambda-runtime/event"
	"github.com/aura-studio/lambda-runtime/execution"
	"github.com/aura-studio/lambda-runtime/runtimeapi"
)

type Runtime struct {
	*Options
	config  *config.Config
	handler event.Handler
}

func New(cfg *config.Config, h event.Handler, opts ...Option) *Runtime {
	if cfg == nil {
		cfg = &config.Config{}
	}
	r := &Runtime{
		Options: NewOptions(opts...),
		config:  cfg,
		handler: h,
	}
	if r.Client == nil {
		r.Client = runtimeapi.NewClient(cfg.ClientOptions()...)
	}
	if r.Factory == nil {
		r.Factory = execution.NewFactory(cfg.Environment())
	}
	if r.Logger == nil {
		r.Logger = cfg.NewLogger(os.Stderr)
	}
	if r.Dispatcher == nil {
		r.Dispatcher = dispatch.New()
	}
	if r.Exit == nil {
		r.Exit = os.Exit
	}
	if cfg.DebugMode {
		r.DebugMode = true
	}
	return r
}

// Run polls until ctx ends or a fatal error was reported.
func (r *Runtime) Run(ctx context.Context) error {
	r.dispatch(ctx, dispatch.StartEvent{Handler: r.config.Handler})

	for {
		err := r.Next(ctx)
		switch {
		case err == nil:
		case errors.Is(err, ErrFatal):
			return err
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			r.Logger.Error("invocation not reported", "err", err)
		}
	}
}

// Next handles exactly one invocation. Invocation failures are reported to
// the control plane and are not returned; the error is non-nil only when
// reporting failed, ctx ended, or the failure was fatal.
func (r *Runtime) Next(ctx context.Context) error {
	inv, err := r.Client.Next(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return r.fatal(ctx, err)
	}

	requestID := inv.RequestID()
	if requestID == "" {
		return r.fatal(ctx, &runtimeapi.ProtocolError{Op: "next", Header: runtimeapi.HeaderRequestID})
	}

	if r.DebugMode {
		r.Logger.Debug("request", "id", requestID, "payload", string(inv.Body))
	}

	payload, err := event.DecodePayload(inv.Body)
	if err != nil {
		return r.fail(ctx, requestID, nil, err)
	}
	ec, err := r.Factory.Create(inv, r.Logger)
	if err != nil {
		return r.fail(ctx, requestID, nil, err)
	}
	ev := &event.Event{Payload: payload, Context: ec}
	ictx := execution.NewContext(ctx, ec)

	r.dispatch(ictx, dispatch.RequestEvent{Event: ev})

	out, err := r.invoke(ictx, ev)
	if err != nil {
		return r.fail(ctx, requestID, ec, err)
	}
	body, err := json.Marshal(out)
	if err != nil {
		return r.fail(ctx, requestID, ec, newHandlerError(fmt.Errorf("marshal response: %w", err)))
	}

	if r.DebugMode {
		r.Logger.Debug("response", "id", requestID, "body", string(body))
	}

	if err := r.Client.PostResponse(ctx, requestID, body); err != nil {
		// Only a status from the control plane proves the body was not
		// accepted; after a transport failure an error report could be a
		// second outcome for the same invocation.
		if !rejected(err) {
			return fmt.Errorf("bootstrap: respond %s: %w", requestID, err)
		}
		r.Logger.Warn("response rejected", "id", requestID, "err", err)
		return r.fail(ctx, requestID, ec, err)
	}
	r.dispatch(ictx, dispatch.ResponseEvent{Event: ev, Response: body})
	return nil
}

func rejected(err error) bool {
	var perr *runtimeapi.ProtocolError
	return errors.As(err, &perr) && perr.StatusCode != 0
}

func (r *Runtime) invoke(ctx context.Context, ev *event.Event) (out any, err error) {
	defer func() {
		if v := recover(); v != nil {
			out, err = nil, newHandlerError(event.NewPanicError(v))
		}
	}()
	if r.handler == nil {
		return nil, newHandlerError(errors.New("no handler"))
	}
	out, err = event.Invoke(ctx, r.Middleware, r.handler, ev)
	if err != nil {
		return nil, newHandlerError(err)
	}
	return out, nil
}

func (r *Runtime) fail(ctx context.Context, requestID string, ec *execution.Context, err error) error {
	body := ErrorBody(err)
	if perr := r.Client.PostError(ctx, requestID, body); perr != nil {
		return fmt.Errorf("bootstrap: report %s: %w", requestID, perr)
	}
	r.dispatch(ctx, dispatch.ErrorEvent{RequestID: requestID, Context: ec, Err: err, Body: body})
	return nil
}

func (r *Runtime) fatal(ctx context.Context, err error) error {
	r.dispatch(ctx, dispatch.ErrorEvent{Err: err, Body: ErrorBody(err)})
	return ReportInitError(ctx, r.Client, err, r.Exit)
}

func (r *Runtime) dispatch(ctx context.Context, ev dispatch.Event) {
	if err := r.Dispatcher.Dispatch(ctx, ev); err != nil {
		r.Logger.Warn("listener failed", "event", ev.Name(), "err", err)
	}
}

// ReportInitError posts err to the init error endpoint and calls exit(1).
// It is the only way the runtime terminates on its own.
func ReportInitError(ctx context.Context, client Client, err error, exit func(code int)) error {
	if perr := client.PostInitError(ctx, ErrorBody(err)); perr != nil {
		err = fmt.Errorf("%w (init error not reported: %v)", err, perr)
	}
	if exit != nil {
		exit(1)
	}
	return fmt.Errorf("%w: %w", ErrFatal, err)
}
