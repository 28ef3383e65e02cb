package dispatch

import (
	"context"

	"github.com/charmbracelet/log"
)

// LogListener writes one log line per lifecycle event.
func LogListener(logger *log.Logger) Listener {
	if logger == nil {
		logger = log.Default()
	}
	return ListenerFunc(func(ctx context.Context, ev Event) error {
		switch e := ev.(type) {
		case StartEvent:
			logger.Info("runtime started", "handler", e.Handler)
		case RequestEvent:
			if e.Event != nil && e.Event.Context != nil {
				c := e.Event.Context
				logger.Debug("invocation", "id", c.AwsRequestID(), "remaining", c.RemainingTime(), "trace", c.TraceID())
			}
		case ResponseEvent:
			if e.Event != nil && e.Event.Context != nil {
				logger.Debug("response posted", "id", e.Event.Context.AwsRequestID(), "bytes", len(e.Response))
			}
		case ErrorEvent:
			var errorType string
			if e.Body != nil {
				errorType = e.Body.ErrorType
			}
			logger.Error("invocation failed", "id", e.RequestID, "type", errorType, "err", e.Err)
		default:
			logger.Debug("event", "name", ev.Name())
		}
		return nil
	})
}
