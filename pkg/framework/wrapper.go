package framework

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/google/uuid"

	"github.com/fitglue/crm-pipeline/pkg/bootstrap"
	"github.com/fitglue/crm-pipeline/pkg/domain/failure"
	"github.com/fitglue/crm-pipeline/pkg/infrastructure/sentry"
	"github.com/fitglue/crm-pipeline/pkg/pipeline"
)

const flushTimeout = 2 * time.Second

// FrameworkContext contains dependencies injected by the framework
type FrameworkContext struct {
	Service     *bootstrap.Service
	Logger      *slog.Logger
	ExecutionID string
}

// Invocation returns the pipeline view of this context.
func (c *FrameworkContext) Invocation() pipeline.Invocation {
	return pipeline.Invocation{ExecutionID: c.ExecutionID, Logger: c.Logger}
}

// NewContext creates the per-invocation logger and execution id.
func NewContext(serviceName, trigger string, svc *bootstrap.Service) *FrameworkContext {
	base := slog.Default()
	if svc != nil && svc.Logger != nil {
		base = svc.Logger
	}
	execID := uuid.NewString()
	return &FrameworkContext{
		Service:     svc,
		Logger:      base.With("execution_id", execID, "trigger", trigger, "function", serviceName),
		ExecutionID: execID,
	}
}

// HTTPHandlerFunc is the signature for an HTTP function handler
type HTTPHandlerFunc func(w http.ResponseWriter, r *http.Request, fwCtx *FrameworkContext)

// HandlerFunc is the signature for a CloudEvent function handler
type HandlerFunc func(ctx context.Context, e event.Event, fwCtx *FrameworkContext) error

// WrapHTTP gives each request its own execution id and logger. A panic in
// handler is reported and rendered as a 500 failure response.
func WrapHTTP(serviceName string, svc *bootstrap.Service, handler HTTPHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fwCtx := NewContext(serviceName, "http", svc)
		fwCtx.Logger.Debug("Function started", "method", r.Method)

		defer func() {
			if rec := recover(); rec != nil {
				err := sentry.CapturePanic(rec, map[string]string{"execution_id": fwCtx.ExecutionID}, fwCtx.Logger)
				fwCtx.Logger.Error("Function panicked", "error", err)
				WriteJSON(w, http.StatusInternalServerError, pipeline.Response{
					Outcome: pipeline.Failure,
					Error:   string(failure.Internal),
				})
			}
		}()

		handler(w, r, fwCtx)
	}
}

// WrapCloudEvent wraps a handler with execution logging and panic capture.
// A returned error makes the platform redeliver the event.
func WrapCloudEvent(serviceName string, svc *bootstrap.Service, handler HandlerFunc) func(context.Context, event.Event) error {
	return func(ctx context.Context, e event.Event) (err error) {
		fwCtx := NewContext(serviceName, "pubsub", svc)
		fwCtx.Logger = fwCtx.Logger.With("event_id", e.ID())
		fwCtx.Logger.Debug("Function started", "type", e.Type(), "source", e.Source())

		defer func() {
			if rec := recover(); rec != nil {
				err = sentry.CapturePanic(rec, map[string]string{"execution_id": fwCtx.ExecutionID}, fwCtx.Logger)
				fwCtx.Logger.Error("Function panicked", "error", err)
			}
		}()

		if err := handler(ctx, e, fwCtx); err != nil {
			fwCtx.Logger.Error("Function failed", "error", err)
			return err
		}
		fwCtx.Logger.Debug("Function completed")
		return nil
	}
}

// Report sends failures and best-effort failures to Sentry. Malformed
// input is the caller's problem and is not reported.
func Report(fwCtx *FrameworkContext, outcome pipeline.Outcome) {
	if outcome.Err == nil || outcome.Stage() == pipeline.StageInput {
		return
	}
	sentry.CaptureException(outcome.Err, map[string]string{
		"stage":        string(outcome.Stage()),
		"error_code":   string(outcome.Code()),
		"outcome":      string(outcome.Kind),
		"record_id":    outcome.RecordID,
		"execution_id": fwCtx.ExecutionID,
	}, fwCtx.Logger)
	sentry.Flush(flushTimeout)
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response", "error", err)
	}
}
