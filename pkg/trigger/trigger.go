// Package trigger adapts HTTP requests and Pub/Sub CloudEvents to the
// pipeline.
package trigger

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/cloudevents/sdk-go/v2/event"

	shared "github.com/fitglue/crm-pipeline/pkg"
	"github.com/fitglue/crm-pipeline/pkg/bootstrap"
	"github.com/fitglue/crm-pipeline/pkg/framework"
	"github.com/fitglue/crm-pipeline/pkg/pipeline"
	"github.com/fitglue/crm-pipeline/pkg/types"
)

// ErrorMethodNotAllowed is the error code for non-POST requests.
const ErrorMethodNotAllowed = "MethodNotAllowed"

const maxBodyBytes = 1 << 20

// NewHTTPHandler returns the HTTP entry point for svc.
func NewHTTPHandler(svc *bootstrap.Service) http.HandlerFunc {
	return framework.WrapHTTP(shared.ServiceName, svc, handleHTTP)
}

func handleHTTP(w http.ResponseWriter, r *http.Request, fwCtx *framework.FrameworkContext) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		framework.WriteJSON(w, http.StatusMethodNotAllowed, pipeline.Response{
			Outcome: pipeline.Failure,
			Error:   ErrorMethodNotAllowed,
		})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		// An unreadable body parses as malformed input below.
		fwCtx.Logger.Warn("Failed to read request body", "error", err)
		body = nil
	}

	outcome := fwCtx.Service.Pipeline.Handle(r.Context(), fwCtx.Invocation(), body)
	framework.Report(fwCtx, outcome)
	framework.WriteJSON(w, outcome.StatusCode(), outcome.Response())
}

// NewEventHandler returns the Pub/Sub CloudEvent entry point for svc.
func NewEventHandler(svc *bootstrap.Service) func(context.Context, event.Event) error {
	return framework.WrapCloudEvent(shared.ServiceName, svc, handleEvent)
}

// handleEvent acknowledges events that can never succeed and returns an
// error for the rest so Pub/Sub redelivers them.
func handleEvent(ctx context.Context, e event.Event, fwCtx *framework.FrameworkContext) error {
	var msg types.PubSubMessage
	if err := e.DataAs(&msg); err != nil {
		fwCtx.Logger.Warn("Acknowledging undecodable event", "error", err)
		return nil
	}
	fwCtx.Logger = fwCtx.Logger.With("message_id", msg.Message.MessageID)

	outcome := fwCtx.Service.Pipeline.Handle(ctx, fwCtx.Invocation(), msg.Message.Data)
	framework.Report(fwCtx, outcome)

	if outcome.Retryable() {
		return fmt.Errorf("record %s: %w", outcome.RecordID, outcome.Err)
	}
	return nil
}
