package crmtrigger

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/fitglue/crm-pipeline/pkg/bootstrap"
	"github.com/fitglue/crm-pipeline/pkg/domain/failure"
	"github.com/fitglue/crm-pipeline/pkg/framework"
	"github.com/fitglue/crm-pipeline/pkg/pipeline"
	"github.com/fitglue/crm-pipeline/pkg/trigger"
)

var (
	svc     *bootstrap.Service
	svcOnce sync.Once
	svcErr  error

	httpHandler  http.HandlerFunc
	eventHandler func(context.Context, event.Event) error
)

func init() {
	functions.HTTP("HandleCrmRecord", HandleCrmRecord)
	functions.CloudEvent("HandleCrmRecordEvent", HandleCrmRecordEvent)
}

func initService(ctx context.Context) (*bootstrap.Service, error) {
	svcOnce.Do(func() {
		baseSvc, err := bootstrap.NewService(ctx)
		if err != nil {
			svcErr = err
			return
		}
		svc = baseSvc
		httpHandler = trigger.NewHTTPHandler(svc)
		eventHandler = trigger.NewEventHandler(svc)
	})
	return svc, svcErr
}

// HandleCrmRecord is the HTTP entry point called by the CRM trigger.
func HandleCrmRecord(w http.ResponseWriter, r *http.Request) {
	if _, err := initService(r.Context()); err != nil {
		slog.Error("Service init failed", "error", err)
		framework.WriteJSON(w, http.StatusInternalServerError, pipeline.Response{
			Outcome: pipeline.Failure,
			Error:   string(failure.Internal),
		})
		return
	}
	httpHandler(w, r)
}

// HandleCrmRecordEvent is the Pub/Sub entry point. Record ids arrive as the
// same JSON body the HTTP trigger accepts.
func HandleCrmRecordEvent(ctx context.Context, e event.Event) error {
	if _, err := initService(ctx); err != nil {
		return fmt.Errorf("service init failed: %v", err)
	}
	return eventHandler(ctx, e)
}
