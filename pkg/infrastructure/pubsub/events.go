package pubsub

import (
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// NewCloudEvent creates a CloudEvent v1.0 with a JSON payload. A random id
// is assigned; callers may replace it with their execution id.
func NewCloudEvent(source, eventType string, data interface{}) (cloudevents.Event, error) {
	e := cloudevents.NewEvent()
	e.SetSpecVersion(cloudevents.VersionV1)
	e.SetType(eventType)
	e.SetSource(source)
	e.SetTime(time.Now().UTC())

	if err := e.SetData(cloudevents.ApplicationJSON, data); err != nil {
		return e, err
	}

	return e, nil
}
