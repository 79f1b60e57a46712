package pipeline

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/fitglue/crm-pipeline/pkg/credentials"
	"github.com/fitglue/crm-pipeline/pkg/domain/mapping"
	"github.com/fitglue/crm-pipeline/pkg/integrations/salesforce"
	"github.com/fitglue/crm-pipeline/pkg/testing/mocks"
)

const (
	testRecordID    = "001xx000003DUM1AAG"
	testExecutionID = "exec-123"
	testTopic       = "crm-outcomes"
	testBucket      = "crm-failed-rows"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testBundle() *credentials.Bundle {
	return &credentials.Bundle{
		CRMUsername:      "integration@example.com",
		CRMPassword:      "hunter2",
		CRMSecurityToken: "tok3n",
		CRMInstanceURL:   "https://acme.my.salesforce.com",
		MailClientID:     "client-id",
		MailClientSecret: "client-secret",
		MailRefreshToken: "1//refresh",
	}
}

func acmeRecord(id string) salesforce.Record {
	return salesforce.Record{
		"Id":          id,
		"Name":        "Acme",
		"Industry":    "Tech",
		"Phone":       "555-0100",
		"CreatedDate": "2024-01-01T00:00:00Z",
	}
}

// fixture wires a pipeline to mocks that count every external effect.
type fixture struct {
	resolver  *mocks.MockCredentialResolver
	crm       *mocks.MockCRMClient
	writer    *mocks.MockRowWriter
	notifier  *mocks.MockNotifier
	publisher *mocks.MockPublisher
	archive   *mocks.MockBlobStore

	mu          sync.Mutex
	secretCalls int
	authCalls   int
	fetched     []string
	published   []event.Event
	archived    map[string][]byte
}

func newFixture() *fixture {
	f := &fixture{archived: map[string][]byte{}}

	f.resolver = &mocks.MockCredentialResolver{
		ResolveFunc: func(ctx context.Context) (*credentials.Bundle, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.secretCalls++
			return testBundle(), nil
		},
	}
	f.crm = &mocks.MockCRMClient{
		AuthenticateFunc: func(ctx context.Context, b *credentials.Bundle) (*salesforce.Session, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.authCalls++
			return &salesforce.Session{ID: "session", InstanceURL: b.CRMInstanceURL}, nil
		},
		FetchRecordFunc: func(ctx context.Context, s *salesforce.Session, recordID string) (salesforce.Record, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.fetched = append(f.fetched, recordID)
			return acmeRecord(recordID), nil
		},
	}
	f.writer = &mocks.MockRowWriter{TargetName: "crm.accounts"}
	f.notifier = &mocks.MockNotifier{}
	f.publisher = &mocks.MockPublisher{
		PublishCloudEventFunc: func(ctx context.Context, topic string, e event.Event) (string, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.published = append(f.published, e)
			return "msg-1", nil
		},
	}
	f.archive = &mocks.MockBlobStore{
		WriteFunc: func(ctx context.Context, bucket, object string, data []byte) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.archived[bucket+"/"+object] = data
			return nil
		},
	}
	return f
}

func (f *fixture) settings() Settings {
	return Settings{
		Sender:          "pipeline@example.com",
		Recipients:      []string{"ops@example.com", "sales@example.com"},
		StageTimeout:    5 * time.Second,
		OutcomeTopic:    testTopic,
		FailedRowBucket: testBucket,
	}
}

func (f *fixture) pipeline() *Pipeline {
	return New(f.resolver, f.crm, mapping.NewMapper(mapping.DefaultTable()), f.writer, f.notifier, f.settings(),
		WithPublisher(f.publisher),
		WithFailedRowArchive(f.archive),
		WithClock(func() time.Time { return fixedNow }),
	)
}

func (f *fixture) handle(body string) Outcome {
	return f.pipeline().Handle(context.Background(), Invocation{ExecutionID: testExecutionID, Logger: discardLogger()}, []byte(body))
}

// externalCalls counts every effect outside the process.
func (f *fixture) externalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.secretCalls + f.authCalls + len(f.fetched) + len(f.writer.Rows) + len(f.notifier.Sent) + len(f.published) + len(f.archived)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
