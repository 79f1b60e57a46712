// Package pipeline sequences one CRM record through credentials, fetch,
// mapping, storage and notification, and turns every stage result into a
// single Outcome. No error escapes Handle.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	shared "github.com/fitglue/crm-pipeline/pkg"
	"github.com/fitglue/crm-pipeline/pkg/credentials"
	"github.com/fitglue/crm-pipeline/pkg/domain/mapping"
	"github.com/fitglue/crm-pipeline/pkg/infrastructure/notifications"
	infrapubsub "github.com/fitglue/crm-pipeline/pkg/infrastructure/pubsub"
	"github.com/fitglue/crm-pipeline/pkg/integrations/salesforce"
)

type CredentialResolver interface {
	Resolve(ctx context.Context) (*credentials.Bundle, error)
}

type CRMClient interface {
	Authenticate(ctx context.Context, b *credentials.Bundle) (*salesforce.Session, error)
	FetchRecord(ctx context.Context, s *salesforce.Session, recordID string) (salesforce.Record, error)
}

type RowWriter interface {
	Insert(ctx context.Context, row mapping.Row) error
	Target() string
}

type Notifier interface {
	Send(ctx context.Context, b *credentials.Bundle, msg notifications.Message) error
}

// Settings is the deployment configuration the pipeline needs.
type Settings struct {
	Sender     string
	Recipients []string
	// StageTimeout bounds each external call; zero leaves only the caller's
	// deadline.
	StageTimeout time.Duration
	// OutcomeTopic receives one event per handled record when a publisher
	// is configured.
	OutcomeTopic string
	// FailedRowBucket receives rows the store rejected when an archive is
	// configured.
	FailedRowBucket string
}

// Invocation identifies one handled request.
type Invocation struct {
	ExecutionID string
	Logger      *slog.Logger
}

type Pipeline struct {
	resolver CredentialResolver
	crm      CRMClient
	mapper   *mapping.Mapper
	writer   RowWriter
	notifier Notifier

	publisher shared.Publisher
	archive   shared.BlobStore

	settings Settings
	now      func() time.Time
}

type Option func(*Pipeline)

// WithPublisher publishes every outcome to Settings.OutcomeTopic.
func WithPublisher(pub shared.Publisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

// WithFailedRowArchive writes rejected rows to Settings.FailedRowBucket.
func WithFailedRowArchive(store shared.BlobStore) Option {
	return func(p *Pipeline) { p.archive = store }
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func New(resolver CredentialResolver, crm CRMClient, mapper *mapping.Mapper, writer RowWriter, notifier Notifier, settings Settings, opts ...Option) *Pipeline {
	p := &Pipeline{
		resolver: resolver,
		crm:      crm,
		mapper:   mapper,
		writer:   writer,
		notifier: notifier,
		settings: settings,
		now:      time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Handle runs one invocation for a raw request body.
func (p *Pipeline) Handle(ctx context.Context, inv Invocation, body []byte) Outcome {
	logger := inv.Logger
	if logger == nil {
		logger = slog.Default()
	}

	in, err := ParseInboundEvent(body)
	if err != nil {
		logger.Warn("Rejected malformed request", "error", err)
		return failed("", StageInput, err)
	}
	logger = logger.With("record_id", in.RecordID)

	outcome := p.run(ctx, logger, inv.ExecutionID, in.RecordID)

	switch outcome.Kind {
	case Success:
		logger.Info("Record processed", "outcome", outcome.Kind)
	case PartialFailure:
		logger.Warn("Record processed with best-effort failure", "outcome", outcome.Kind, "stage", outcome.Stage(), "error_code", outcome.Code())
	default:
		logger.Error("Record failed", "outcome", outcome.Kind, "stage", outcome.Stage(), "error_code", outcome.Code(), "error", outcome.Err)
	}

	p.publishOutcome(ctx, logger, inv.ExecutionID, outcome)
	return outcome
}

func (p *Pipeline) run(ctx context.Context, logger *slog.Logger, executionID, recordID string) Outcome {
	bundle, err := p.resolve(ctx)
	if err != nil {
		// Mail credentials live in the same bundle, so nothing can be sent.
		return failed(recordID, StageSecrets, err)
	}
	logger.Debug("Credentials resolved", "credentials", bundle)

	record, err := p.fetch(ctx, bundle, recordID)
	if err != nil {
		return p.abort(ctx, logger, bundle, executionID, failed(recordID, StageCRM, err))
	}
	logger.Debug("Record fetched", "fields", len(record))

	row, err := p.mapper.Map(record)
	if err != nil {
		return p.abort(ctx, logger, bundle, executionID, failed(recordID, StageMapping, err))
	}
	if row.RecordID == "" {
		row.RecordID = recordID
	}

	if err := p.insert(ctx, row); err != nil {
		outcome := failed(recordID, StageStorage, err)
		p.archiveRow(ctx, logger, executionID, row, outcome)
		return p.abort(ctx, logger, bundle, executionID, outcome)
	}
	logger.Info("Row inserted", "table", p.writer.Target(), "columns", len(row.Columns))

	if err := p.send(ctx, bundle, p.successMessage(recordID, row, executionID)); err != nil {
		logger.Warn("Success notification failed", "error", err)
		return partiallyFailed(recordID, StageNotify, err)
	}
	logger.Info("Success notification sent", "recipients", len(p.settings.Recipients))
	return succeeded(recordID)
}

// abort sends the failure email for outcome. A send failure is logged and
// never changes the outcome.
func (p *Pipeline) abort(ctx context.Context, logger *slog.Logger, bundle *credentials.Bundle, executionID string, outcome Outcome) Outcome {
	msg := p.failureMessage(outcome.RecordID, outcome.Err, executionID)
	if err := p.send(ctx, bundle, msg); err != nil {
		logger.Warn("Failure notification failed", "stage", outcome.Stage(), "error", err)
	} else {
		logger.Info("Failure notification sent", "stage", outcome.Stage())
	}
	return outcome
}

func (p *Pipeline) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.settings.StageTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.settings.StageTimeout)
}

func (p *Pipeline) resolve(ctx context.Context) (*credentials.Bundle, error) {
	ctx, cancel := p.stageContext(ctx)
	defer cancel()
	return p.resolver.Resolve(ctx)
}

func (p *Pipeline) fetch(ctx context.Context, bundle *credentials.Bundle, recordID string) (salesforce.Record, error) {
	authCtx, cancel := p.stageContext(ctx)
	session, err := p.crm.Authenticate(authCtx, bundle)
	cancel()
	if err != nil {
		return nil, err
	}

	fetchCtx, cancel := p.stageContext(ctx)
	defer cancel()
	return p.crm.FetchRecord(fetchCtx, session, recordID)
}

func (p *Pipeline) insert(ctx context.Context, row mapping.Row) error {
	ctx, cancel := p.stageContext(ctx)
	defer cancel()
	return p.writer.Insert(ctx, row)
}

func (p *Pipeline) send(ctx context.Context, bundle *credentials.Bundle, msg notifications.Message) error {
	ctx, cancel := p.stageContext(ctx)
	defer cancel()
	return p.notifier.Send(ctx, bundle, msg)
}

// OutcomeEvent is the payload published for every handled record.
type OutcomeEvent struct {
	RecordID    string    `json:"recordId"`
	Outcome     Kind      `json:"outcome"`
	Stage       Stage     `json:"stage,omitempty"`
	Error       string    `json:"error,omitempty"`
	ExecutionID string    `json:"executionId"`
	FinishedAt  time.Time `json:"finishedAt"`
}

func (p *Pipeline) publishOutcome(ctx context.Context, logger *slog.Logger, executionID string, outcome Outcome) {
	if p.publisher == nil || p.settings.OutcomeTopic == "" {
		return
	}

	payload := OutcomeEvent{
		RecordID:    outcome.RecordID,
		Outcome:     outcome.Kind,
		Stage:       outcome.Stage(),
		Error:       string(outcome.Code()),
		ExecutionID: executionID,
		FinishedAt:  p.now().UTC(),
	}
	e, err := infrapubsub.NewCloudEvent(shared.EventSource, shared.EventTypeOutcome, payload)
	if err != nil {
		logger.Warn("Failed to build outcome event", "error", err)
		return
	}
	if executionID != "" {
		e.SetID(executionID)
	}
	e.SetSubject(outcome.RecordID)

	ctx, cancel := p.stageContext(ctx)
	defer cancel()
	msgID, err := p.publisher.PublishCloudEvent(ctx, p.settings.OutcomeTopic, e)
	if err != nil {
		logger.Warn("Failed to publish outcome", "topic", p.settings.OutcomeTopic, "error", err)
		return
	}
	logger.Debug("Outcome published", "topic", p.settings.OutcomeTopic, "message_id", msgID)
}

type failedRow struct {
	RecordID    string         `json:"recordId"`
	Table       string         `json:"table"`
	ExecutionID string         `json:"executionId"`
	Error       string         `json:"error"`
	FailedAt    time.Time      `json:"failedAt"`
	Columns     map[string]any `json:"columns"`
}

// FailedRowObject is the archive object name for a rejected row.
func FailedRowObject(recordID, executionID string) string {
	return fmt.Sprintf("%s/%s/%s.json", shared.FailedRowPrefix, url.PathEscape(recordID), url.PathEscape(executionID))
}

func (p *Pipeline) archiveRow(ctx context.Context, logger *slog.Logger, executionID string, row mapping.Row, outcome Outcome) {
	if p.archive == nil || p.settings.FailedRowBucket == "" {
		return
	}

	data, err := json.Marshal(failedRow{
		RecordID:    outcome.RecordID,
		Table:       p.writer.Target(),
		ExecutionID: executionID,
		Error:       string(outcome.Code()),
		FailedAt:    p.now().UTC(),
		Columns:     row.Values(),
	})
	if err != nil {
		logger.Warn("Failed to encode rejected row", "error", err)
		return
	}

	object := FailedRowObject(outcome.RecordID, executionID)
	ctx, cancel := p.stageContext(ctx)
	defer cancel()
	if err := p.archive.Write(ctx, p.settings.FailedRowBucket, object, data); err != nil {
		logger.Warn("Failed to archive rejected row", "bucket", p.settings.FailedRowBucket, "object", object, "error", err)
		return
	}
	logger.Info("Rejected row archived", "bucket", p.settings.FailedRowBucket, "object", object)
}
