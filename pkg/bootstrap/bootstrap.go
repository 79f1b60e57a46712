package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"

	shared "github.com/fitglue/crm-pipeline/pkg"
	"github.com/fitglue/crm-pipeline/pkg/credentials"
	"github.com/fitglue/crm-pipeline/pkg/domain/mapping"
	infrabq "github.com/fitglue/crm-pipeline/pkg/infrastructure/bigquery"
	"github.com/fitglue/crm-pipeline/pkg/infrastructure/notifications"
	"github.com/fitglue/crm-pipeline/pkg/infrastructure/oauth"
	infrapubsub "github.com/fitglue/crm-pipeline/pkg/infrastructure/pubsub"
	"github.com/fitglue/crm-pipeline/pkg/infrastructure/secrets"
	"github.com/fitglue/crm-pipeline/pkg/infrastructure/sentry"
	infrastorage "github.com/fitglue/crm-pipeline/pkg/infrastructure/storage"
	"github.com/fitglue/crm-pipeline/pkg/integrations/salesforce"
	"github.com/fitglue/crm-pipeline/pkg/pipeline"
)

// Service holds initialized dependencies
type Service struct {
	Config   *Config
	Logger   *slog.Logger
	Secrets  shared.SecretStore
	Pub      shared.Publisher
	Store    shared.BlobStore
	Pipeline *pipeline.Pipeline

	closers []io.Closer
}

// NewService loads configuration and initializes every client. Clients are
// created once per process; no per-invocation state is kept on them.
func NewService(ctx context.Context) (*Service, error) {
	cfg, err := LoadConfig()
	if err != nil {
		slog.Error("Configuration invalid", "error", err)
		return nil, err
	}

	logger := NewLogger(shared.ServiceName)
	slog.SetDefault(logger)
	logger.Info("Initializing service", "project_id", cfg.ProjectID, "table", cfg.Dataset+"."+cfg.Table)

	if err := sentry.Init(sentry.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		ServerName:  shared.ServiceName,
	}, logger); err != nil {
		// Reporting is optional; the pipeline still runs.
		logger.Warn("Continuing without Sentry", "error", err)
	}

	svc := &Service{Config: cfg, Logger: logger}

	// Secret Manager
	sm, err := secrets.NewSecretsAdapter(ctx)
	if err != nil {
		logger.Error("Secret Manager init failed", "error", err)
		return nil, fmt.Errorf("secretmanager init: %w", err)
	}
	svc.Secrets = sm
	svc.closers = append(svc.closers, sm)

	// BigQuery
	bq, err := bigquery.NewClient(ctx, cfg.BigQueryProject)
	if err != nil {
		svc.Close()
		logger.Error("BigQuery init failed", "error", err)
		return nil, fmt.Errorf("bigquery init: %w", err)
	}
	svc.closers = append(svc.closers, bq)

	// Pub/Sub
	if cfg.EnablePublish {
		psClient, err := pubsub.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			svc.Close()
			logger.Error("PubSub init failed", "error", err)
			return nil, fmt.Errorf("pubsub init: %w", err)
		}
		svc.Pub = &infrapubsub.PubSubAdapter{Client: psClient}
		svc.closers = append(svc.closers, psClient)
		logger.Info("Pub/Sub: REAL (ENABLE_PUBLISH=true)", "topic", cfg.OutcomeTopic)
	} else {
		svc.Pub = &infrapubsub.LogPublisher{Logger: logger}
		logger.Info("Pub/Sub: MOCK (LogPublisher)")
	}

	// Storage
	if cfg.FailedRowBucket != "" {
		gcsClient, err := storage.NewClient(ctx)
		if err != nil {
			svc.Close()
			logger.Error("Storage init failed", "error", err)
			return nil, fmt.Errorf("storage init: %w", err)
		}
		svc.Store = &infrastorage.StorageAdapter{Client: gcsClient}
		svc.closers = append(svc.closers, gcsClient)
	}

	table, err := mapping.Load(cfg.MappingFile, cfg.MappingJSON)
	if err != nil {
		svc.Close()
		logger.Error("Field mapping invalid", "error", err)
		return nil, fmt.Errorf("field mapping: %w", err)
	}

	svc.Pipeline = NewPipeline(cfg, svc.Secrets, infrabq.NewRowWriter(bq, cfg.Dataset, cfg.Table, cfg.DedupeByRecordID), table, svc.Pub, svc.Store)
	return svc, nil
}

// NewPipeline assembles the pipeline from already-initialized adapters.
// pub and store may be nil.
func NewPipeline(cfg *Config, store shared.SecretStore, writer pipeline.RowWriter, table mapping.Table, pub shared.Publisher, blobs shared.BlobStore) *pipeline.Pipeline {
	var mailOpts []notifications.GmailOption
	if cfg.StageTimeout > 0 {
		mailOpts = append(mailOpts, notifications.WithTimeout(cfg.StageTimeout))
	}

	var opts []pipeline.Option
	if pub != nil {
		opts = append(opts, pipeline.WithPublisher(pub))
	}
	if blobs != nil {
		opts = append(opts, pipeline.WithFailedRowArchive(blobs))
	}

	return pipeline.New(
		credentials.NewResolver(store, cfg.ProjectID, cfg.SecretNames),
		salesforce.NewClient(salesforce.Config{
			APIVersion: cfg.SalesforceAPIVersion,
			SObject:    cfg.SalesforceSObject,
			Timeout:    cfg.SalesforceTimeout,
		}),
		mapping.NewMapper(table),
		writer,
		notifications.NewGmailSender(oauth.NewGoogleExchanger(), mailOpts...),
		pipeline.Settings{
			Sender:          cfg.Sender,
			Recipients:      cfg.Recipients,
			StageTimeout:    cfg.StageTimeout,
			OutcomeTopic:    cfg.OutcomeTopic,
			FailedRowBucket: cfg.FailedRowBucket,
		},
		opts...,
	)
}

// Close releases every client created by NewService.
func (s *Service) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
