package mocks

import (
	"context"
	"sync"

	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/fitglue/crm-pipeline/pkg/credentials"
	"github.com/fitglue/crm-pipeline/pkg/domain/mapping"
	"github.com/fitglue/crm-pipeline/pkg/infrastructure/notifications"
	"github.com/fitglue/crm-pipeline/pkg/integrations/salesforce"
)

// --- Mock Secrets ---
type MockSecretStore struct {
	GetSecretFunc func(ctx context.Context, projectID, name string) (string, error)
}

func (m *MockSecretStore) GetSecret(ctx context.Context, projectID, name string) (string, error) {
	if m.GetSecretFunc != nil {
		return m.GetSecretFunc(ctx, projectID, name)
	}
	return "mock-secret-value", nil
}

// --- Mock Publisher ---
type MockPublisher struct {
	PublishCloudEventFunc func(ctx context.Context, topic string, e event.Event) (string, error)
}

func (m *MockPublisher) PublishCloudEvent(ctx context.Context, topic string, e event.Event) (string, error) {
	if m.PublishCloudEventFunc != nil {
		return m.PublishCloudEventFunc(ctx, topic, e)
	}
	return "msg-id", nil
}

// --- Mock Storage ---
type MockBlobStore struct {
	WriteFunc func(ctx context.Context, bucket, object string, data []byte) error
}

func (m *MockBlobStore) Write(ctx context.Context, bucket, object string, data []byte) error {
	if m.WriteFunc != nil {
		return m.WriteFunc(ctx, bucket, object, data)
	}
	return nil
}

// --- Mock Pipeline Stages ---

type MockCredentialResolver struct {
	ResolveFunc func(ctx context.Context) (*credentials.Bundle, error)
}

func (m *MockCredentialResolver) Resolve(ctx context.Context) (*credentials.Bundle, error) {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx)
	}
	return &credentials.Bundle{
		CRMUsername:      "integration@example.com",
		CRMPassword:      "mock-password",
		CRMSecurityToken: "mock-token",
		CRMInstanceURL:   "https://example.my.salesforce.com",
		MailClientID:     "mock-client-id",
		MailClientSecret: "mock-client-secret",
		MailRefreshToken: "mock-refresh-token",
	}, nil
}

type MockCRMClient struct {
	AuthenticateFunc func(ctx context.Context, b *credentials.Bundle) (*salesforce.Session, error)
	FetchRecordFunc  func(ctx context.Context, s *salesforce.Session, recordID string) (salesforce.Record, error)
}

func (m *MockCRMClient) Authenticate(ctx context.Context, b *credentials.Bundle) (*salesforce.Session, error) {
	if m.AuthenticateFunc != nil {
		return m.AuthenticateFunc(ctx, b)
	}
	return &salesforce.Session{ID: "mock-session", InstanceURL: b.CRMInstanceURL}, nil
}

func (m *MockCRMClient) FetchRecord(ctx context.Context, s *salesforce.Session, recordID string) (salesforce.Record, error) {
	if m.FetchRecordFunc != nil {
		return m.FetchRecordFunc(ctx, s, recordID)
	}
	return salesforce.Record{"Id": recordID, "Name": "Mock Account"}, nil
}

// MockRowWriter keeps every row the store accepted.
type MockRowWriter struct {
	InsertFunc func(ctx context.Context, row mapping.Row) error
	TargetName string

	mu   sync.Mutex
	Rows []mapping.Row
}

func (m *MockRowWriter) Insert(ctx context.Context, row mapping.Row) error {
	if m.InsertFunc != nil {
		if err := m.InsertFunc(ctx, row); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.Rows = append(m.Rows, row)
	m.mu.Unlock()
	return nil
}

func (m *MockRowWriter) Target() string {
	if m.TargetName != "" {
		return m.TargetName
	}
	return "crm.accounts"
}

// MockNotifier records every message handed to it.
type MockNotifier struct {
	SendFunc func(ctx context.Context, b *credentials.Bundle, msg notifications.Message) error

	mu   sync.Mutex
	Sent []notifications.Message
}

func (m *MockNotifier) Send(ctx context.Context, b *credentials.Bundle, msg notifications.Message) error {
	m.mu.Lock()
	m.Sent = append(m.Sent, msg)
	m.mu.Unlock()
	if m.SendFunc != nil {
		return m.SendFunc(ctx, b, msg)
	}
	return nil
}
