package credentials_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitglue/crm-pipeline/pkg/credentials"
	"github.com/fitglue/crm-pipeline/pkg/domain/failure"
	"github.com/fitglue/crm-pipeline/pkg/testing/mocks"
)

func TestResolve_AllSecrets(t *testing.T) {
	var requested []string
	store := &mocks.MockSecretStore{
		GetSecretFunc: func(ctx context.Context, projectID, name string) (string, error) {
			assert.Equal(t, "proj-1", projectID)
			requested = append(requested, name)
			return "value-of-" + name, nil
		},
	}

	bundle, err := credentials.NewResolver(store, "proj-1", credentials.DefaultNames()).Resolve(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "value-of-salesforce-username", bundle.CRMUsername)
	assert.Equal(t, "value-of-salesforce-password", bundle.CRMPassword)
	assert.Equal(t, "value-of-salesforce-token", bundle.CRMSecurityToken)
	assert.Equal(t, "value-of-salesforce-instance-url", bundle.CRMInstanceURL)
	assert.Equal(t, "value-of-gmail-client-id", bundle.MailClientID)
	assert.Equal(t, "value-of-gmail-client-secret", bundle.MailClientSecret)
	assert.Equal(t, "value-of-gmail-refresh-token", bundle.MailRefreshToken)
	assert.Len(t, requested, 7)
}

func TestResolve_PasswordAndTokenStaySeparate(t *testing.T) {
	store := &mocks.MockSecretStore{
		GetSecretFunc: func(ctx context.Context, projectID, name string) (string, error) {
			switch name {
			case "salesforce-password":
				return "hunter2", nil
			case "salesforce-token":
				return "TOKEN", nil
			}
			return "x", nil
		},
	}

	bundle, err := credentials.NewResolver(store, "p", credentials.DefaultNames()).Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hunter2", bundle.CRMPassword)
	assert.Equal(t, "TOKEN", bundle.CRMSecurityToken)
}

func TestResolve_FailsFastOnFirstError(t *testing.T) {
	calls := 0
	store := &mocks.MockSecretStore{
		GetSecretFunc: func(ctx context.Context, projectID, name string) (string, error) {
			calls++
			if name == "salesforce-password" {
				return "", failure.ForField(failure.SecretNotFound, name, errors.New("NotFound"))
			}
			return "v", nil
		},
	}

	bundle, err := credentials.NewResolver(store, "p", credentials.DefaultNames()).Resolve(context.Background())
	assert.Nil(t, bundle)
	assert.Equal(t, failure.SecretNotFound, failure.CodeOf(err))
	assert.Equal(t, 2, calls, "resolver must stop after the failing secret")
}

func TestResolve_MissingMailSecretIsFatal(t *testing.T) {
	store := &mocks.MockSecretStore{
		GetSecretFunc: func(ctx context.Context, projectID, name string) (string, error) {
			if name == "gmail-refresh-token" {
				return "", fmt.Errorf("permission denied")
			}
			return "v", nil
		},
	}

	_, err := credentials.NewResolver(store, "p", credentials.DefaultNames()).Resolve(context.Background())
	require.Error(t, err)
	assert.Equal(t, failure.SecretAccessDenied, failure.CodeOf(err))

	var fe *failure.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "gmail-refresh-token", fe.Field)
}

func TestResolve_EmptyValueIsNotFound(t *testing.T) {
	store := &mocks.MockSecretStore{
		GetSecretFunc: func(ctx context.Context, projectID, name string) (string, error) {
			return "", nil
		},
	}

	_, err := credentials.NewResolver(store, "p", credentials.DefaultNames()).Resolve(context.Background())
	assert.Equal(t, failure.SecretNotFound, failure.CodeOf(err))
}

func TestBundle_NeverRendersSecrets(t *testing.T) {
	b := &credentials.Bundle{
		CRMUsername:      "ops@example.com",
		CRMPassword:      "hunter2",
		CRMSecurityToken: "TOKEN123",
		CRMInstanceURL:   "https://example.my.salesforce.com",
		MailRefreshToken: "1//refresh",
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logger.Info("resolved", "bundle", b)

	out := buf.String() + fmt.Sprintf("%v %+v %#v %s", b, b, b, b)
	for _, secret := range []string{"ops@example.com", "hunter2", "TOKEN123", "1//refresh"} {
		assert.NotContains(t, out, secret)
	}
	assert.Contains(t, buf.String(), "https://example.my.salesforce.com")
}
