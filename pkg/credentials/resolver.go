package credentials

import (
	"context"
	"fmt"
	"log/slog"

	shared "github.com/fitglue/crm-pipeline/pkg"
	"github.com/fitglue/crm-pipeline/pkg/domain/failure"
)

// Names are the secret-store identifiers for each Bundle field.
type Names struct {
	CRMUsername      string
	CRMPassword      string
	CRMSecurityToken string
	CRMInstanceURL   string
	MailClientID     string
	MailClientSecret string
	MailRefreshToken string
}

// DefaultNames returns the stock secret ids.
func DefaultNames() Names {
	return Names{
		CRMUsername:      shared.SecretSalesforceUsername,
		CRMPassword:      shared.SecretSalesforcePassword,
		CRMSecurityToken: shared.SecretSalesforceToken,
		CRMInstanceURL:   shared.SecretSalesforceInstanceURL,
		MailClientID:     shared.SecretGmailClientID,
		MailClientSecret: shared.SecretGmailClientSecret,
		MailRefreshToken: shared.SecretGmailRefreshToken,
	}
}

// Resolver fetches a fresh Bundle from the secret store on every call.
type Resolver struct {
	store     shared.SecretStore
	projectID string
	names     Names
}

func NewResolver(store shared.SecretStore, projectID string, names Names) *Resolver {
	return &Resolver{store: store, projectID: projectID, names: names}
}

// Resolve fetches each secret in turn and stops at the first failure.
func (r *Resolver) Resolve(ctx context.Context) (*Bundle, error) {
	b := &Bundle{}
	targets := []struct {
		name string
		dst  *string
	}{
		{r.names.CRMUsername, &b.CRMUsername},
		{r.names.CRMPassword, &b.CRMPassword},
		{r.names.CRMSecurityToken, &b.CRMSecurityToken},
		{r.names.CRMInstanceURL, &b.CRMInstanceURL},
		{r.names.MailClientID, &b.MailClientID},
		{r.names.MailClientSecret, &b.MailClientSecret},
		{r.names.MailRefreshToken, &b.MailRefreshToken},
	}

	for _, t := range targets {
		if t.name == "" {
			return nil, failure.ForField(failure.SecretNotFound, "", fmt.Errorf("secret name not configured"))
		}
		value, err := r.store.GetSecret(ctx, r.projectID, t.name)
		if err != nil {
			if failure.CodeOf(err) == failure.Internal {
				err = failure.ForField(failure.SecretAccessDenied, t.name, err)
			}
			return nil, err
		}
		if value == "" {
			return nil, failure.ForField(failure.SecretNotFound, t.name, fmt.Errorf("empty value"))
		}
		*t.dst = value
	}

	slog.Debug("Resolved credentials", "count", len(targets))
	return b, nil
}
