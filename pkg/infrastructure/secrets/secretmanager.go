package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fitglue/crm-pipeline/pkg/domain/failure"
)

// SecretsAdapter reads secret payloads from Google Secret Manager.
type SecretsAdapter struct {
	Client *secretmanager.Client
}

func NewSecretsAdapter(ctx context.Context) (*SecretsAdapter, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("secretmanager client: %w", err)
	}
	return &SecretsAdapter{Client: client}, nil
}

// GetSecret returns the latest version of the named secret. Errors are
// classified into SecretNotFound or SecretAccessDenied.
func (a *SecretsAdapter) GetSecret(ctx context.Context, projectID, name string) (string, error) {
	resp, err := a.Client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: ResourceName(projectID, name),
	})
	if err != nil {
		return "", Classify(name, err)
	}

	value := string(resp.GetPayload().GetData())
	if value == "" {
		return "", failure.ForField(failure.SecretNotFound, name, errors.New("empty payload"))
	}
	return value, nil
}

// Close releases the underlying gRPC connection.
func (a *SecretsAdapter) Close() error {
	return a.Client.Close()
}

// ResourceName expands a bare secret id to its latest-version resource path.
// Names that already start with "projects/" are used as given.
func ResourceName(projectID, name string) string {
	if strings.HasPrefix(name, "projects/") {
		if strings.Contains(name, "/versions/") {
			return name
		}
		return name + "/versions/latest"
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", projectID, name)
}

// Classify maps a Secret Manager RPC error to the failure taxonomy.
func Classify(name string, err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return failure.ForField(failure.SecretNotFound, name, err)
	default:
		// PermissionDenied, Unauthenticated and transport failures all mean
		// the value could not be read.
		return failure.ForField(failure.SecretAccessDenied, name, err)
	}
}
