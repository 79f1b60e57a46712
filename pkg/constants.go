package shared

const (
	ProjectID   = "crm-pipeline-project" // Can be overridden by GOOGLE_CLOUD_PROJECT
	ServiceName = "crm-trigger"

	// Default Secret Manager secret ids. Each can be overridden with the
	// matching SECRET_* environment variable.
	SecretSalesforceUsername    = "salesforce-username"
	SecretSalesforcePassword    = "salesforce-password"
	SecretSalesforceToken       = "salesforce-token"
	SecretSalesforceInstanceURL = "salesforce-instance-url"
	SecretGmailClientID         = "gmail-client-id"
	SecretGmailClientSecret     = "gmail-client-secret"
	SecretGmailRefreshToken     = "gmail-refresh-token"

	DefaultSalesforceAPIVersion = "59.0"
	DefaultSalesforceSObject    = "Account"

	EventTypeOutcome = "com.crmpipeline.record.outcome"
	EventSource      = "/crm-pipeline/crm-trigger"

	FailedRowPrefix = "failed-rows"
)
