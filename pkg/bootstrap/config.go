package bootstrap

import (
	"errors"
	"fmt"
	"net/mail"
	"os"
	"strconv"
	"strings"
	"time"

	shared "github.com/fitglue/crm-pipeline/pkg"
	"github.com/fitglue/crm-pipeline/pkg/credentials"
)

// Config holds everything read from the environment at cold start.
type Config struct {
	ProjectID string

	BigQueryProject  string
	Dataset          string
	Table            string
	DedupeByRecordID bool

	Sender     string
	Recipients []string

	MappingFile string
	MappingJSON string

	SalesforceAPIVersion string
	SalesforceSObject    string
	SalesforceTimeout    time.Duration
	StageTimeout         time.Duration

	SecretNames credentials.Names

	EnablePublish   bool
	OutcomeTopic    string
	FailedRowBucket string

	SentryDSN         string
	SentryEnvironment string

	LogLevel string
	Port     string
}

// LoadConfig reads configuration from environment variables and validates it.
func LoadConfig() (*Config, error) {
	projectID := firstNonEmpty(os.Getenv("GOOGLE_CLOUD_PROJECT"), os.Getenv("GCP_PROJECT"), shared.ProjectID)

	cfg := &Config{
		ProjectID:            projectID,
		BigQueryProject:      firstNonEmpty(os.Getenv("BIGQUERY_PROJECT"), projectID),
		Dataset:              os.Getenv("BIGQUERY_DATASET"),
		Table:                os.Getenv("BIGQUERY_TABLE"),
		DedupeByRecordID:     os.Getenv("BIGQUERY_DEDUPE_BY_RECORD_ID") == "true",
		Sender:               strings.TrimSpace(os.Getenv("FROM_EMAIL")),
		Recipients:           splitList(os.Getenv("TO_EMAILS")),
		MappingFile:          os.Getenv("FIELD_MAPPING_FILE"),
		MappingJSON:          os.Getenv("FIELD_MAPPING_JSON"),
		SalesforceAPIVersion: firstNonEmpty(os.Getenv("SALESFORCE_API_VERSION"), shared.DefaultSalesforceAPIVersion),
		SalesforceSObject:    firstNonEmpty(os.Getenv("SALESFORCE_SOBJECT"), shared.DefaultSalesforceSObject),
		SecretNames:          secretNames(),
		EnablePublish:        os.Getenv("ENABLE_PUBLISH") == "true",
		OutcomeTopic:         os.Getenv("OUTCOME_TOPIC"),
		FailedRowBucket:      os.Getenv("GCS_FAILED_ROW_BUCKET"),
		SentryDSN:            os.Getenv("SENTRY_DSN"),
		SentryEnvironment:    firstNonEmpty(os.Getenv("SENTRY_ENVIRONMENT"), "production"),
		LogLevel:             os.Getenv("LOG_LEVEL"),
		Port:                 firstNonEmpty(os.Getenv("PORT"), "8080"),
	}

	var err error
	if cfg.SalesforceTimeout, err = durationEnv("SALESFORCE_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.StageTimeout, err = durationEnv("STAGE_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every missing or malformed required setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Dataset == "" {
		errs = append(errs, errors.New("BIGQUERY_DATASET is required"))
	}
	if c.Table == "" {
		errs = append(errs, errors.New("BIGQUERY_TABLE is required"))
	}
	if c.Sender == "" {
		errs = append(errs, errors.New("FROM_EMAIL is required"))
	} else if _, err := mail.ParseAddress(c.Sender); err != nil {
		errs = append(errs, fmt.Errorf("FROM_EMAIL: %w", err))
	}
	if len(c.Recipients) == 0 {
		errs = append(errs, errors.New("TO_EMAILS is required"))
	}
	for _, r := range c.Recipients {
		if _, err := mail.ParseAddress(r); err != nil {
			errs = append(errs, fmt.Errorf("TO_EMAILS %q: %w", r, err))
		}
	}
	if c.MappingFile != "" && c.MappingJSON != "" {
		errs = append(errs, errors.New("set only one of FIELD_MAPPING_FILE and FIELD_MAPPING_JSON"))
	}
	if errs != nil {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

func secretNames() credentials.Names {
	n := credentials.DefaultNames()
	override := func(env string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			*dst = v
		}
	}
	override("SECRET_SALESFORCE_USERNAME", &n.CRMUsername)
	override("SECRET_SALESFORCE_PASSWORD", &n.CRMPassword)
	override("SECRET_SALESFORCE_TOKEN", &n.CRMSecurityToken)
	override("SECRET_SALESFORCE_INSTANCE_URL", &n.CRMInstanceURL)
	override("SECRET_GMAIL_CLIENT_ID", &n.MailClientID)
	override("SECRET_GMAIL_CLIENT_SECRET", &n.MailClientSecret)
	override("SECRET_GMAIL_REFRESH_TOKEN", &n.MailRefreshToken)
	return n
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
