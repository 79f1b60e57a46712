// Package salesforce is a minimal Salesforce client: partner SOAP login and
// a single REST sObject read.
package salesforce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	shared "github.com/fitglue/crm-pipeline/pkg"
	"github.com/fitglue/crm-pipeline/pkg/credentials"
	"github.com/fitglue/crm-pipeline/pkg/domain/failure"
	httputil "github.com/fitglue/crm-pipeline/pkg/infrastructure/http"
)

const (
	defaultTimeout = 30 * time.Second
	// maxResponseBytes caps how much of a login or record response is read.
	maxResponseBytes = 1 << 20
)

// Record is the field set of one sObject as returned by the REST API,
// without the "attributes" metadata entry. Numbers are json.Number.
type Record map[string]any

// ID returns the record's Id field, or "" when absent.
func (r Record) ID() string {
	id, _ := r["Id"].(string)
	return id
}

// Session is an authenticated Salesforce session.
type Session struct {
	ID          string
	InstanceURL string
	UserID      string
}

func (s *Session) String() string {
	return fmt.Sprintf("salesforce.Session{InstanceURL: %s, UserID: %s}", s.InstanceURL, s.UserID)
}

// Config controls API version, object type and timeouts.
type Config struct {
	APIVersion string
	SObject    string
	Timeout    time.Duration
	// Transport is the base RoundTripper; nil uses http.DefaultTransport.
	Transport http.RoundTripper
}

// Client talks to one Salesforce org per call; it holds no session state.
type Client struct {
	apiVersion string
	sobject    string
	timeout    time.Duration
	transport  http.RoundTripper
}

func NewClient(cfg Config) *Client {
	c := &Client{
		apiVersion: cfg.APIVersion,
		sobject:    cfg.SObject,
		timeout:    cfg.Timeout,
		transport:  cfg.Transport,
	}
	if c.apiVersion == "" {
		c.apiVersion = shared.DefaultSalesforceAPIVersion
	}
	if c.sobject == "" {
		c.sobject = shared.DefaultSalesforceSObject
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.transport == nil {
		c.transport = http.DefaultTransport
	}
	return c
}

// Authenticate logs in with the bundle's username and password. The
// security token is appended to the password here, at login time.
func (c *Client) Authenticate(ctx context.Context, b *credentials.Bundle) (*Session, error) {
	instance := strings.TrimRight(b.CRMInstanceURL, "/")
	if instance == "" {
		return nil, failure.New(failure.AuthenticationFailed, errors.New("instance url is empty"))
	}

	envelope, err := buildLoginEnvelope(b.CRMUsername, b.CRMPassword+b.CRMSecurityToken)
	if err != nil {
		return nil, failure.New(failure.AuthenticationFailed, err)
	}

	loginURL := fmt.Sprintf("%s/services/Soap/u/%s", instance, c.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, bytes.NewReader(envelope))
	if err != nil {
		return nil, failure.New(failure.AuthenticationFailed, fmt.Errorf("create login request: %w", err))
	}
	req.Header.Set("Content-Type", "text/xml; charset=UTF-8")
	req.Header.Set("SOAPAction", "login")

	httpClient := &http.Client{Timeout: c.timeout, Transport: c.transport}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, failure.New(failure.AuthenticationFailed, fmt.Errorf("login request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, failure.New(failure.AuthenticationFailed, fmt.Errorf("read login response: %w", err))
	}

	env, parseErr := parseLoginResponse(body)
	if parseErr == nil && env.Body.Fault != nil {
		return nil, failure.New(failure.AuthenticationFailed, env.Body.Fault)
	}
	if resp.StatusCode >= 400 {
		return nil, failure.New(failure.AuthenticationFailed, fmt.Errorf("login failed with status %d", resp.StatusCode))
	}
	if parseErr != nil {
		return nil, failure.New(failure.AuthenticationFailed, parseErr)
	}
	if env.Body.Response == nil || env.Body.Response.Result.SessionID == "" {
		return nil, failure.New(failure.AuthenticationFailed, errors.New("login response has no session id"))
	}

	result := env.Body.Response.Result
	return &Session{
		ID:          result.SessionID,
		InstanceURL: restBase(result.ServerURL, instance),
		UserID:      result.UserID,
	}, nil
}

// FetchRecord reads every field of one record.
func (c *Client) FetchRecord(ctx context.Context, s *Session, recordID string) (Record, error) {
	recordURL := fmt.Sprintf("%s/services/data/v%s/sobjects/%s/%s",
		s.InstanceURL, c.apiVersion, url.PathEscape(c.sobject), url.PathEscape(recordID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, recordURL, nil)
	if err != nil {
		return nil, failure.New(failure.CrmUnavailable, fmt.Errorf("create record request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.sessionClient(s).Do(req)
	if err != nil {
		return nil, failure.New(failure.CrmUnavailable, fmt.Errorf("record request failed: %w", err))
	}
	defer resp.Body.Close()

	if err := httputil.ParseErrorResponse(resp); err != nil {
		switch httputil.StatusCode(err) {
		case http.StatusNotFound:
			return nil, failure.ForField(failure.RecordNotFound, recordID, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, failure.New(failure.AuthenticationFailed, err)
		default:
			return nil, failure.New(failure.CrmUnavailable, err)
		}
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes))
	dec.UseNumber()
	var record Record
	if err := dec.Decode(&record); err != nil {
		return nil, failure.New(failure.CrmUnavailable, fmt.Errorf("decode record: %w", err))
	}
	delete(record, "attributes")

	if record.ID() == "" {
		return nil, failure.New(failure.CrmUnavailable, errors.New("record has no Id field"))
	}
	return record, nil
}

// sessionClient returns an HTTP client that sends the session id as a
// bearer token.
func (c *Client) sessionClient(s *Session) *http.Client {
	return &http.Client{
		Timeout: c.timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: s.ID, TokenType: "Bearer"}),
			Base:   c.transport,
		},
	}
}

// restBase reduces a SOAP serverUrl to scheme://host, falling back to the
// configured instance.
func restBase(serverURL, fallback string) string {
	u, err := url.Parse(serverURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fallback
	}
	return u.Scheme + "://" + u.Host
}
