// Package credentials resolves the secrets one pipeline invocation needs.
//
// A Bundle lives for exactly one invocation. Nothing in this package caches
// values between calls: a rotated secret is picked up on the next invocation.
package credentials

import (
	"log/slog"
)

const redacted = "[REDACTED]"

// Bundle holds every secret value an invocation needs. The Salesforce
// password and security token are kept apart; the CRM client combines them
// when it logs in.
type Bundle struct {
	CRMUsername      string
	CRMPassword      string
	CRMSecurityToken string
	CRMInstanceURL   string
	MailClientID     string
	MailClientSecret string
	MailRefreshToken string
}

// String never renders secret values.
func (b *Bundle) String() string {
	return "credentials.Bundle" + redacted
}

// GoString keeps %#v from printing values.
func (b *Bundle) GoString() string {
	return b.String()
}

// LogValue implements slog.LogValuer. Only the non-secret instance URL and
// which values are present are logged.
func (b *Bundle) LogValue() slog.Value {
	if b == nil {
		return slog.StringValue("<nil>")
	}
	return slog.GroupValue(
		slog.String("crm_instance_url", b.CRMInstanceURL),
		slog.String("crm_username", redacted),
		slog.Bool("has_mail_refresh_token", b.MailRefreshToken != ""),
	)
}
