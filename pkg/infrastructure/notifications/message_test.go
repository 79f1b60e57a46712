package notifications

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRFC822_SubjectCannotInjectHeaders(t *testing.T) {
	msg := testMessage()
	msg.Subject = "CRM record 001\r\nBcc: attacker@example.com failed"

	out := string(msg.RFC822())
	headers := out[:strings.Index(out, "\r\n\r\n")]
	assert.NotContains(t, headers, "\r\nBcc:")
	assert.Contains(t, headers, "Subject: CRM record 001 Bcc: attacker@example.com failed")
}

func TestRFC822_EncodesNonASCIISubject(t *testing.T) {
	msg := testMessage()
	msg.Subject = "Müller GmbH stored"

	out := string(msg.RFC822())
	assert.Contains(t, out, "Subject: =?utf-8?q?M=C3=BCller_GmbH_stored?=\r\n")
}

func TestValidate(t *testing.T) {
	msg := testMessage()
	assert.NoError(t, msg.Validate())

	msg.Sender = "not an address"
	assert.Error(t, msg.Validate())

	msg = testMessage()
	msg.Recipients = []string{"ok@example.com", "@@"}
	assert.Error(t, msg.Validate())
}
