package notifications

import (
	"errors"
	"fmt"
	"mime"
	"net/mail"
	"strings"
)

// Message is a plain-text email. Sender and Recipients come from
// deployment configuration only.
type Message struct {
	Subject    string
	Body       string
	Recipients []string
	Sender     string
}

// Validate checks addresses before any network call is made.
func (m Message) Validate() error {
	if m.Sender == "" {
		return errors.New("sender address is empty")
	}
	if _, err := mail.ParseAddress(m.Sender); err != nil {
		return fmt.Errorf("invalid sender %q: %w", m.Sender, err)
	}
	if len(m.Recipients) == 0 {
		return errors.New("no recipients configured")
	}
	for _, r := range m.Recipients {
		if _, err := mail.ParseAddress(r); err != nil {
			return fmt.Errorf("invalid recipient %q: %w", r, err)
		}
	}
	return nil
}

// RFC822 renders the message with CRLF line endings.
func (m Message) RFC822() []byte {
	var b strings.Builder
	header := func(k, v string) {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteString("\r\n")
	}

	header("From", m.Sender)
	header("To", strings.Join(m.Recipients, ", "))
	header("Subject", mime.QEncoding.Encode("utf-8", singleLine(m.Subject)))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/plain; charset="UTF-8"`)
	header("Content-Transfer-Encoding", "8bit")
	b.WriteString("\r\n")

	body := strings.ReplaceAll(m.Body, "\r\n", "\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}

// singleLine collapses CR and LF so a subject can never start a new header.
func singleLine(s string) string {
	return strings.Join(strings.Fields(strings.NewReplacer("\r", " ", "\n", " ").Replace(s)), " ")
}
