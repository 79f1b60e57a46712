package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/fitglue/crm-pipeline/pkg/domain/mapping"
	"github.com/fitglue/crm-pipeline/pkg/infrastructure/notifications"
)

func (p *Pipeline) successMessage(recordID string, row mapping.Row, executionID string) notifications.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "CRM record %s was stored in %s.\n\n", recordID, p.writer.Target())
	b.WriteString("Columns:\n")
	for _, c := range row.Columns {
		fmt.Fprintf(&b, "  %s: %s\n", c.Name, formatValue(c.Value))
	}
	fmt.Fprintf(&b, "\nExecution: %s\n", executionID)

	return p.message(fmt.Sprintf("CRM record %s stored in %s", recordID, p.writer.Target()), b.String())
}

func (p *Pipeline) failureMessage(recordID string, serr *StageError, executionID string) notifications.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "CRM record %s could not be stored in %s.\n\n", recordID, p.writer.Target())
	fmt.Fprintf(&b, "Stage: %s\n", serr.Stage)
	if f := serr.Field(); f != "" {
		fmt.Fprintf(&b, "Error: %s(%s)\n", serr.Code, f)
	} else {
		fmt.Fprintf(&b, "Error: %s\n", serr.Code)
	}
	fmt.Fprintf(&b, "\nExecution: %s\n", executionID)

	return p.message(fmt.Sprintf("CRM record %s failed at %s", recordID, serr.Stage), b.String())
}

func (p *Pipeline) message(subject, body string) notifications.Message {
	recipients := make([]string, len(p.settings.Recipients))
	copy(recipients, p.settings.Recipients)
	return notifications.Message{
		Subject:    subject,
		Body:       body,
		Recipients: recipients,
		Sender:     p.settings.Sender,
	}
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "(null)"
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	}
	return fmt.Sprint(v)
}
