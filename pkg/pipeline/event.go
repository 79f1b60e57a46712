package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fitglue/crm-pipeline/pkg/domain/failure"
)

// InboundEvent is the trigger payload: one CRM record identifier.
type InboundEvent struct {
	RecordID string
}

// ParseInboundEvent decodes {"recordId": "..."}. Older callers sent an
// array of ids; only the first element is honored.
func ParseInboundEvent(body []byte) (InboundEvent, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return InboundEvent{}, failure.New(failure.MalformedInput, errors.New("empty request body"))
	}

	var payload struct {
		RecordID json.RawMessage `json:"recordId"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return InboundEvent{}, failure.New(failure.MalformedInput, fmt.Errorf("decode body: %w", err))
	}

	id, err := recordIDFrom(payload.RecordID)
	if err != nil {
		return InboundEvent{}, failure.ForField(failure.MalformedInput, "recordId", err)
	}
	return InboundEvent{RecordID: id}, nil
}

func recordIDFrom(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", errors.New("missing")
	}

	var id string
	switch raw[0] {
	case '"':
		if err := json.Unmarshal(raw, &id); err != nil {
			return "", err
		}
	case '[':
		var ids []json.RawMessage
		if err := json.Unmarshal(raw, &ids); err != nil {
			return "", err
		}
		if len(ids) == 0 {
			return "", errors.New("empty list")
		}
		return recordIDFrom(ids[0])
	default:
		return "", errors.New("must be a string")
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.New("empty")
	}
	return id, nil
}
