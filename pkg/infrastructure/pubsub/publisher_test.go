package pubsub

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMessage_BinaryMode(t *testing.T) {
	e, err := NewCloudEvent("/crm-pipeline/test", "com.example.outcome", map[string]string{"recordId": "001"})
	require.NoError(t, err)
	e.SetID("exec-1")
	e.SetSubject("001")

	msg, err := toMessage(e)
	require.NoError(t, err)

	assert.Equal(t, "exec-1", msg.Attributes["ce-id"])
	assert.Equal(t, "com.example.outcome", msg.Attributes["ce-type"])
	assert.Equal(t, "/crm-pipeline/test", msg.Attributes["ce-source"])
	assert.Equal(t, "001", msg.Attributes["ce-subject"])
	assert.Equal(t, "application/json", msg.Attributes["content-type"])
	assert.NotEmpty(t, msg.Attributes["ce-time"])

	var data map[string]string
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, "001", data["recordId"])
}

func TestToMessage_RejectsInvalidEvent(t *testing.T) {
	e, err := NewCloudEvent("", "com.example.outcome", map[string]string{})
	require.NoError(t, err)

	_, err = toMessage(e)
	assert.Error(t, err)
}

func TestLogPublisher(t *testing.T) {
	e, err := NewCloudEvent("/src", "com.example.outcome", map[string]int{"n": 1})
	require.NoError(t, err)

	id, err := (&LogPublisher{}).PublishCloudEvent(context.Background(), "outcomes", e)
	require.NoError(t, err)
	assert.Equal(t, "mock-msg-id", id)
}
