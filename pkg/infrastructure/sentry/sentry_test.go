package sentry

import (
	"errors"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_EmptyDSNDisables(t *testing.T) {
	require.NoError(t, Init(Config{}, nil))
	CaptureException(errors.New("ignored"), map[string]string{"stage": "crm"}, nil)
}

func TestScrub(t *testing.T) {
	event := &sentry.Event{Request: &sentry.Request{
		Headers: map[string]string{"Authorization": "Bearer abc", "Cookie": "sid=1", "Content-Type": "application/json"},
		Data:    `{"recordId":"001"}`,
	}}

	out := scrub(event, nil)

	assert.NotContains(t, out.Request.Headers, "Authorization")
	assert.NotContains(t, out.Request.Headers, "Cookie")
	assert.Equal(t, "application/json", out.Request.Headers["Content-Type"])
	assert.Empty(t, out.Request.Data)
}

func TestCapturePanic(t *testing.T) {
	cause := errors.New("nil map")
	err := CapturePanic(cause, nil, nil)
	assert.ErrorIs(t, err, cause)

	err = CapturePanic("boom", nil, nil)
	assert.EqualError(t, err, "panic: boom")
}
