package pipeline

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/fitglue/crm-pipeline/pkg/domain/failure"
)

// Stage names the pipeline step an outcome is attributed to.
type Stage string

const (
	StageInput   Stage = "input"
	StageSecrets Stage = "secrets"
	StageCRM     Stage = "crm"
	StageMapping Stage = "mapping"
	StageStorage Stage = "storage"
	StageNotify  Stage = "notify"
)

// Kind is the terminal classification of one invocation.
type Kind string

const (
	Success        Kind = "success"
	PartialFailure Kind = "partial_failure"
	Failure        Kind = "failure"
)

// StageError ties a taxonomy code to the stage that produced it.
type StageError struct {
	Stage Stage
	Code  failure.Code
	Err   error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Stage, e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Field returns the offending field or secret name, if the cause has one.
func (e *StageError) Field() string {
	var fe *failure.Error
	if errors.As(e.Err, &fe) {
		return fe.Field
	}
	return ""
}

func stageError(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Code: failure.CodeOf(err), Err: err}
}

// Outcome is the result of one invocation. Err is nil exactly when Kind is
// Success.
type Outcome struct {
	Kind     Kind
	RecordID string
	Err      *StageError
}

func succeeded(recordID string) Outcome {
	return Outcome{Kind: Success, RecordID: recordID}
}

func failed(recordID string, stage Stage, err error) Outcome {
	return Outcome{Kind: Failure, RecordID: recordID, Err: stageError(stage, err)}
}

func partiallyFailed(recordID string, stage Stage, err error) Outcome {
	return Outcome{Kind: PartialFailure, RecordID: recordID, Err: stageError(stage, err)}
}

func (o Outcome) Stage() Stage {
	if o.Err == nil {
		return ""
	}
	return o.Err.Stage
}

func (o Outcome) Code() failure.Code {
	if o.Err == nil {
		return ""
	}
	return o.Err.Code
}

// Response is the JSON body returned to the trigger.
type Response struct {
	Outcome  Kind   `json:"outcome"`
	RecordID string `json:"recordId"`
	Stage    Stage  `json:"stage,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (o Outcome) Response() Response {
	return Response{
		Outcome:  o.Kind,
		RecordID: o.RecordID,
		Stage:    o.Stage(),
		Error:    string(o.Code()),
	}
}

// StatusCode maps an outcome to the HTTP status returned to the trigger.
// A notify failure never changes the status: storage is the correctness gate.
func (o Outcome) StatusCode() int {
	if o.Kind != Failure {
		return http.StatusOK
	}
	switch o.Err.Stage {
	case StageInput:
		return http.StatusBadRequest
	case StageCRM, StageStorage:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether redelivering the same event could succeed.
// Bad input and unmappable records fail the same way every time.
func (o Outcome) Retryable() bool {
	if o.Kind != Failure {
		return false
	}
	switch o.Err.Stage {
	case StageInput, StageMapping:
		return false
	}
	return true
}
