package executions

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/osenchi/internal/workflow"
)

type rowScanner struct {
	values []any
}

func (r rowScanner) Scan(dest ...any) error {
	for i, d := range dest {
		switch p := d.(type) {
		case *uuid.UUID:
			*p = r.values[i].(uuid.UUID)
		case *string:
			*p = r.values[i].(string)
		case *workflow.Status:
			*p = workflow.Status(r.values[i].(string))
		case *[]byte:
			if r.values[i] != nil {
				*p = r.values[i].([]byte)
			}
		case *time.Time:
			*p = r.values[i].(time.Time)
		case **time.Time:
			if r.values[i] != nil {
				t := r.values[i].(time.Time)
				*p = &t
			}
		}
	}
	return nil
}

func TestScanRoundTripsColumns(t *testing.T) {
	stopped := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	exec := &workflow.Execution{
		ID:        uuid.New(),
		RequestID: "req-1",
		Status:    workflow.StatusFailed,
		State:     workflow.StateFail,
		Input:     json.RawMessage(`{"id":"req-1"}`),
		Payload:   json.RawMessage(`{"error":{"originStep":"Sentiment","cause":"boom"}}`),
		Error:     &workflow.WorkflowError{OriginStep: workflow.StateSentiment, Cause: "boom"},
		History: []workflow.Transition{
			{State: workflow.StateParallel, Event: workflow.EventEntered, At: stopped.Add(-time.Minute)},
		},
		StartedAt: stopped.Add(-time.Minute),
		StoppedAt: &stopped,
	}

	payload, werr, history, err := columns(exec)
	if err != nil {
		t.Fatalf("columns() error = %v", err)
	}

	got, err := scanExecution(rowScanner{values: []any{
		exec.ID, exec.RequestID, string(exec.Status), exec.State,
		[]byte(exec.Input), payload, werr, history, exec.StartedAt, stopped,
	}})
	if err != nil {
		t.Fatalf("scanExecution() error = %v", err)
	}

	if got.Error == nil || *got.Error != *exec.Error {
		t.Errorf("Error = %+v, want %+v", got.Error, exec.Error)
	}
	if len(got.History) != 1 || got.History[0].Event != workflow.EventEntered {
		t.Errorf("History = %+v", got.History)
	}
	if got.StoppedAt == nil || !got.StoppedAt.Equal(stopped) {
		t.Errorf("StoppedAt = %v, want %v", got.StoppedAt, stopped)
	}
}

func TestScanRunningExecution(t *testing.T) {
	got, err := scanExecution(rowScanner{values: []any{
		uuid.New(), "req-2", "RUNNING", workflow.StateParallel,
		[]byte(`{}`), nil, nil, []byte(`null`), time.Now(), nil,
	}})
	if err != nil {
		t.Fatalf("scanExecution() error = %v", err)
	}
	if got.Error != nil || got.Payload != nil || got.StoppedAt != nil {
		t.Errorf("got = %+v, want no error, payload, or stop time", got)
	}
	if got.History == nil {
		t.Error("History is nil, want empty slice")
	}
}
