package executions

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/JaimeStill/osenchi/internal/workflow"
	"github.com/JaimeStill/osenchi/pkg/query"
	"github.com/JaimeStill/osenchi/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "executions", "e").
	Project("id", "executionId").
	Project("request_id", "requestId").
	Project("status", "status").
	Project("state", "state").
	Project("input", "input").
	Project("payload", "payload").
	Project("error", "error").
	Project("history", "history").
	Project("started_at", "startedAt").
	Project("stopped_at", "stoppedAt")

var defaultSort = query.SortField{
	Field:      "startedAt",
	Descending: true,
}

// Filters narrows execution queries. Nil fields are ignored.
type Filters struct {
	Status    *workflow.Status `json:"status,omitempty"`
	RequestID *string          `json:"request_id,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	var status *string
	if f.Status != nil {
		s := string(*f.Status)
		status = &s
	}
	return b.
		WhereEquals("status", status).
		WhereEquals("requestId", f.RequestID)
}

// Matches reports whether exec satisfies every filter.
func (f Filters) Matches(exec *workflow.Execution) bool {
	if f.Status != nil && exec.Status != *f.Status {
		return false
	}
	if f.RequestID != nil && exec.RequestID != *f.RequestID {
		return false
	}
	return true
}

// FiltersFromQuery extracts filters from query values. An unknown status is
// an error rather than an empty result.
func FiltersFromQuery(values url.Values) (Filters, error) {
	var f Filters

	if s := values.Get("status"); s != "" {
		status := workflow.Status(s)
		if !status.Valid() {
			return f, fmt.Errorf("%w: status %q", ErrInvalidFilter, s)
		}
		f.Status = &status
	}

	if r := values.Get("request_id"); r != "" {
		f.RequestID = &r
	}

	return f, nil
}

func scanExecution(s repository.Scanner) (workflow.Execution, error) {
	var (
		e          workflow.Execution
		input      []byte
		payload    []byte
		errRaw     []byte
		historyRaw []byte
	)

	err := s.Scan(
		&e.ID,
		&e.RequestID,
		&e.Status,
		&e.State,
		&input,
		&payload,
		&errRaw,
		&historyRaw,
		&e.StartedAt,
		&e.StoppedAt,
	)
	if err != nil {
		return e, err
	}

	e.Input = json.RawMessage(input)
	if len(payload) > 0 {
		e.Payload = json.RawMessage(payload)
	}

	if len(errRaw) > 0 {
		var werr workflow.WorkflowError
		if err := json.Unmarshal(errRaw, &werr); err != nil {
			return e, fmt.Errorf("unmarshal error: %w", err)
		}
		e.Error = &werr
	}

	if err := json.Unmarshal(historyRaw, &e.History); err != nil {
		return e, fmt.Errorf("unmarshal history: %w", err)
	}
	if e.History == nil {
		e.History = []workflow.Transition{}
	}

	return e, nil
}

// columns encodes the JSONB columns of exec.
func columns(exec *workflow.Execution) (payload, werr, history []byte, err error) {
	if len(exec.Payload) > 0 {
		payload = exec.Payload
	}
	if exec.Error != nil {
		if werr, err = json.Marshal(exec.Error); err != nil {
			return nil, nil, nil, fmt.Errorf("marshal error: %w", err)
		}
	}
	history, err = json.Marshal(exec.History)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal history: %w", err)
	}
	return payload, werr, history, nil
}
