package workflow

import (
	"context"
	"encoding/json"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle status of an execution.
type Status string

const (
	StatusRunning   Status = "RUNNING"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusRunning, StatusSucceeded, StatusFailed:
		return true
	}
	return false
}

// Event is a history entry kind.
type Event string

const (
	EventEntered Event = "Entered"
	EventExited  Event = "Exited"
	EventFailed  Event = "Failed"
	EventCaught  Event = "Caught"
)

// Transition is one history entry.
type Transition struct {
	State string    `json:"state"`
	Event Event     `json:"event"`
	Error string    `json:"error,omitempty"`
	At    time.Time `json:"at"`
}

// Execution is one orchestrator instance.
type Execution struct {
	ID        uuid.UUID       `json:"executionId"`
	RequestID string          `json:"requestId"`
	Status    Status          `json:"status"`
	State     string          `json:"state"`
	Input     json.RawMessage `json:"input"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Error     *WorkflowError  `json:"error,omitempty"`
	History   []Transition    `json:"history"`
	StartedAt time.Time       `json:"startedAt"`
	StoppedAt *time.Time      `json:"stoppedAt,omitempty"`
}

// Clone returns a deep copy of e.
func (e *Execution) Clone() *Execution {
	c := *e
	c.Input = slices.Clone(e.Input)
	c.Payload = slices.Clone(e.Payload)
	c.History = slices.Clone(e.History)
	if e.Error != nil {
		werr := *e.Error
		c.Error = &werr
	}
	if e.StoppedAt != nil {
		t := *e.StoppedAt
		c.StoppedAt = &t
	}
	return &c
}

// Recorder persists execution state. Create is called once before the first
// state runs; Update after every transition.
type Recorder interface {
	Create(ctx context.Context, exec *Execution) error
	Update(ctx context.Context, exec *Execution) error
}
