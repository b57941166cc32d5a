// Package executions stores workflow executions and serves them over HTTP.
package executions

import (
	"context"
	"embed"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/JaimeStill/osenchi/internal/workflow"
	"github.com/JaimeStill/osenchi/pkg/pagination"
)

// Migrations holds the schema for the Postgres store.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// System records executions for the orchestrator and exposes them for reads.
type System interface {
	workflow.Recorder

	Handler(dispatcher Dispatcher) *Handler

	Find(ctx context.Context, id uuid.UUID) (*workflow.Execution, error)

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[workflow.Execution], error)
}

// Dispatcher starts an execution in the background.
type Dispatcher interface {
	Dispatch(ctx context.Context, requestID string, input json.RawMessage) (*workflow.Execution, error)
}
