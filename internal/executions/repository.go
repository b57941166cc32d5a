package executions

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/osenchi/internal/workflow"
	"github.com/JaimeStill/osenchi/pkg/pagination"
	"github.com/JaimeStill/osenchi/pkg/query"
	"github.com/JaimeStill/osenchi/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a Postgres-backed execution store.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "executions"),
		pagination: pagination,
	}
}

func (r *repo) Handler(dispatcher Dispatcher) *Handler {
	return NewHandler(r, dispatcher, r.logger, r.pagination)
}

func (r *repo) Create(ctx context.Context, exec *workflow.Execution) error {
	payload, werr, history, err := columns(exec)
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO executions (id, request_id, status, state, input, payload, error, history, started_at, stopped_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = r.db.ExecContext(ctx, q,
		exec.ID,
		exec.RequestID,
		string(exec.Status),
		exec.State,
		[]byte(exec.Input),
		payload,
		werr,
		history,
		exec.StartedAt,
		exec.StoppedAt,
	)
	if err != nil {
		return fmt.Errorf("insert execution %s: %w", exec.ID, repository.MapError(err, ErrNotFound, ErrDuplicate))
	}
	return nil
}

func (r *repo) Update(ctx context.Context, exec *workflow.Execution) error {
	payload, werr, history, err := columns(exec)
	if err != nil {
		return err
	}

	const q = `
		UPDATE executions
		SET status = $2, state = $3, payload = $4, error = $5, history = $6, stopped_at = $7
		WHERE id = $1`

	err = repository.ExecExpectOne(ctx, r.db, q,
		exec.ID,
		string(exec.Status),
		exec.State,
		payload,
		werr,
		history,
		exec.StoppedAt,
	)
	if err != nil {
		return fmt.Errorf("update execution %s: %w", exec.ID, repository.MapError(err, ErrNotFound, ErrDuplicate))
	}
	return nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*workflow.Execution, error) {
	q, args := query.NewBuilder(projection).BuildSingle("executionId", id)

	e, err := repository.QueryOne(ctx, r.db, q, args, scanExecution)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &e, nil
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[workflow.Execution], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "requestId", "state")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count executions: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanExecution)
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}
