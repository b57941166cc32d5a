package executions

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/osenchi/internal/workflow"
	"github.com/JaimeStill/osenchi/pkg/handlers"
	"github.com/JaimeStill/osenchi/pkg/middleware"
	"github.com/JaimeStill/osenchi/pkg/pagination"
	"github.com/JaimeStill/osenchi/pkg/routes"
)

// MaxTriggerBytes bounds the body of a start request.
const MaxTriggerBytes = 1 << 20

// Handler provides HTTP endpoints for starting and inspecting executions.
type Handler struct {
	sys        System
	dispatcher Dispatcher
	logger     *slog.Logger
	pagination pagination.Config
}

// NewHandler creates a Handler.
func NewHandler(
	sys System,
	dispatcher Dispatcher,
	logger *slog.Logger,
	pagination pagination.Config,
) *Handler {
	return &Handler{
		sys:        sys,
		dispatcher: dispatcher,
		logger:     logger.With("handler", "executions"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for execution endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/executions",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "POST", Pattern: "", Handler: h.Start},
		},
	}
}

// Start accepts a trigger payload and dispatches an execution for it.
// A caller-supplied X-Request-Id becomes the execution's request id; otherwise
// the trigger id is used. The response is the execution as created, before
// any state has run.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxTriggerBytes))
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		handlers.RespondError(w, h.logger, status, err)
		return
	}

	exec, err := h.dispatcher.Dispatch(r.Context(), r.Header.Get(middleware.RequestIDHeader), body)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusAccepted, exec)
}

// Find returns a single execution by its UUID path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("invalid execution id: %w", err))
		return
	}

	exec, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, exec)
}

// List returns a page of executions, newest first unless sort says otherwise.
// Query parameters: status, request_id, search, sort, page, page_size (or limit).
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filters, err := FiltersFromQuery(r.URL.Query())
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

var _ Dispatcher = (*workflow.Orchestrator)(nil)
