package executions

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/osenchi/internal/workflow"
	"github.com/JaimeStill/osenchi/pkg/repository"
)

// Domain errors for execution operations.
var (
	ErrNotFound      = errors.New("execution not found")
	ErrDuplicate     = errors.New("execution already exists")
	ErrInvalidFilter = errors.New("invalid execution filter")
)

// MapHTTPStatus maps execution and workflow errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidFilter), errors.Is(err, workflow.ErrInvalidInput), errors.Is(err, repository.ErrConstraint):
		return http.StatusBadRequest
	case errors.Is(err, workflow.ErrShuttingDown):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
