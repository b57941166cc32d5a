package executions

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/JaimeStill/osenchi/internal/workflow"
	"github.com/JaimeStill/osenchi/pkg/pagination"
)

// Memory keeps executions in process. It serves deployments without a
// database and tests.
type Memory struct {
	mu         sync.RWMutex
	items      map[uuid.UUID]*workflow.Execution
	logger     *slog.Logger
	pagination pagination.Config
}

// NewMemory creates an empty in-process store.
func NewMemory(logger *slog.Logger, pagination pagination.Config) *Memory {
	return &Memory{
		items:      make(map[uuid.UUID]*workflow.Execution),
		logger:     logger.With("system", "executions", "store", "memory"),
		pagination: pagination,
	}
}

func (m *Memory) Handler(dispatcher Dispatcher) *Handler {
	return NewHandler(m, dispatcher, m.logger, m.pagination)
}

func (m *Memory) Create(ctx context.Context, exec *workflow.Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[exec.ID]; ok {
		return fmt.Errorf("insert execution %s: %w", exec.ID, ErrDuplicate)
	}
	m.items[exec.ID] = exec.Clone()
	return nil
}

func (m *Memory) Update(ctx context.Context, exec *workflow.Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[exec.ID]; !ok {
		return fmt.Errorf("update execution %s: %w", exec.ID, ErrNotFound)
	}
	m.items[exec.ID] = exec.Clone()
	return nil
}

func (m *Memory) Find(ctx context.Context, id uuid.UUID) (*workflow.Execution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	exec, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return exec.Clone(), nil
}

func (m *Memory) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[workflow.Execution], error) {
	page.Normalize(m.pagination)

	m.mu.RLock()
	matched := make([]workflow.Execution, 0, len(m.items))
	for _, exec := range m.items {
		if filters.Matches(exec) && matchesSearch(exec, page.Search) {
			matched = append(matched, *exec.Clone())
		}
	}
	m.mu.RUnlock()

	slices.SortFunc(matched, compareBy(page.Sort))

	total := len(matched)
	start := min(page.Offset(), total)
	end := min(start+page.PageSize, total)

	result := pagination.NewPageResult(matched[start:end], total, page.Page, page.PageSize)
	return &result, nil
}

func matchesSearch(exec *workflow.Execution, search *string) bool {
	if search == nil || *search == "" {
		return true
	}
	s := strings.ToLower(*search)
	return strings.Contains(strings.ToLower(exec.RequestID), s) ||
		strings.Contains(strings.ToLower(exec.State), s)
}

// compareBy orders executions by the sortable fields the projection exposes,
// falling back to newest first.
func compareBy(sort pagination.SortFields) func(a, b workflow.Execution) int {
	keys := map[string]func(a, b workflow.Execution) int{
		"startedAt": func(a, b workflow.Execution) int { return a.StartedAt.Compare(b.StartedAt) },
		"status":    func(a, b workflow.Execution) int { return cmp.Compare(a.Status, b.Status) },
		"requestId": func(a, b workflow.Execution) int { return cmp.Compare(a.RequestID, b.RequestID) },
		"state":     func(a, b workflow.Execution) int { return cmp.Compare(a.State, b.State) },
	}

	type term struct {
		fn   func(a, b workflow.Execution) int
		desc bool
	}
	var terms []term
	for _, f := range sort {
		if fn, ok := keys[f.Field]; ok {
			terms = append(terms, term{fn, f.Descending})
		}
	}
	if len(terms) == 0 {
		terms = []term{{keys[defaultSort.Field], defaultSort.Descending}}
	}

	return func(a, b workflow.Execution) int {
		for _, t := range terms {
			c := t.fn(a, b)
			if t.desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	}
}
