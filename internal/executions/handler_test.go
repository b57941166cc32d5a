package executions_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/osenchi/internal/executions"
	"github.com/JaimeStill/osenchi/internal/workflow"
	"github.com/JaimeStill/osenchi/pkg/middleware"
	"github.com/JaimeStill/osenchi/pkg/pagination"
	"github.com/JaimeStill/osenchi/pkg/routes"
)

type mockDispatcher struct {
	requestID string
	err       error
}

func (m *mockDispatcher) Dispatch(ctx context.Context, requestID string, input json.RawMessage) (*workflow.Execution, error) {
	m.requestID = requestID
	if m.err != nil {
		return nil, m.err
	}
	return newExecution(requestID, workflow.StatusRunning, time.Now()), nil
}

func setupMux(h *executions.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	routes.Register(mux, h.Routes())
	return mux
}

func TestHandlerStart(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"accepted", nil, http.StatusAccepted},
		{"invalid input", workflow.ErrInvalidInput, http.StatusBadRequest},
		{"shutting down", workflow.ErrShuttingDown, http.StatusServiceUnavailable},
		{"store failure", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := executions.NewMemory(discardLogger(), pageConfig())
			dispatcher := &mockDispatcher{err: tt.err}
			mux := setupMux(store.Handler(dispatcher))

			body := `{"id":"evt-1","detail":{"requestParameters":{"bucketName":"in","key":"a.jsonl"}}}`
			req := httptest.NewRequest("POST", "/executions", strings.NewReader(body))
			req.Header.Set(middleware.RequestIDHeader, "req-42")
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body)
			}
			if dispatcher.requestID != "req-42" {
				t.Errorf("request id = %q, want req-42", dispatcher.requestID)
			}
			if tt.err != nil {
				return
			}

			var exec workflow.Execution
			if err := json.NewDecoder(rec.Body).Decode(&exec); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if exec.Status != workflow.StatusRunning {
				t.Errorf("status = %s, want RUNNING", exec.Status)
			}
		})
	}
}

func TestHandlerStartBodyTooLarge(t *testing.T) {
	store := executions.NewMemory(discardLogger(), pageConfig())
	mux := setupMux(store.Handler(&mockDispatcher{}))

	body := `{"pad":"` + strings.Repeat("x", executions.MaxTriggerBytes) + `"}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/executions", strings.NewReader(body)))

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestHandlerFind(t *testing.T) {
	store := executions.NewMemory(discardLogger(), pageConfig())
	exec := newExecution("req-1", workflow.StatusSucceeded, time.Now())
	seed(t, store, exec)
	mux := setupMux(store.Handler(&mockDispatcher{}))

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"found", "/executions/" + exec.ID.String(), http.StatusOK},
		{"not found", "/executions/" + uuid.NewString(), http.StatusNotFound},
		{"invalid id", "/executions/not-a-uuid", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestHandlerList(t *testing.T) {
	store := executions.NewMemory(discardLogger(), pageConfig())
	base := time.Now()
	seed(t, store,
		newExecution("req-1", workflow.StatusFailed, base),
		newExecution("req-2", workflow.StatusSucceeded, base.Add(time.Second)),
		newExecution("req-3", workflow.StatusFailed, base.Add(2*time.Second)),
	)
	mux := setupMux(store.Handler(&mockDispatcher{}))

	t.Run("filtered with limit", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", "/executions?status=FAILED&limit=1", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var result pagination.PageResult[workflow.Execution]
		if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if result.Total != 2 || result.PageSize != 1 || result.TotalPages != 2 {
			t.Errorf("result = total %d size %d pages %d", result.Total, result.PageSize, result.TotalPages)
		}
		if len(result.Data) != 1 || result.Data[0].RequestID != "req-3" {
			t.Errorf("Data = %+v, want req-3", result.Data)
		}
	})

	t.Run("invalid status", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", "/executions?status=bogus", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHandlerWithOrchestrator(t *testing.T) {
	cfg := &workflow.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	def, err := workflow.Pipeline(cfg)
	if err != nil {
		t.Fatalf("Pipeline() error = %v", err)
	}

	pass := func(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
		return input, nil
	}
	steps := map[string]workflow.Step{
		workflow.StateSentiment:     pass,
		workflow.StateDeletion:      pass,
		workflow.StateSuccessNotify: pass,
		workflow.StateErrorNotify:   pass,
	}

	store := executions.NewMemory(discardLogger(), pageConfig())
	orch, err := workflow.New(def, steps, store, cfg, discardLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	mux := setupMux(store.Handler(orch))

	body := `{"id":"evt-9","detail":{"requestParameters":{"bucketName":"in","key":"a.jsonl"}}}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/executions", strings.NewReader(body)))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body)
	}

	var started workflow.Execution
	if err := json.NewDecoder(rec.Body).Decode(&started); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if started.RequestID != "evt-9" {
		t.Errorf("RequestID = %q, want trigger id evt-9", started.RequestID)
	}

	orch.Wait()

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/executions/"+started.ID.String(), nil))

	var final workflow.Execution
	if err := json.NewDecoder(rec.Body).Decode(&final); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if final.Status != workflow.StatusSucceeded || final.StoppedAt == nil {
		t.Errorf("final = %s stopped %v, want SUCCEEDED with stop time", final.Status, final.StoppedAt)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/executions", strings.NewReader(`[1,2]`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("non-object trigger status = %d, want 400", rec.Code)
	}
}
