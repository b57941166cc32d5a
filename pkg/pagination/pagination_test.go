package pagination_test

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/JaimeStill/osenchi/pkg/pagination"
)

func defaultConfig() pagination.Config {
	return pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}
}

func TestConfigFinalize(t *testing.T) {
	t.Setenv("TEST_PAGE_SIZE", "50")

	cfg := pagination.Config{}
	if err := cfg.Finalize(&pagination.Env{DefaultPageSize: "TEST_PAGE_SIZE"}); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if cfg.DefaultPageSize != 50 || cfg.MaxPageSize != 100 {
		t.Errorf("cfg = %+v, want 50/100", cfg)
	}

	bad := pagination.Config{DefaultPageSize: 200, MaxPageSize: 100}
	if err := bad.Finalize(nil); err == nil {
		t.Error("expected error when default exceeds max")
	}
}

func TestPageRequestFromQuery(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		wantPage     int
		wantPageSize int
	}{
		{"defaults", "", 1, 20},
		{"explicit", "page=3&page_size=10", 3, 10},
		{"limit alias", "limit=5", 1, 5},
		{"page_size wins over limit", "page_size=7&limit=5", 1, 7},
		{"clamped to max", "page_size=1000", 1, 100},
		{"invalid values", "page=-2&page_size=abc", 1, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, _ := url.ParseQuery(tt.query)
			req := pagination.PageRequestFromQuery(values, defaultConfig())

			if req.Page != tt.wantPage || req.PageSize != tt.wantPageSize {
				t.Errorf("got page=%d size=%d, want page=%d size=%d",
					req.Page, req.PageSize, tt.wantPage, tt.wantPageSize)
			}
		})
	}
}

func TestPageRequestOffset(t *testing.T) {
	req := pagination.PageRequest{Page: 3, PageSize: 10}
	if got := req.Offset(); got != 20 {
		t.Errorf("Offset() = %d, want 20", got)
	}
}

func TestSortFieldsUnmarshal(t *testing.T) {
	var fromString pagination.PageRequest
	if err := json.Unmarshal([]byte(`{"sort":"-startedAt"}`), &fromString); err != nil {
		t.Fatalf("unmarshal string form: %v", err)
	}
	if len(fromString.Sort) != 1 || !fromString.Sort[0].Descending {
		t.Errorf("string form = %+v", fromString.Sort)
	}

	var fromArray pagination.PageRequest
	if err := json.Unmarshal([]byte(`{"sort":[{"field":"status","descending":false}]}`), &fromArray); err != nil {
		t.Fatalf("unmarshal array form: %v", err)
	}
	if len(fromArray.Sort) != 1 || fromArray.Sort[0].Field != "status" {
		t.Errorf("array form = %+v", fromArray.Sort)
	}
}

func TestNewPageResult(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		pageSize  int
		wantPages int
	}{
		{"empty", 0, 20, 1},
		{"exact", 40, 20, 2},
		{"remainder", 41, 20, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := pagination.NewPageResult[int](nil, tt.total, 1, tt.pageSize)
			if result.TotalPages != tt.wantPages {
				t.Errorf("TotalPages = %d, want %d", result.TotalPages, tt.wantPages)
			}
			if result.Data == nil {
				t.Error("Data is nil, want empty slice")
			}
		})
	}
}
