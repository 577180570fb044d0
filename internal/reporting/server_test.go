package reporting

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"github.com/glycovedic/glycosearch/pkg/types"
)

func newTestServer() (*Server, *mux.Router) {
	s := NewServer(NewHub())
	router := mux.NewRouter()
	s.RegisterRoutes(router)
	return s, router
}

func TestHandleHealth(t *testing.T) {
	_, router := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHandleSummaryNotFound(t *testing.T) {
	_, router := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/missing/summary", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleSummaryAndSkipReasons(t *testing.T) {
	s, router := newTestServer()
	summary := types.NewRunSummary()
	summary.SpectraTotal = 10
	summary.SpectraProcessed = 7
	summary.SpectraSkipped[types.SkipNotMS2] = 3
	summary.PSMsEmitted = 5
	s.RecordSummary("run-42", summary)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/run-42/summary", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got types.RunSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.PSMsEmitted != 5 || got.SpectraProcessed != 7 {
		t.Errorf("got %+v", got)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/api/v1/runs/run-42/skips", nil)
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)
	var skips map[types.SkipReason]int
	if err := json.Unmarshal(rec2.Body.Bytes(), &skips); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if skips[types.SkipNotMS2] != 3 {
		t.Errorf("skips[not_ms2] = %d, want 3", skips[types.SkipNotMS2])
	}
}
