package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bolivia-cpi/internal/national"
	"bolivia-cpi/internal/pipeline"
)

func testServer() *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(nil, DefaultConfig(), logger)
}

func testResult() *pipeline.Result {
	return &pipeline.Result{
		Dataset: &national.Dataset{
			Points: []national.Point{
				{Date: "2025-05-01", Index: 100},
				{Date: "2025-05-02", Index: 110, Inflation: 10},
			},
			CurrentIndex:     110,
			CurrentInflation: 10,
			YoYInflation:     4.2,
			LastUpdated:      "2025-05-02",
			Categories:       map[string]float64{"Alimentos y Bebidas": 63.5},
			RunID:            uuid.New(),
		},
		Warnings: []string{"Testville: no data"},
	}
}

func TestHandleDatasetUnavailable(t *testing.T) {
	s := testServer()

	rec := httptest.NewRecorder()
	s.handleDataset(rec, httptest.NewRequest("GET", "/api/v1/cpi", nil))
	assert.Equal(t, 503, rec.Code)
}

func TestHandleDataset(t *testing.T) {
	s := testServer()
	s.setLatest(testResult())

	rec := httptest.NewRecorder()
	s.handleDataset(rec, httptest.NewRequest("GET", "/api/v1/cpi", nil))
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body pipeline.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Dataset)
	assert.Len(t, body.Dataset.Points, 2)
	assert.Equal(t, []string{"Testville: no data"}, body.Warnings)
}

func TestHandleSummary(t *testing.T) {
	s := testServer()
	result := testResult()
	s.setLatest(result)

	rec := httptest.NewRecorder()
	s.handleSummary(rec, httptest.NewRequest("GET", "/api/v1/cpi/summary", nil))
	require.Equal(t, 200, rec.Code)

	var summary Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 110.0, summary.CurrentIndex)
	assert.Equal(t, 4.2, summary.YoYInflation)
	assert.Equal(t, "2025-05-02", summary.LastUpdated)
	assert.Equal(t, result.Dataset.RunID.String(), summary.RunID)
}

func TestHandleDatasetRejectsPost(t *testing.T) {
	s := testServer()
	s.setLatest(testResult())

	rec := httptest.NewRecorder()
	s.handleDataset(rec, httptest.NewRequest("POST", "/api/v1/cpi", nil))
	assert.Equal(t, 405, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := testServer()
	handler := s.corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("preflight must not reach the inner handler")
	}))

	req := httptest.NewRequest("OPTIONS", "/api/v1/cpi", nil)
	req.Header.Set("Origin", "https://example.org")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, 204, rec.Code)
	assert.Equal(t, "https://example.org", rec.Header().Get("Access-Control-Allow-Origin"))
}
