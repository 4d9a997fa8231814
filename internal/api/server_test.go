package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/tradelens/analytics-backend/internal/analytics"
	"github.com/tradelens/analytics-backend/internal/api"
	"github.com/tradelens/analytics-backend/internal/fx"
	"github.com/tradelens/analytics-backend/pkg/types"
)

func newTestServer() *api.Server {
	logger := zap.NewNop()
	engine := analytics.NewEngine(logger, &fx.StaticRateProvider{})
	return api.NewServer(logger, &types.ServerConfig{
		Host:          "localhost",
		Port:          0,
		WebSocketPath: "/ws",
	}, engine)
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer()

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("Expected healthy status, got %v", body["status"])
	}
}

func TestAnalyzeRoundTrip(t *testing.T) {
	server := newTestServer()

	bundle := `{
		"spotTrades": [
			{"symbol":"BTCUSDT","timestamp":1000,"quantity":"1","price":"100","side":"BUY","commission":"0"},
			{"symbol":"BTCUSDT","timestamp":2000,"quantity":"1","price":"150","side":"SELL","commission":"0"}
		]
	}`

	req := httptest.NewRequest("POST", "/api/v1/analyze", bytes.NewBufferString(bundle))
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		ID     string                 `json:"id"`
		Result *types.AnalyticsResult `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if resp.ID == "" {
		t.Fatal("Response missing analysis id")
	}
	if resp.Result == nil || resp.Result.TotalTrades != 2 {
		t.Fatalf("Unexpected result: %+v", resp.Result)
	}

	// Stored result is retrievable by id
	req = httptest.NewRequest("GET", "/api/v1/analysis/"+resp.ID, nil)
	rec = httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Fetch by id: expected 200, got %d", rec.Code)
	}
	var fetched struct {
		ID     string                 `json:"id"`
		Result *types.AnalyticsResult `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &fetched); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if fetched.ID != resp.ID || fetched.Result.TotalTrades != 2 {
		t.Error("Fetched result does not match the analyzed one")
	}
}

func TestAnalyzeLegacyArray(t *testing.T) {
	server := newTestServer()

	body := `[{"symbol":"ETHUSDT","timestamp":1000,"accountType":"FUTURES","amount":"12"}]`
	req := httptest.NewRequest("POST", "/api/v1/analyze", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Legacy array should analyze, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAnalyzeRejectsMalformedBundle(t *testing.T) {
	server := newTestServer()

	req := httptest.NewRequest("POST", "/api/v1/analyze", bytes.NewBufferString(`{"spotTrades": "nope"}`))
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Error response should be JSON: %v", err)
	}
	if body["error"] == "" || body["error"] == nil {
		t.Error("Error response missing detail")
	}
}

func TestGetAnalysisNotFound(t *testing.T) {
	server := newTestServer()

	req := httptest.NewRequest("GET", "/api/v1/analysis/does-not-exist", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}
