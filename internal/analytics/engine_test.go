package analytics_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tradelens/analytics-backend/internal/analytics"
	"github.com/tradelens/analytics-backend/internal/fx"
)

func newEngine() *analytics.Engine {
	return analytics.NewEngine(zap.NewNop(), &fx.StaticRateProvider{})
}

func TestAnalyzeRawStructuredBundle(t *testing.T) {
	body := []byte(`{
		"spotTrades": [
			{"symbol":"BTCUSDT","timestamp":1000,"quantity":"1","price":"100","side":"BUY","commission":"0"},
			{"symbol":"BTCUSDT","timestamp":61000,"quantity":"1","price":"150","side":"SELL","commission":"2"}
		],
		"futuresIncome": [
			{"symbol":"ETHUSDT","timestamp":2000,"amount":"50","type":"REALIZED_PNL"},
			{"symbol":"ETHUSDT","timestamp":3000,"amount":"-20","type":"REALIZED_PNL"},
			{"symbol":"ETHUSDT","timestamp":4000,"amount":"-5","type":"COMMISSION"}
		],
		"metadata": {"primaryCurrency": "USD"}
	}`)

	result, err := newEngine().AnalyzeRaw(context.Background(), body)
	if err != nil {
		t.Fatalf("AnalyzeRaw failed: %v", err)
	}

	// Spot realized: (150-100)*1 - 2 = 48. Futures net: 50-20-5 = 25.
	if !result.TotalPnL.Equal(decimal.NewFromInt(73)) {
		t.Errorf("totalPnL: expected 73, got %s", result.TotalPnL)
	}
	if result.TotalTrades != 4 {
		t.Errorf("totalTrades: expected 4 (2 spot + 2 futures), got %d", result.TotalTrades)
	}
	if result.SpotAnalysis == nil || result.FuturesAnalysis == nil {
		t.Fatal("Source analyses missing from result")
	}
	if result.Psychology == nil || result.Behavioral == nil {
		t.Fatal("Profiles missing from result")
	}
	if result.Currency != "USD" {
		t.Errorf("currency: expected USD, got %s", result.Currency)
	}
	// 2 spot fills + 2 realized futures records, chronological
	if len(result.AllTrades) != 4 {
		t.Errorf("allTrades: expected 4 events, got %d", len(result.AllTrades))
	}
	for i := 1; i < len(result.AllTrades); i++ {
		if result.AllTrades[i].Timestamp < result.AllTrades[i-1].Timestamp {
			t.Fatal("allTrades not in chronological order")
		}
	}
}

func TestAnalyzeRawLegacyArray(t *testing.T) {
	body := []byte(`[
		{"symbol":"BTCUSDT","timestamp":1000,"accountType":"SPOT","side":"BUY","quantity":"2","price":"10","commission":"0"},
		{"symbol":"BTCUSDT","timestamp":2000,"accountType":"SPOT","side":"SELL","quantity":"2","price":"15","commission":"0"},
		{"symbol":"ETHUSDT","timestamp":3000,"accountType":"FUTURES","amount":"7"}
	]`)

	result, err := newEngine().AnalyzeRaw(context.Background(), body)
	if err != nil {
		t.Fatalf("AnalyzeRaw failed: %v", err)
	}

	// Legacy futures rows default to realized P&L
	if !result.FuturesPnL.Equal(decimal.NewFromInt(7)) {
		t.Errorf("futuresPnL: expected 7, got %s", result.FuturesPnL)
	}
	if !result.SpotPnL.Equal(decimal.NewFromInt(10)) {
		t.Errorf("spotPnL: expected 10, got %s", result.SpotPnL)
	}
}

func TestAnalyzeRawMalformedNumeric(t *testing.T) {
	body := []byte(`{"spotTrades":[{"symbol":"X","timestamp":1,"quantity":"abc","price":"1","side":"BUY"}]}`)

	_, err := newEngine().AnalyzeRaw(context.Background(), body)
	if err == nil {
		t.Fatal("Expected error for malformed numeric field")
	}
	var bundleErr *analytics.BundleError
	if !errors.As(err, &bundleErr) {
		t.Fatalf("Expected BundleError, got %T: %v", err, err)
	}
}

func TestAnalyzeRawEmptyBody(t *testing.T) {
	_, err := newEngine().AnalyzeRaw(context.Background(), []byte("  \n"))
	var bundleErr *analytics.BundleError
	if !errors.As(err, &bundleErr) {
		t.Fatalf("Expected BundleError for empty body, got %v", err)
	}
}

func TestAnalyzeNormalizesCurrency(t *testing.T) {
	engine := analytics.NewEngine(zap.NewNop(), &fx.StaticRateProvider{
		Table: map[string]decimal.Decimal{
			"USD": decimal.NewFromInt(1),
			"INR": decimal.NewFromInt(80),
		},
	})

	body := []byte(`{
		"spotTrades": [
			{"symbol":"BTCINR","timestamp":1000,"quantity":"1","price":"8000","side":"BUY","commission":"0"},
			{"symbol":"BTCINR","timestamp":2000,"quantity":"1","price":"16000","side":"SELL","commission":"0"}
		],
		"metadata": {"primaryCurrency": "INR"}
	}`)

	result, err := engine.AnalyzeRaw(context.Background(), body)
	if err != nil {
		t.Fatalf("AnalyzeRaw failed: %v", err)
	}

	// 8000 INR profit = 100 USD
	if !result.TotalPnL.Equal(decimal.NewFromInt(100)) {
		t.Errorf("totalPnL: expected 100 USD, got %s", result.TotalPnL)
	}
	if result.Metadata.OriginalCurrency != "INR" || !result.Metadata.ConvertedToUSD {
		t.Errorf("Conversion metadata missing: %+v", result.Metadata)
	}
}

func TestParseBundleEmptyArray(t *testing.T) {
	bundle, err := analytics.ParseBundle([]byte("[]"))
	if err != nil {
		t.Fatalf("Empty array should parse: %v", err)
	}
	if len(bundle.SpotTrades) != 0 || len(bundle.FuturesIncome) != 0 {
		t.Error("Empty array should produce an empty bundle")
	}
}
