package analytics

import (
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tradelens/analytics-backend/pkg/types"
)

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"ETHUSDT", "ETH"},
		{"eth/usdt", "ETH"},
		{"BTC-USDC", "BTC"},
		{"SOL_BUSD", "SOL"},
		{"DOGEFDUSD", "DOGE"},
		{"ETH", "ETH"},
		{" ada ", "ADA"},
		// A bare quote asset must not normalize to empty
		{"USDT", "USDT"},
	}

	for _, tt := range tests {
		if got := normalizeSymbol(tt.in); got != tt.expected {
			t.Errorf("normalizeSymbol(%q): expected %q, got %q", tt.in, tt.expected, got)
		}
	}
}

func spotStat(symbol string, openQty, avgCost float64) *types.SymbolStat {
	return &types.SymbolStat{
		Symbol:      symbol,
		AccountType: types.AccountTypeSpot,
		OpenQty:     decimal.NewFromFloat(openQty),
		AvgCost:     decimal.NewFromFloat(avgCost),
	}
}

func TestReconcileQuantityCap(t *testing.T) {
	// Holding 2 ETH worth $400, tracked position only 1 ETH at avg $150:
	// quantityUsed=1, unrealized = 200 - 150 = 50
	holdings := []types.Holding{
		{Asset: "ETH", Quantity: decimal.NewFromInt(2), UsdValue: decimal.NewFromInt(400)},
	}
	symbols := map[string]*types.SymbolStat{
		"ETHUSDT": spotStat("ETHUSDT", 1, 150),
	}

	rec := reconcileHoldings(zap.NewNop(), holdings, symbols)

	if len(rec.Matches) != 1 {
		t.Fatalf("Expected 1 match, got %d", len(rec.Matches))
	}
	match := rec.Matches[0]
	if !match.QuantityUsed.Equal(decimal.NewFromInt(1)) {
		t.Errorf("quantityUsed: expected 1, got %s", match.QuantityUsed)
	}
	if !match.CurrentValue.Equal(decimal.NewFromInt(200)) {
		t.Errorf("currentValue: expected 200, got %s", match.CurrentValue)
	}
	if !match.UnrealizedPnL.Equal(decimal.NewFromInt(50)) {
		t.Errorf("unrealizedPnL: expected 50, got %s", match.UnrealizedPnL)
	}
	if !rec.UnrealizedPnL.Equal(decimal.NewFromInt(50)) {
		t.Errorf("Total unrealizedPnL: expected 50, got %s", rec.UnrealizedPnL)
	}
}

func TestReconcileSanityGuard(t *testing.T) {
	// Entry cost wildly above current value: |uPnL| > 2x |currentValue|
	holdings := []types.Holding{
		{Asset: "SHIB", Quantity: decimal.NewFromInt(1), UsdValue: decimal.NewFromInt(10)},
	}
	symbols := map[string]*types.SymbolStat{
		"SHIBUSDT": spotStat("SHIBUSDT", 1, 1000),
	}

	rec := reconcileHoldings(zap.NewNop(), holdings, symbols)

	if len(rec.Matches) != 0 {
		t.Errorf("Anomalous match should be discarded, got %d matches", len(rec.Matches))
	}
	if len(rec.Discarded) != 1 || rec.Discarded[0] != "SHIBUSDT" {
		t.Errorf("Discarded: expected [SHIBUSDT], got %v", rec.Discarded)
	}
	if !rec.UnrealizedPnL.IsZero() {
		t.Errorf("Discarded entries must not contribute P&L, got %s", rec.UnrealizedPnL)
	}
}

func TestReconcileUnmatchedDiagnostics(t *testing.T) {
	holdings := []types.Holding{
		{Asset: "DOT", Quantity: decimal.NewFromInt(5), UsdValue: decimal.NewFromInt(30)},
	}
	symbols := map[string]*types.SymbolStat{
		"BTCUSDT": spotStat("BTCUSDT", 0.5, 40000),
		// Fully-closed positions do not participate
		"XRPUSDT": spotStat("XRPUSDT", 0, 0.6),
	}

	rec := reconcileHoldings(zap.NewNop(), holdings, symbols)

	if len(rec.Matches) != 0 {
		t.Errorf("Expected no matches, got %d", len(rec.Matches))
	}
	if len(rec.UnmatchedHoldings) != 1 || rec.UnmatchedHoldings[0] != "DOT" {
		t.Errorf("UnmatchedHoldings: got %v", rec.UnmatchedHoldings)
	}
	if len(rec.UnmatchedPositions) != 1 || rec.UnmatchedPositions[0] != "BTCUSDT" {
		t.Errorf("UnmatchedPositions: got %v", rec.UnmatchedPositions)
	}
}

func TestReconcileSeparatorAndQuoteMatching(t *testing.T) {
	holdings := []types.Holding{
		{Asset: "btc", Quantity: decimal.NewFromInt(1), UsdValue: decimal.NewFromInt(60000)},
	}
	symbols := map[string]*types.SymbolStat{
		"BTC/USDT": spotStat("BTC/USDT", 1, 50000),
	}

	rec := reconcileHoldings(zap.NewNop(), holdings, symbols)

	if len(rec.Matches) != 1 {
		t.Fatalf("Holding should match through normalization, got %d matches", len(rec.Matches))
	}
	if !rec.Matches[0].UnrealizedPnL.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("unrealizedPnL: expected 10000, got %s", rec.Matches[0].UnrealizedPnL)
	}
}
