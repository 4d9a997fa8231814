package fx_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tradelens/analytics-backend/internal/fx"
	"github.com/tradelens/analytics-backend/pkg/types"
)

func newNormalizer(table map[string]decimal.Decimal) *fx.Normalizer {
	return fx.NewNormalizer(zap.NewNop(), &fx.StaticRateProvider{Table: table})
}

func TestDetectCurrency(t *testing.T) {
	n := newNormalizer(nil)

	tests := []struct {
		meta     types.BundleMetadata
		expected string
	}{
		{types.BundleMetadata{PrimaryCurrency: "inr"}, "INR"},
		{types.BundleMetadata{Exchanges: []string{"WazirX"}}, "INR"},
		{types.BundleMetadata{Exchanges: []string{"binance", "upbit"}}, "KRW"},
		{types.BundleMetadata{Exchanges: []string{"binance"}}, "USD"},
		{types.BundleMetadata{}, "USD"},
		// Explicit metadata wins over exchange hints
		{types.BundleMetadata{PrimaryCurrency: "EUR", Exchanges: []string{"wazirx"}}, "EUR"},
	}

	for _, tt := range tests {
		if got := n.DetectCurrency(tt.meta); got != tt.expected {
			t.Errorf("DetectCurrency(%+v): expected %s, got %s", tt.meta, tt.expected, got)
		}
	}
}

func TestConvertPivotsThroughUSD(t *testing.T) {
	n := newNormalizer(nil)
	rates := map[string]decimal.Decimal{
		"USD": decimal.NewFromInt(1),
		"INR": decimal.NewFromInt(80),
		"EUR": decimal.NewFromFloat(0.8),
	}

	got := n.Convert(decimal.NewFromInt(800), "INR", "USD", rates)
	if !got.Equal(decimal.NewFromInt(10)) {
		t.Errorf("800 INR: expected 10 USD, got %s", got)
	}

	got = n.Convert(decimal.NewFromInt(80), "INR", "EUR", rates)
	if !got.Equal(decimal.NewFromFloat(0.8)) {
		t.Errorf("80 INR: expected 0.8 EUR, got %s", got)
	}

	// Unknown currency treated as rate 1
	got = n.Convert(decimal.NewFromInt(5), "XYZ", "USD", rates)
	if !got.Equal(decimal.NewFromInt(5)) {
		t.Errorf("Unknown currency: expected passthrough, got %s", got)
	}
}

func TestNormalizeUSDBundleIsNoOp(t *testing.T) {
	n := newNormalizer(nil)
	bundle := &types.Bundle{
		SpotTrades: []types.SpotTrade{{Symbol: "BTCUSDT", Price: decimal.NewFromInt(100)}},
	}

	out := n.NormalizeBundle(context.Background(), bundle)
	if out != bundle {
		t.Error("USD bundle should be returned unchanged")
	}
	if out.Metadata.ConvertedToUSD {
		t.Error("USD bundle should not be flagged as converted")
	}
}

func TestNormalizeBundleConvertsMoneyNotQuantity(t *testing.T) {
	rates := map[string]decimal.Decimal{
		"USD": decimal.NewFromInt(1),
		"INR": decimal.NewFromInt(80),
	}
	n := newNormalizer(rates)

	bundle := &types.Bundle{
		SpotTrades: []types.SpotTrade{{
			Symbol:     "BTCINR",
			Quantity:   decimal.NewFromInt(2),
			Price:      decimal.NewFromInt(8000),
			QuoteQty:   decimal.NewFromInt(16000),
			Commission: decimal.NewFromInt(16),
		}},
		FuturesIncome: []types.IncomeRecord{{
			Symbol: "BTCINR",
			Amount: decimal.NewFromInt(800),
			Type:   types.IncomeRealizedPnL,
		}},
		FuturesPositions: []types.FuturesPosition{{
			Symbol:        "BTCINR",
			PositionAmt:   decimal.NewFromInt(1),
			EntryPrice:    decimal.NewFromInt(8000),
			MarkPrice:     decimal.NewFromInt(8800),
			UnrealizedPnL: decimal.NewFromInt(800),
		}},
		Metadata: types.BundleMetadata{PrimaryCurrency: "INR"},
	}

	out := n.NormalizeBundle(context.Background(), bundle)

	trade := out.SpotTrades[0]
	if !trade.Price.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Price: expected 100, got %s", trade.Price)
	}
	if !trade.QuoteQty.Equal(decimal.NewFromInt(200)) {
		t.Errorf("QuoteQty: expected 200, got %s", trade.QuoteQty)
	}
	if !trade.Commission.Equal(decimal.NewFromFloat(0.2)) {
		t.Errorf("Commission: expected 0.2, got %s", trade.Commission)
	}
	if !trade.Quantity.Equal(decimal.NewFromInt(2)) {
		t.Errorf("Quantity must not be converted, got %s", trade.Quantity)
	}

	if !out.FuturesIncome[0].Amount.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Income amount: expected 10, got %s", out.FuturesIncome[0].Amount)
	}
	if !out.FuturesPositions[0].UnrealizedPnL.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Position uPnL: expected 10, got %s", out.FuturesPositions[0].UnrealizedPnL)
	}
	if !out.FuturesPositions[0].PositionAmt.Equal(decimal.NewFromInt(1)) {
		t.Errorf("PositionAmt must not be converted, got %s", out.FuturesPositions[0].PositionAmt)
	}

	if out.Metadata.OriginalCurrency != "INR" || !out.Metadata.ConvertedToUSD {
		t.Errorf("Metadata not stamped: %+v", out.Metadata)
	}

	// Input untouched
	if !bundle.SpotTrades[0].Price.Equal(decimal.NewFromInt(8000)) {
		t.Error("Input bundle was mutated")
	}
}

func TestRoundTripConversion(t *testing.T) {
	n := newNormalizer(nil)
	rates := fx.FallbackRates()

	original := decimal.NewFromFloat(1234.56)
	usd := n.Convert(original, "EUR", "USD", rates)
	back := n.Convert(usd, "USD", "EUR", rates)

	diff := back.Sub(original).Abs()
	if diff.GreaterThan(decimal.NewFromFloat(0.0001)) {
		t.Errorf("Round trip drifted: %s -> %s (diff %s)", original, back, diff)
	}
}
