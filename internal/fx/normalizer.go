package fx

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tradelens/analytics-backend/pkg/types"
)

// exchangeCurrencies maps exchanges whose exports are denominated in a local
// fiat currency rather than USD.
var exchangeCurrencies = map[string]string{
	"wazirx":   "INR",
	"coindcx":  "INR",
	"zebpay":   "INR",
	"upbit":    "KRW",
	"bithumb":  "KRW",
	"bitvavo":  "EUR",
	"btcturk":  "TRY",
	"paribu":   "TRY",
	"bitflyer": "JPY",
	"mercado":  "BRL",
}

// Normalizer converts all monetary fields of a bundle to USD
type Normalizer struct {
	logger   *zap.Logger
	provider RateProvider
}

// NewNormalizer creates a currency normalizer with an injected rate provider.
func NewNormalizer(logger *zap.Logger, provider RateProvider) *Normalizer {
	return &Normalizer{logger: logger, provider: provider}
}

// DetectCurrency resolves the source currency of a bundle: explicit metadata
// first, then known exchange hints, defaulting to USD.
func (n *Normalizer) DetectCurrency(meta types.BundleMetadata) string {
	if meta.PrimaryCurrency != "" {
		return strings.ToUpper(meta.PrimaryCurrency)
	}
	for _, exchange := range meta.Exchanges {
		if currency, ok := exchangeCurrencies[strings.ToLower(strings.TrimSpace(exchange))]; ok {
			return currency
		}
	}
	return "USD"
}

// Convert converts an amount between currencies by pivoting through USD.
// Unknown currencies are treated as USD (rate 1) rather than failing.
func (n *Normalizer) Convert(amount decimal.Decimal, from, to string, rates map[string]decimal.Decimal) decimal.Decimal {
	if from == to || amount.IsZero() {
		return amount
	}
	fromRate := rateOrOne(rates, from)
	toRate := rateOrOne(rates, to)
	return amount.Div(fromRate).Mul(toRate)
}

func rateOrOne(rates map[string]decimal.Decimal, code string) decimal.Decimal {
	if rate, ok := rates[strings.ToUpper(code)]; ok && rate.IsPositive() {
		return rate
	}
	return decimal.NewFromInt(1)
}

// NormalizeBundle returns a copy of the bundle with every monetary field
// converted to USD. Quantities are base-asset counts, not money, and are
// never converted. Already-USD bundles are returned unchanged. The input is
// not mutated.
func (n *Normalizer) NormalizeBundle(ctx context.Context, bundle *types.Bundle) *types.Bundle {
	currency := n.DetectCurrency(bundle.Metadata)
	if currency == "USD" {
		return bundle
	}

	rates := n.provider.Rates(ctx)
	toUSD := func(amount decimal.Decimal) decimal.Decimal {
		return n.Convert(amount, currency, "USD", rates)
	}

	out := &types.Bundle{
		SpotTrades:       make([]types.SpotTrade, len(bundle.SpotTrades)),
		FuturesIncome:    make([]types.IncomeRecord, len(bundle.FuturesIncome)),
		FuturesPositions: make([]types.FuturesPosition, len(bundle.FuturesPositions)),
		Metadata:         bundle.Metadata,
	}

	for i, t := range bundle.SpotTrades {
		t.Price = toUSD(t.Price)
		t.QuoteQty = toUSD(t.QuoteQty)
		t.Commission = toUSD(t.Commission)
		out.SpotTrades[i] = t
	}
	for i, r := range bundle.FuturesIncome {
		r.Amount = toUSD(r.Amount)
		out.FuturesIncome[i] = r
	}
	for i, p := range bundle.FuturesPositions {
		p.EntryPrice = toUSD(p.EntryPrice)
		p.MarkPrice = toUSD(p.MarkPrice)
		p.Margin = toUSD(p.Margin)
		p.UnrealizedPnL = toUSD(p.UnrealizedPnL)
		out.FuturesPositions[i] = p
	}

	out.Metadata.OriginalCurrency = currency
	out.Metadata.ConvertedToUSD = true

	n.logger.Info("Bundle converted to USD",
		zap.String("from", currency),
		zap.Int("spotTrades", len(out.SpotTrades)),
		zap.Int("incomeRecords", len(out.FuturesIncome)),
	)
	return out
}
