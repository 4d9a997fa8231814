package analytics

import (
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tradelens/analytics-backend/pkg/types"
)

// quoteSuffixes are trailing quote assets stripped when matching a holding
// asset ("ETH") against a market symbol ("ETHUSDT").
var quoteSuffixes = []string{"USDT", "USDC", "BUSD", "FDUSD", "TUSD", "USD"}

// normalizeSymbol reduces a symbol or asset name to a comparable base form:
// uppercase, separators stripped, trailing quote asset removed.
func normalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	for _, sep := range []string{"/", "-", "_", " "} {
		s = strings.ReplaceAll(s, sep, "")
	}
	for _, quote := range quoteSuffixes {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return strings.TrimSuffix(s, quote)
		}
	}
	return s
}

// reconcileHoldings matches external holdings against the spot tracker's open
// positions to derive unrealized P&L. quantityUsed is capped at the tracked
// position so externally-deposited balances cannot overstate P&L. Results
// outside a 2x sanity bound are discarded as data anomalies. Unmatched
// entries on both sides stay visible for diagnostics.
func reconcileHoldings(logger *zap.Logger, holdings []types.Holding, spotSymbols map[string]*types.SymbolStat) *types.Reconciliation {
	rec := &types.Reconciliation{
		Matches:            []types.HoldingMatch{},
		UnmatchedHoldings:  []string{},
		UnmatchedPositions: []string{},
		Discarded:          []string{},
	}

	type openPosition struct {
		symbol string
		stat   *types.SymbolStat
	}
	positions := map[string]openPosition{}
	for symbol, stat := range spotSymbols {
		if stat.OpenQty.IsPositive() {
			positions[normalizeSymbol(symbol)] = openPosition{symbol: symbol, stat: stat}
		}
	}

	matched := map[string]bool{}
	two := decimal.NewFromInt(2)

	for _, holding := range holdings {
		if !holding.Quantity.IsPositive() {
			continue
		}
		key := normalizeSymbol(holding.Asset)
		pos, ok := positions[key]
		if !ok {
			rec.UnmatchedHoldings = append(rec.UnmatchedHoldings, holding.Asset)
			continue
		}
		matched[key] = true

		quantityUsed := holding.Quantity
		if pos.stat.OpenQty.LessThan(quantityUsed) {
			quantityUsed = pos.stat.OpenQty
		}

		currentValue := holding.UsdValue.Div(holding.Quantity).Mul(quantityUsed)
		entryCost := pos.stat.AvgCost.Mul(quantityUsed)
		unrealized := currentValue.Sub(entryCost)

		if unrealized.Abs().GreaterThan(currentValue.Abs().Mul(two)) {
			logger.Warn("Discarding anomalous unrealized P&L",
				zap.String("symbol", pos.symbol),
				zap.String("unrealizedPnL", unrealized.String()),
				zap.String("currentValue", currentValue.String()),
			)
			rec.Discarded = append(rec.Discarded, pos.symbol)
			continue
		}

		rec.Matches = append(rec.Matches, types.HoldingMatch{
			Symbol:        pos.symbol,
			Asset:         holding.Asset,
			QuantityUsed:  quantityUsed,
			CurrentValue:  currentValue,
			EntryCost:     entryCost,
			UnrealizedPnL: unrealized,
		})
		rec.UnrealizedPnL = rec.UnrealizedPnL.Add(unrealized)
	}

	for key, pos := range positions {
		if !matched[key] {
			rec.UnmatchedPositions = append(rec.UnmatchedPositions, pos.symbol)
		}
	}

	return rec
}
