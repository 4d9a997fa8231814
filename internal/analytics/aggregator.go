package analytics

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tradelens/analytics-backend/pkg/types"
)

// Aggregator merges the independently computed spot and futures analyses
// plus external holdings into one AnalyticsResult.
type Aggregator struct {
	logger *zap.Logger
}

// NewAggregator creates a new master aggregator.
func NewAggregator(logger *zap.Logger) *Aggregator {
	return &Aggregator{logger: logger}
}

// Aggregate produces the final result. events must contain the flattened
// trade events from both sources; they are sorted here.
func (a *Aggregator) Aggregate(
	bundle *types.Bundle,
	spot *types.SpotAnalysis,
	futures *types.FuturesAnalysis,
	events []types.TradeEvent,
) *types.AnalyticsResult {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp < events[j].Timestamp
	})

	result := &types.AnalyticsResult{
		Currency:        "USD",
		Metadata:        bundle.Metadata,
		AllTrades:       events,
		SpotAnalysis:    spot,
		FuturesAnalysis: futures,
	}

	// Simple sums across sources
	result.TotalPnL = spot.TotalPnL.Add(futures.NetPnL)
	result.TotalInvested = spot.TotalInvested
	result.TotalTrades = spot.TotalTrades + futures.TotalTrades
	result.CompletedTrades = spot.CompletedTrades + futures.WinningTrades + futures.LosingTrades
	result.WinningTrades = spot.WinningTrades + futures.WinningTrades
	result.LosingTrades = spot.LosingTrades + futures.LosingTrades
	result.TotalCommission = spot.TotalCommission.Add(futures.Commission.Abs())
	result.SpotPnL = spot.TotalPnL
	result.SpotTrades = spot.TotalTrades
	result.FuturesPnL = futures.NetPnL
	result.FuturesTrades = futures.TotalTrades

	if result.CompletedTrades > 0 {
		result.WinRate = decimal.NewFromInt(int64(result.WinningTrades)).
			Div(decimal.NewFromInt(int64(result.CompletedTrades))).
			Mul(decimal.NewFromInt(100))
	}

	// Weighted averages: each side's average weighted by its own count. A
	// straight average of the two averages would be wrong when counts differ.
	result.AvgWin = weightedAvg(spot.AvgWin, spot.WinningTrades, futures.AvgWin, futures.WinningTrades)
	result.AvgLoss = weightedAvg(spot.AvgLoss, spot.LosingTrades, futures.AvgLoss, futures.LosingTrades)

	// Profit factor from reconstructed gross totals, not averaged factors
	grossWins := spot.AvgWin.Mul(decimal.NewFromInt(int64(spot.WinningTrades))).
		Add(futures.AvgWin.Mul(decimal.NewFromInt(int64(futures.WinningTrades))))
	grossLosses := spot.AvgLoss.Mul(decimal.NewFromInt(int64(spot.LosingTrades))).
		Add(futures.AvgLoss.Mul(decimal.NewFromInt(int64(futures.LosingTrades))))
	if grossLosses.IsPositive() {
		result.ProfitFactor = grossWins.Div(grossLosses)
	}

	result.LargestWin = decimal.Max(spot.LargestWin, futures.LargestWin)
	result.LargestLoss = decimal.Max(spot.LargestLoss, futures.LargestLoss)
	result.MaxConsecutiveWins = maxInt(spot.MaxConsecutiveWins, futures.MaxConsecutiveWins)
	result.MaxConsecutiveLosses = maxInt(spot.MaxConsecutiveLosses, futures.MaxConsecutiveLosses)

	result.Symbols = a.mergeSymbols(spot.Symbols, futures.Symbols)
	result.BestSymbol = bestSymbol(result.Symbols)

	result.DayPerformance = mergeDays(spot.DayPerformance, futures.DayPerformance)
	result.HourPerformance = mergeHours(spot.HourPerformance, futures.HourPerformance)
	result.MonthlyData = mergeMonths(spot.MonthlyData, futures.MonthlyData)

	result.TradeSizes = tradeSizes(events)

	if result.TotalInvested.IsPositive() {
		result.ROI = result.TotalPnL.Div(result.TotalInvested).Mul(decimal.NewFromInt(100))
	}

	result.Reconciliation = reconcileHoldings(a.logger, bundle.Metadata.SpotHoldings, spot.Symbols)
	result.TotalUnrealizedPnL = result.Reconciliation.UnrealizedPnL.Add(futures.UnrealizedPnL)

	return result
}

func weightedAvg(avgA decimal.Decimal, countA int, avgB decimal.Decimal, countB int) decimal.Decimal {
	total := countA + countB
	if total == 0 {
		return decimal.Zero
	}
	sum := avgA.Mul(decimal.NewFromInt(int64(countA))).
		Add(avgB.Mul(decimal.NewFromInt(int64(countB))))
	return sum.Div(decimal.NewFromInt(int64(total)))
}

// mergeSymbols combines the two per-symbol dictionaries. The namespaces are
// usually disjoint; when the same ticker traded on both markets, the futures
// entry is kept under a :FUTURES-suffixed key so neither side is lost.
func (a *Aggregator) mergeSymbols(spot, futures map[string]*types.SymbolStat) map[string]*types.SymbolStat {
	merged := make(map[string]*types.SymbolStat, len(spot)+len(futures))
	for symbol, stat := range spot {
		merged[symbol] = stat
	}
	for symbol, stat := range futures {
		key := symbol
		if _, exists := merged[key]; exists {
			key = symbol + ":FUTURES"
		}
		merged[key] = stat
	}
	return merged
}

// bestSymbol picks the greatest canonical P&L, resolving the field-name
// difference (realized vs netPnL) through the variant accessor.
func bestSymbol(symbols map[string]*types.SymbolStat) string {
	best := ""
	var bestPnL decimal.Decimal
	for key, stat := range symbols {
		pnl := stat.PnLValue()
		if best == "" || pnl.GreaterThan(bestPnL) {
			best = key
			bestPnL = pnl
		}
	}
	return best
}

func mergeDays(a, b map[string]*types.DayBucket) map[string]*types.DayBucket {
	merged := types.NewDayPerformance()
	for _, src := range []map[string]*types.DayBucket{a, b} {
		for day, bucket := range src {
			dst := merged[day]
			if dst == nil {
				dst = &types.DayBucket{}
				merged[day] = dst
			}
			dst.Wins += bucket.Wins
			dst.Losses += bucket.Losses
			dst.Trades += bucket.Trades
			dst.PnL = dst.PnL.Add(bucket.PnL)
		}
	}
	return merged
}

func mergeHours(a, b map[int]*types.HourBucket) map[int]*types.HourBucket {
	merged := types.NewHourPerformance()
	for _, src := range []map[int]*types.HourBucket{a, b} {
		for hour, bucket := range src {
			dst := merged[hour]
			if dst == nil {
				dst = &types.HourBucket{}
				merged[hour] = dst
			}
			dst.Trades += bucket.Trades
			dst.PnL = dst.PnL.Add(bucket.PnL)
		}
	}
	return merged
}

func mergeMonths(a, b map[string]*types.MonthBucket) map[string]*types.MonthBucket {
	merged := map[string]*types.MonthBucket{}
	for _, src := range []map[string]*types.MonthBucket{a, b} {
		for month, bucket := range src {
			dst, ok := merged[month]
			if !ok {
				dst = &types.MonthBucket{}
				merged[month] = dst
			}
			dst.Trades += bucket.Trades
			dst.PnL = dst.PnL.Add(bucket.PnL)
		}
	}
	return merged
}

func tradeSizes(events []types.TradeEvent) *types.TradeSizeStats {
	stats := &types.TradeSizeStats{}
	var values []decimal.Decimal
	for _, e := range events {
		if e.Value.IsPositive() {
			values = append(values, e.Value)
		}
	}
	if len(values) == 0 {
		return stats
	}

	var sum decimal.Decimal
	stats.Min = values[0]
	stats.Max = values[0]
	for _, v := range values {
		sum = sum.Add(v)
		if v.LessThan(stats.Min) {
			stats.Min = v
		}
		if v.GreaterThan(stats.Max) {
			stats.Max = v
		}
	}
	n := decimal.NewFromInt(int64(len(values)))
	stats.Avg = sum.Div(n)

	var sumSquares decimal.Decimal
	for _, v := range values {
		diff := v.Sub(stats.Avg)
		sumSquares = sumSquares.Add(diff.Mul(diff))
	}
	variance, _ := sumSquares.Div(n).Float64()
	stats.StdDev = decimal.NewFromFloat(math.Sqrt(variance))

	return stats
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
