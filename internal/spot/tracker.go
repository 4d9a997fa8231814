// Package spot converts a flat list of buy/sell fills into realized P&L
// using average-cost accounting, per symbol.
package spot

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tradelens/analytics-backend/pkg/types"
)

// Tracker is the spot position tracker. Stateless between calls.
type Tracker struct {
	logger *zap.Logger
}

// NewTracker creates a new spot tracker.
func NewTracker(logger *zap.Logger) *Tracker {
	return &Tracker{logger: logger}
}

// ledger is the running average-cost state for one symbol
type ledger struct {
	position  decimal.Decimal
	totalCost decimal.Decimal
	openedAt  int64 // timestamp of the fill that opened the current position
	stat      *types.SymbolStat
}

func (l *ledger) avgCost() decimal.Decimal {
	if l.position.IsPositive() {
		return l.totalCost.Div(l.position)
	}
	return decimal.Zero
}

// Analyze processes all fills chronologically and returns the spot analysis
// plus the flattened trade events for downstream pattern analysis. Empty
// input yields a well-formed all-zero analysis.
func (t *Tracker) Analyze(trades []types.SpotTrade) (*types.SpotAnalysis, []types.TradeEvent) {
	analysis := newAnalysis()
	if len(trades) == 0 {
		return analysis, nil
	}

	sorted := make([]types.SpotTrade, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	ledgers := map[string]*ledger{}
	events := make([]types.TradeEvent, 0, len(sorted))

	var totalWins, totalLosses decimal.Decimal
	var curWinStreak, curLossStreak int

	for _, fill := range sorted {
		l, ok := ledgers[fill.Symbol]
		if !ok {
			l = &ledger{stat: &types.SymbolStat{
				Symbol:      fill.Symbol,
				AccountType: types.AccountTypeSpot,
			}}
			ledgers[fill.Symbol] = l
		}

		event := types.TradeEvent{
			Symbol:      fill.Symbol,
			Timestamp:   fill.Timestamp,
			AccountType: types.AccountTypeSpot,
			Side:        fill.Side,
			Quantity:    fill.Quantity,
			Price:       fill.Price,
			Value:       fill.Quantity.Mul(fill.Price),
			Commission:  fill.Commission,
		}

		analysis.TotalCommission = analysis.TotalCommission.Add(fill.Commission)
		l.stat.Trades++

		if fill.Side == types.TradeSideBuy {
			cost := fill.Quantity.Mul(fill.Price)
			if !l.position.IsPositive() {
				l.openedAt = fill.Timestamp
			}
			l.position = l.position.Add(fill.Quantity)
			l.totalCost = l.totalCost.Add(cost)
			analysis.TotalInvested = analysis.TotalInvested.Add(cost)
			analysis.BuyCount++
			l.stat.BuyCount++
			events = append(events, event)
			continue
		}

		// Sell
		analysis.SellCount++
		l.stat.SellCount++

		if !l.position.IsPositive() {
			// External sale: the asset entered the account outside the
			// observed fill history. Excluded from realized P&L.
			t.recordExternalSale(analysis, fill.Quantity, fill.Price)
			events = append(events, event)
			continue
		}

		covered := fill.Quantity
		if covered.GreaterThan(l.position) {
			covered = l.position
		}
		avgCost := l.avgCost()
		openedAt := l.openedAt

		// Commission on a partially covered sell is applied pro rata; the
		// external remainder keeps its share out of realized P&L.
		commission := fill.Commission
		if covered.LessThan(fill.Quantity) && fill.Quantity.IsPositive() {
			commission = fill.Commission.Mul(covered).Div(fill.Quantity)
		}

		pnl := fill.Price.Sub(avgCost).Mul(covered).Sub(commission)

		analysis.TotalPnL = analysis.TotalPnL.Add(pnl)
		l.stat.Realized = l.stat.Realized.Add(pnl)

		if pnl.IsPositive() {
			analysis.WinningTrades++
			l.stat.Wins++
			totalWins = totalWins.Add(pnl)
			if pnl.GreaterThan(analysis.LargestWin) {
				analysis.LargestWin = pnl
			}
			curWinStreak++
			curLossStreak = 0
			if curWinStreak > analysis.MaxConsecutiveWins {
				analysis.MaxConsecutiveWins = curWinStreak
			}
		} else {
			analysis.LosingTrades++
			l.stat.Losses++
			totalLosses = totalLosses.Add(pnl.Abs())
			if pnl.Abs().GreaterThan(analysis.LargestLoss) {
				analysis.LargestLoss = pnl.Abs()
			}
			curLossStreak++
			curWinStreak = 0
			if curLossStreak > analysis.MaxConsecutiveLosses {
				analysis.MaxConsecutiveLosses = curLossStreak
			}
		}

		bucketRealized(analysis, fill.Timestamp, pnl, pnl.IsPositive())

		// Remaining cost basis stays at avgCost per remaining unit
		l.position = l.position.Sub(covered)
		l.totalCost = avgCost.Mul(l.position)
		if !l.position.IsPositive() {
			l.position = decimal.Zero
			l.totalCost = decimal.Zero
			l.openedAt = 0
		}

		if covered.LessThan(fill.Quantity) {
			excess := fill.Quantity.Sub(covered)
			t.recordExternalSale(analysis, excess, fill.Price)
		}

		event.PnL = pnl
		event.Realized = true
		if openedAt > 0 && fill.Timestamp > openedAt {
			event.HoldTimeMs = fill.Timestamp - openedAt
		}
		events = append(events, event)
	}

	analysis.TotalTrades = len(sorted)
	analysis.CompletedTrades = analysis.WinningTrades + analysis.LosingTrades
	finalizeAverages(analysis, totalWins, totalLosses)

	for symbol, l := range ledgers {
		stat := l.stat
		stat.OpenQty = l.position
		stat.AvgCost = l.avgCost()
		completed := stat.Wins + stat.Losses
		if completed > 0 {
			stat.WinRate = decimal.NewFromInt(int64(stat.Wins)).
				Div(decimal.NewFromInt(int64(completed))).
				Mul(decimal.NewFromInt(100))
		}
		stat.PnL = stat.Realized
		analysis.Symbols[symbol] = stat
	}

	t.logger.Debug("Spot analysis complete",
		zap.Int("fills", analysis.TotalTrades),
		zap.Int("completed", analysis.CompletedTrades),
		zap.String("realized", analysis.TotalPnL.String()),
	)
	return analysis, events
}

func (t *Tracker) recordExternalSale(analysis *types.SpotAnalysis, qty, price decimal.Decimal) {
	analysis.ExternalSales.Count++
	analysis.ExternalSales.Quantity = analysis.ExternalSales.Quantity.Add(qty)
	analysis.ExternalSales.Value = analysis.ExternalSales.Value.Add(qty.Mul(price))
}

func newAnalysis() *types.SpotAnalysis {
	return &types.SpotAnalysis{
		Symbols:         map[string]*types.SymbolStat{},
		DayPerformance:  types.NewDayPerformance(),
		HourPerformance: types.NewHourPerformance(),
		MonthlyData:     map[string]*types.MonthBucket{},
		ExternalSales:   &types.ExternalSales{},
	}
}

func bucketRealized(analysis *types.SpotAnalysis, ts int64, pnl decimal.Decimal, win bool) {
	at := time.UnixMilli(ts).UTC()

	day := analysis.DayPerformance[at.Weekday().String()]
	day.Trades++
	day.PnL = day.PnL.Add(pnl)
	if win {
		day.Wins++
	} else {
		day.Losses++
	}

	hour := analysis.HourPerformance[at.Hour()]
	hour.Trades++
	hour.PnL = hour.PnL.Add(pnl)

	monthKey := at.Format("2006-01")
	month, ok := analysis.MonthlyData[monthKey]
	if !ok {
		month = &types.MonthBucket{}
		analysis.MonthlyData[monthKey] = month
	}
	month.Trades++
	month.PnL = month.PnL.Add(pnl)
}

func finalizeAverages(analysis *types.SpotAnalysis, totalWins, totalLosses decimal.Decimal) {
	if analysis.CompletedTrades > 0 {
		analysis.WinRate = decimal.NewFromInt(int64(analysis.WinningTrades)).
			Div(decimal.NewFromInt(int64(analysis.CompletedTrades))).
			Mul(decimal.NewFromInt(100))
	}
	if analysis.WinningTrades > 0 {
		analysis.AvgWin = totalWins.Div(decimal.NewFromInt(int64(analysis.WinningTrades)))
	}
	if analysis.LosingTrades > 0 {
		analysis.AvgLoss = totalLosses.Div(decimal.NewFromInt(int64(analysis.LosingTrades)))
	}
	if analysis.AvgLoss.IsPositive() {
		analysis.ProfitFactor = analysis.AvgWin.Div(analysis.AvgLoss)
	}
}
