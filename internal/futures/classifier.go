// Package futures converts a futures income ledger into realized/unrealized
// P&L and behavior statistics. Unlike spot, one trade here means one closed
// position, i.e. one REALIZED_PNL ledger entry.
package futures

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tradelens/analytics-backend/pkg/types"
)

// Classifier is the futures income classifier. Stateless between calls.
type Classifier struct {
	logger *zap.Logger
}

// NewClassifier creates a new futures income classifier.
func NewClassifier(logger *zap.Logger) *Classifier {
	return &Classifier{logger: logger}
}

// Analyze partitions income records by type, derives per-symbol and aggregate
// performance, and normalizes open positions. Empty input yields a
// well-formed all-zero analysis.
func (c *Classifier) Analyze(income []types.IncomeRecord, positions []types.FuturesPosition) (*types.FuturesAnalysis, []types.TradeEvent) {
	analysis := newAnalysis()

	sorted := make([]types.IncomeRecord, len(income))
	copy(sorted, income)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	events := make([]types.TradeEvent, 0, len(sorted))
	seenTrades := map[string]bool{}

	var totalWins, totalLosses decimal.Decimal
	var curWinStreak, curLossStreak int

	for _, record := range sorted {
		switch record.Type {
		case types.IncomeRealizedPnL:
			analysis.RealizedPnL = analysis.RealizedPnL.Add(record.Amount)

			// Unique closed positions, by tradeId when the feed provides one
			if record.TradeID == "" || !seenTrades[record.TradeID] {
				analysis.TotalTrades++
				if record.TradeID != "" {
					seenTrades[record.TradeID] = true
				}
			}

			stat := c.symbolStat(analysis, record.Symbol)
			stat.Trades++
			stat.NetPnL = stat.NetPnL.Add(record.Amount)

			if record.Amount.IsPositive() {
				analysis.WinningTrades++
				stat.Wins++
				totalWins = totalWins.Add(record.Amount)
				if record.Amount.GreaterThan(analysis.LargestWin) {
					analysis.LargestWin = record.Amount
				}
				curWinStreak++
				curLossStreak = 0
				if curWinStreak > analysis.MaxConsecutiveWins {
					analysis.MaxConsecutiveWins = curWinStreak
				}
			} else {
				analysis.LosingTrades++
				stat.Losses++
				totalLosses = totalLosses.Add(record.Amount.Abs())
				if record.Amount.Abs().GreaterThan(analysis.LargestLoss) {
					analysis.LargestLoss = record.Amount.Abs()
				}
				curLossStreak++
				curWinStreak = 0
				if curLossStreak > analysis.MaxConsecutiveLosses {
					analysis.MaxConsecutiveLosses = curLossStreak
				}
			}

			bucketRealized(analysis, record.Timestamp, record.Amount, record.Amount.IsPositive())

			events = append(events, types.TradeEvent{
				Symbol:      record.Symbol,
				Timestamp:   record.Timestamp,
				AccountType: types.AccountTypeFutures,
				Value:       record.Amount.Abs(),
				PnL:         record.Amount,
				Realized:    true,
			})

		case types.IncomeCommission:
			analysis.Commission = analysis.Commission.Add(record.Amount)
			if record.Symbol != "" {
				stat := c.symbolStat(analysis, record.Symbol)
				stat.NetPnL = stat.NetPnL.Add(record.Amount)
			}

		case types.IncomeFundingFee:
			analysis.FundingFees = analysis.FundingFees.Add(record.Amount)
			if record.Symbol != "" {
				stat := c.symbolStat(analysis, record.Symbol)
				stat.NetPnL = stat.NetPnL.Add(record.Amount)
			}

		case types.IncomeTransfer:
			analysis.Transfers = analysis.Transfers.Add(record.Amount)

		case types.IncomeLiquidation:
			analysis.Liquidations = analysis.Liquidations.Add(record.Amount)

		default:
			analysis.OtherIncome = analysis.OtherIncome.Add(record.Amount)
		}
	}

	// Commission amounts arrive already negative, funding fees signed
	analysis.NetPnL = analysis.RealizedPnL.Add(analysis.Commission).Add(analysis.FundingFees)

	if completed := analysis.WinningTrades + analysis.LosingTrades; completed > 0 {
		analysis.WinRate = decimal.NewFromInt(int64(analysis.WinningTrades)).
			Div(decimal.NewFromInt(int64(completed))).
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

	for _, stat := range analysis.Symbols {
		if completed := stat.Wins + stat.Losses; completed > 0 {
			stat.WinRate = decimal.NewFromInt(int64(stat.Wins)).
				Div(decimal.NewFromInt(int64(completed))).
				Mul(decimal.NewFromInt(100))
		}
		stat.PnL = stat.NetPnL
	}

	c.collectOpenPositions(analysis, positions)

	c.logger.Debug("Futures analysis complete",
		zap.Int("records", len(sorted)),
		zap.Int("trades", analysis.TotalTrades),
		zap.String("netPnL", analysis.NetPnL.String()),
	)
	return analysis, events
}

// collectOpenPositions normalizes non-zero position snapshots. The feed is
// authoritative for mark price and unrealized P&L.
func (c *Classifier) collectOpenPositions(analysis *types.FuturesAnalysis, positions []types.FuturesPosition) {
	for _, p := range positions {
		if p.PositionAmt.IsZero() {
			continue
		}
		side := "LONG"
		if p.PositionAmt.IsNegative() {
			side = "SHORT"
		}
		analysis.OpenPositions = append(analysis.OpenPositions, types.OpenPosition{
			Symbol:        p.Symbol,
			Side:          side,
			Quantity:      p.PositionAmt.Abs(),
			EntryPrice:    p.EntryPrice,
			MarkPrice:     p.MarkPrice,
			Leverage:      p.Leverage,
			Margin:        p.Margin,
			UnrealizedPnL: p.UnrealizedPnL,
		})
		analysis.UnrealizedPnL = analysis.UnrealizedPnL.Add(p.UnrealizedPnL)
	}
}

func (c *Classifier) symbolStat(analysis *types.FuturesAnalysis, symbol string) *types.SymbolStat {
	stat, ok := analysis.Symbols[symbol]
	if !ok {
		stat = &types.SymbolStat{
			Symbol:      symbol,
			AccountType: types.AccountTypeFutures,
		}
		analysis.Symbols[symbol] = stat
	}
	return stat
}

func newAnalysis() *types.FuturesAnalysis {
	return &types.FuturesAnalysis{
		Symbols:         map[string]*types.SymbolStat{},
		DayPerformance:  types.NewDayPerformance(),
		HourPerformance: types.NewHourPerformance(),
		MonthlyData:     map[string]*types.MonthBucket{},
	}
}

func bucketRealized(analysis *types.FuturesAnalysis, ts int64, pnl decimal.Decimal, win bool) {
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
