// Package types provides the analytics result contract. Field names in this
// file are consumed by presentation collaborators and must not change.
package types

import "github.com/shopspring/decimal"

// DayBucket accumulates realized performance for one weekday
type DayBucket struct {
	Wins   int             `json:"wins"`
	Losses int             `json:"losses"`
	PnL    decimal.Decimal `json:"pnl"`
	Trades int             `json:"trades"`
}

// HourBucket accumulates realized performance for one hour of day
type HourBucket struct {
	Trades int             `json:"trades"`
	PnL    decimal.Decimal `json:"pnl"`
}

// MonthBucket accumulates realized performance for one calendar month
type MonthBucket struct {
	Trades int             `json:"trades"`
	PnL    decimal.Decimal `json:"pnl"`
}

// NewDayPerformance returns a fully-populated weekday map so consumers can
// index any day without nil checks.
func NewDayPerformance() map[string]*DayBucket {
	days := map[string]*DayBucket{}
	for _, d := range []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"} {
		days[d] = &DayBucket{}
	}
	return days
}

// NewHourPerformance returns all 24 hour buckets.
func NewHourPerformance() map[int]*HourBucket {
	hours := map[int]*HourBucket{}
	for h := 0; h < 24; h++ {
		hours[h] = &HourBucket{}
	}
	return hours
}

// SymbolStat is the per-symbol breakdown. Spot and futures report different
// fields for the same concept (realized vs netPnL), so the struct carries an
// accountType tag, both source field names, and a canonical pnl value.
type SymbolStat struct {
	Symbol      string          `json:"symbol"`
	AccountType AccountType     `json:"accountType"`
	PnL         decimal.Decimal `json:"pnl"`
	Realized    decimal.Decimal `json:"realized"`
	NetPnL      decimal.Decimal `json:"netPnL"`
	Trades      int             `json:"trades"`
	Wins        int             `json:"wins"`
	Losses      int             `json:"losses"`
	WinRate     decimal.Decimal `json:"winRate"`
	BuyCount    int             `json:"buyCount,omitempty"`
	SellCount   int             `json:"sellCount,omitempty"`
	OpenQty     decimal.Decimal `json:"openQty"`
	AvgCost     decimal.Decimal `json:"avgCost"`
}

// PnLValue resolves the canonical P&L regardless of source field naming.
func (s *SymbolStat) PnLValue() decimal.Decimal {
	if s.AccountType == AccountTypeFutures {
		return s.NetPnL
	}
	return s.Realized
}

// ExternalSales tracks sells that exceeded the tracked bought quantity.
// They are excluded from realized P&L and reported separately.
type ExternalSales struct {
	Count    int             `json:"count"`
	Quantity decimal.Decimal `json:"quantity"`
	Value    decimal.Decimal `json:"value"`
}

// SpotAnalysis is the Spot Position Tracker output
type SpotAnalysis struct {
	TotalPnL             decimal.Decimal         `json:"totalPnL"`
	TotalInvested        decimal.Decimal         `json:"totalInvested"`
	TotalTrades          int                     `json:"totalTrades"`
	CompletedTrades      int                     `json:"completedTrades"`
	WinningTrades        int                     `json:"winningTrades"`
	LosingTrades         int                     `json:"losingTrades"`
	WinRate              decimal.Decimal         `json:"winRate"`
	AvgWin               decimal.Decimal         `json:"avgWin"`
	AvgLoss              decimal.Decimal         `json:"avgLoss"`
	ProfitFactor         decimal.Decimal         `json:"profitFactor"`
	LargestWin           decimal.Decimal         `json:"largestWin"`
	LargestLoss          decimal.Decimal         `json:"largestLoss"`
	MaxConsecutiveWins   int                     `json:"maxConsecutiveWins"`
	MaxConsecutiveLosses int                     `json:"maxConsecutiveLosses"`
	TotalCommission      decimal.Decimal         `json:"totalCommission"`
	BuyCount             int                     `json:"buyCount"`
	SellCount            int                     `json:"sellCount"`
	Symbols              map[string]*SymbolStat  `json:"symbols"`
	DayPerformance       map[string]*DayBucket   `json:"dayPerformance"`
	HourPerformance      map[int]*HourBucket     `json:"hourPerformance"`
	MonthlyData          map[string]*MonthBucket `json:"monthlyData"`
	ExternalSales        *ExternalSales          `json:"externalSales"`
}

// OpenPosition is a normalized open futures position
type OpenPosition struct {
	Symbol        string          `json:"symbol"`
	Side          string          `json:"side"` // LONG or SHORT
	Quantity      decimal.Decimal `json:"quantity"`
	EntryPrice    decimal.Decimal `json:"entryPrice"`
	MarkPrice     decimal.Decimal `json:"markPrice"`
	Leverage      decimal.Decimal `json:"leverage"`
	Margin        decimal.Decimal `json:"margin"`
	UnrealizedPnL decimal.Decimal `json:"unrealizedPnL"`
}

// FuturesAnalysis is the Futures Income Classifier output
type FuturesAnalysis struct {
	RealizedPnL          decimal.Decimal         `json:"realizedPnL"`
	Commission           decimal.Decimal         `json:"commission"`
	FundingFees          decimal.Decimal         `json:"fundingFees"`
	Transfers            decimal.Decimal         `json:"transfers"`
	Liquidations         decimal.Decimal         `json:"liquidations"`
	OtherIncome          decimal.Decimal         `json:"otherIncome"`
	NetPnL               decimal.Decimal         `json:"netPnL"`
	TotalTrades          int                     `json:"totalTrades"`
	WinningTrades        int                     `json:"winningTrades"`
	LosingTrades         int                     `json:"losingTrades"`
	WinRate              decimal.Decimal         `json:"winRate"`
	AvgWin               decimal.Decimal         `json:"avgWin"`
	AvgLoss              decimal.Decimal         `json:"avgLoss"`
	ProfitFactor         decimal.Decimal         `json:"profitFactor"`
	LargestWin           decimal.Decimal         `json:"largestWin"`
	LargestLoss          decimal.Decimal         `json:"largestLoss"`
	MaxConsecutiveWins   int                     `json:"maxConsecutiveWins"`
	MaxConsecutiveLosses int                     `json:"maxConsecutiveLosses"`
	Symbols              map[string]*SymbolStat  `json:"symbols"`
	DayPerformance       map[string]*DayBucket   `json:"dayPerformance"`
	HourPerformance      map[int]*HourBucket     `json:"hourPerformance"`
	MonthlyData          map[string]*MonthBucket `json:"monthlyData"`
	OpenPositions        []OpenPosition          `json:"openPositions"`
	UnrealizedPnL        decimal.Decimal         `json:"unrealizedPnL"`
}

// TradeEvent is the common shape every spot fill and realized futures income
// record is flattened into for chronological pattern analysis.
type TradeEvent struct {
	Symbol      string          `json:"symbol"`
	Timestamp   int64           `json:"timestamp"`
	AccountType AccountType     `json:"accountType"`
	Side        TradeSide       `json:"side,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Value       decimal.Decimal `json:"value"`
	PnL         decimal.Decimal `json:"pnl"`
	Commission  decimal.Decimal `json:"commission"`
	Realized    bool            `json:"realized"`
	HoldTimeMs  int64           `json:"holdTimeMs,omitempty"`
}

// TradeSizeStats summarizes trade notional sizing
type TradeSizeStats struct {
	Avg    decimal.Decimal `json:"avg"`
	Min    decimal.Decimal `json:"min"`
	Max    decimal.Decimal `json:"max"`
	StdDev decimal.Decimal `json:"stdDev"`
}

// Insight is one detected strength, weakness, or behavioral finding
type Insight struct {
	Label    string `json:"label"`
	Detail   string `json:"detail"`
	Severity string `json:"severity"` // low, medium, high
}

// PsychologyProfile is the discipline scorer output
type PsychologyProfile struct {
	DisciplineScore        int       `json:"disciplineScore"`
	Strengths              []Insight `json:"strengths"`
	Weaknesses             []Insight `json:"weaknesses"`
	RevengeTradingSessions int       `json:"revengeTradingSessions"`
	PostWinSizingRatio     float64   `json:"postWinSizingRatio"`
	Recommendations        []string  `json:"recommendations"`
}

// BehavioralProfile is the pattern detector output
type BehavioralProfile struct {
	PanicSellingClusters int       `json:"panicSellingClusters"`
	FeeImpactPct         float64   `json:"feeImpactPct"`
	FeeEfficiency        string    `json:"feeEfficiency"` // good, elevated, poor
	SizeVariation        float64   `json:"sizeVariation"`
	ConsistentSizing     bool      `json:"consistentSizing"`
	Findings             []Insight `json:"findings"`
}

// HoldingMatch records one successful holding-to-position reconciliation
type HoldingMatch struct {
	Symbol        string          `json:"symbol"`
	Asset         string          `json:"asset"`
	QuantityUsed  decimal.Decimal `json:"quantityUsed"`
	CurrentValue  decimal.Decimal `json:"currentValue"`
	EntryCost     decimal.Decimal `json:"entryCost"`
	UnrealizedPnL decimal.Decimal `json:"unrealizedPnL"`
}

// Reconciliation keeps matched and unmatched entries visible for debugging
// rather than silently dropping them.
type Reconciliation struct {
	Matches            []HoldingMatch  `json:"matches"`
	UnmatchedHoldings  []string        `json:"unmatchedHoldings"`
	UnmatchedPositions []string        `json:"unmatchedPositions"`
	Discarded          []string        `json:"discarded"`
	UnrealizedPnL      decimal.Decimal `json:"unrealizedPnL"`
}

// AnalyticsResult is the single output aggregate of one analysis call.
// Immutable once returned.
type AnalyticsResult struct {
	Currency             string                  `json:"currency"`
	Metadata             BundleMetadata          `json:"metadata"`
	AllTrades            []TradeEvent            `json:"allTrades"`
	TotalPnL             decimal.Decimal         `json:"totalPnL"`
	TotalInvested        decimal.Decimal         `json:"totalInvested"`
	ROI                  decimal.Decimal         `json:"roi"`
	TotalTrades          int                     `json:"totalTrades"`
	CompletedTrades      int                     `json:"completedTrades"`
	WinningTrades        int                     `json:"winningTrades"`
	LosingTrades         int                     `json:"losingTrades"`
	WinRate              decimal.Decimal         `json:"winRate"`
	AvgWin               decimal.Decimal         `json:"avgWin"`
	AvgLoss              decimal.Decimal         `json:"avgLoss"`
	ProfitFactor         decimal.Decimal         `json:"profitFactor"`
	LargestWin           decimal.Decimal         `json:"largestWin"`
	LargestLoss          decimal.Decimal         `json:"largestLoss"`
	MaxConsecutiveWins   int                     `json:"maxConsecutiveWins"`
	MaxConsecutiveLosses int                     `json:"maxConsecutiveLosses"`
	TotalCommission      decimal.Decimal         `json:"totalCommission"`
	Symbols              map[string]*SymbolStat  `json:"symbols"`
	BestSymbol           string                  `json:"bestSymbol"`
	DayPerformance       map[string]*DayBucket   `json:"dayPerformance"`
	HourPerformance      map[int]*HourBucket     `json:"hourPerformance"`
	MonthlyData          map[string]*MonthBucket `json:"monthlyData"`
	TradeSizes           *TradeSizeStats         `json:"tradeSizes"`
	SpotPnL              decimal.Decimal         `json:"spotPnL"`
	SpotTrades           int                     `json:"spotTrades"`
	FuturesPnL           decimal.Decimal         `json:"futuresPnL"`
	FuturesTrades        int                     `json:"futuresTrades"`
	TotalUnrealizedPnL   decimal.Decimal         `json:"totalUnrealizedPnL"`
	Psychology           *PsychologyProfile      `json:"psychology"`
	Behavioral           *BehavioralProfile      `json:"behavioral"`
	Reconciliation       *Reconciliation         `json:"reconciliation"`
	SpotAnalysis         *SpotAnalysis           `json:"spotAnalysis"`
	FuturesAnalysis      *FuturesAnalysis        `json:"futuresAnalysis"`
}
