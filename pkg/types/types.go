// Package types provides shared type definitions for the analytics backend.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType tags which market a record originated from
type AccountType string

const (
	AccountTypeSpot    AccountType = "SPOT"
	AccountTypeFutures AccountType = "FUTURES"
)

// TradeSide represents buy or sell
type TradeSide string

const (
	TradeSideBuy  TradeSide = "BUY"
	TradeSideSell TradeSide = "SELL"
)

// IncomeType classifies a futures income ledger entry
type IncomeType string

const (
	IncomeRealizedPnL IncomeType = "REALIZED_PNL"
	IncomeCommission  IncomeType = "COMMISSION"
	IncomeFundingFee  IncomeType = "FUNDING_FEE"
	IncomeTransfer    IncomeType = "TRANSFER"
	IncomeLiquidation IncomeType = "LIQUIDATION"
	IncomeOther       IncomeType = "OTHER"
)

// SpotTrade represents a single spot market fill.
// Timestamps are epoch milliseconds, matching the exchange export format.
type SpotTrade struct {
	Symbol          string          `json:"symbol"`
	Timestamp       int64           `json:"timestamp"`
	Quantity        decimal.Decimal `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	QuoteQty        decimal.Decimal `json:"quoteQty,omitempty"`
	Side            TradeSide       `json:"side"`
	Commission      decimal.Decimal `json:"commission"`
	CommissionAsset string          `json:"commissionAsset,omitempty"`
}

// Time returns the fill timestamp as a time.Time in UTC.
func (t SpotTrade) Time() time.Time {
	return time.UnixMilli(t.Timestamp).UTC()
}

// IncomeRecord represents one futures income ledger entry
type IncomeRecord struct {
	Symbol    string          `json:"symbol"`
	Timestamp int64           `json:"timestamp"`
	Amount    decimal.Decimal `json:"amount"`
	Type      IncomeType      `json:"type"`
	TradeID   string          `json:"tradeId,omitempty"`
}

// Time returns the record timestamp as a time.Time in UTC.
func (r IncomeRecord) Time() time.Time {
	return time.UnixMilli(r.Timestamp).UTC()
}

// FuturesPosition represents an open futures position snapshot.
// The feed is authoritative for mark price and unrealized P&L; the core
// passes them through rather than recomputing from entry price.
type FuturesPosition struct {
	Symbol        string          `json:"symbol"`
	PositionAmt   decimal.Decimal `json:"positionAmt"` // signed: negative = short
	EntryPrice    decimal.Decimal `json:"entryPrice"`
	MarkPrice     decimal.Decimal `json:"markPrice"`
	Leverage      decimal.Decimal `json:"leverage,omitempty"`
	Margin        decimal.Decimal `json:"margin,omitempty"`
	UnrealizedPnL decimal.Decimal `json:"unrealizedPnL"`
}

// Holding represents an externally supplied account balance with its
// current USD valuation, used only for unrealized-P&L reconciliation.
type Holding struct {
	Asset    string          `json:"asset"`
	Quantity decimal.Decimal `json:"quantity"`
	UsdPrice decimal.Decimal `json:"usdPrice,omitempty"`
	UsdValue decimal.Decimal `json:"usdValue"`
}

// BundleMetadata carries source hints and normalization annotations
type BundleMetadata struct {
	PrimaryCurrency  string    `json:"primaryCurrency,omitempty"`
	SpotHoldings     []Holding `json:"spotHoldings,omitempty"`
	Exchanges        []string  `json:"exchanges,omitempty"`
	OriginalCurrency string    `json:"originalCurrency,omitempty"`
	ConvertedToUSD   bool      `json:"convertedToUSD,omitempty"`
}

// Bundle is the structured input form: everything one analysis call consumes
type Bundle struct {
	SpotTrades       []SpotTrade       `json:"spotTrades"`
	FuturesIncome    []IncomeRecord    `json:"futuresIncome"`
	FuturesPositions []FuturesPosition `json:"futuresPositions"`
	Metadata         BundleMetadata    `json:"metadata"`
}

// LegacyTrade is one entry of the legacy flat-array input form: spot fills
// and futures income rows share a single shape tagged by accountType.
type LegacyTrade struct {
	Symbol          string          `json:"symbol"`
	Timestamp       int64           `json:"timestamp"`
	AccountType     AccountType     `json:"accountType"`
	Side            TradeSide       `json:"side,omitempty"`
	Quantity        decimal.Decimal `json:"quantity,omitempty"`
	Price           decimal.Decimal `json:"price,omitempty"`
	QuoteQty        decimal.Decimal `json:"quoteQty,omitempty"`
	Commission      decimal.Decimal `json:"commission,omitempty"`
	CommissionAsset string          `json:"commissionAsset,omitempty"`
	Amount          decimal.Decimal `json:"amount,omitempty"`
	IncomeType      IncomeType      `json:"incomeType,omitempty"`
	TradeID         string          `json:"tradeId,omitempty"`
}

// BundleFromLegacy converts the legacy flat array into the structured form.
// Futures rows without an explicit income type are treated as realized P&L,
// which is what the legacy feed carried.
func BundleFromLegacy(trades []LegacyTrade) *Bundle {
	bundle := &Bundle{}
	for _, t := range trades {
		switch t.AccountType {
		case AccountTypeFutures:
			incomeType := t.IncomeType
			if incomeType == "" {
				incomeType = IncomeRealizedPnL
			}
			bundle.FuturesIncome = append(bundle.FuturesIncome, IncomeRecord{
				Symbol:    t.Symbol,
				Timestamp: t.Timestamp,
				Amount:    t.Amount,
				Type:      incomeType,
				TradeID:   t.TradeID,
			})
		default:
			bundle.SpotTrades = append(bundle.SpotTrades, SpotTrade{
				Symbol:          t.Symbol,
				Timestamp:       t.Timestamp,
				Quantity:        t.Quantity,
				Price:           t.Price,
				QuoteQty:        t.QuoteQty,
				Side:            t.Side,
				Commission:      t.Commission,
				CommissionAsset: t.CommissionAsset,
			})
		}
	}
	return bundle
}
