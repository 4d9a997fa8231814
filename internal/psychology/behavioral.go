package psychology

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/tradelens/analytics-backend/pkg/types"
)

const (
	panicWindowSpan  = 15 * time.Minute
	panicMinSells    = 3
	feeElevatedPct   = 10.0
	feePoorPct       = 25.0
	sizeVariationMax = 1.0
)

// BehaviorDetector mines deeper patterns than the discipline scorer: panic
// selling, fee inefficiency, and position-size consistency.
type BehaviorDetector struct {
	logger *zap.Logger
}

// NewBehaviorDetector creates a new behavioral pattern detector.
func NewBehaviorDetector(logger *zap.Logger) *BehaviorDetector {
	return &BehaviorDetector{logger: logger}
}

// Detect builds the behavioral profile from an aggregated result.
func (d *BehaviorDetector) Detect(result *types.AnalyticsResult) *types.BehavioralProfile {
	profile := &types.BehavioralProfile{
		FeeEfficiency:    "good",
		ConsistentSizing: true,
		Findings:         []types.Insight{},
	}
	if len(result.AllTrades) == 0 {
		return profile
	}

	profile.PanicSellingClusters = countPanicClusters(result.AllTrades)
	if profile.PanicSellingClusters > 0 {
		profile.Findings = append(profile.Findings, types.Insight{
			Label:    "Panic selling",
			Detail:   fmt.Sprintf("%d clusters of rapid sells following a losing trade", profile.PanicSellingClusters),
			Severity: "high",
		})
	}

	d.assessFees(result, profile)
	d.assessSizing(result.AllTrades, profile)

	return profile
}

// countPanicClusters finds losses followed by a burst of sells inside a
// 15-minute window.
func countPanicClusters(events []types.TradeEvent) int {
	clusters := 0
	span := panicWindowSpan.Milliseconds()

	for i := 0; i < len(events); i++ {
		e := events[i]
		if !e.Realized || !e.PnL.IsNegative() {
			continue
		}

		sells := 0
		j := i + 1
		for ; j < len(events) && events[j].Timestamp-e.Timestamp <= span; j++ {
			if events[j].AccountType == types.AccountTypeSpot && events[j].Side == types.TradeSideSell {
				sells++
			}
		}
		if sells >= panicMinSells {
			clusters++
			i = j - 1 // one cluster per burst
		}
	}
	return clusters
}

// assessFees measures commission drag as a share of gross realized P&L.
func (d *BehaviorDetector) assessFees(result *types.AnalyticsResult, profile *types.BehavioralProfile) {
	var gross float64
	for _, e := range result.AllTrades {
		if e.Realized {
			pnl, _ := e.PnL.Abs().Float64()
			gross += pnl
		}
	}
	if gross == 0 {
		return
	}
	commission, _ := result.TotalCommission.Float64()
	profile.FeeImpactPct = commission / gross * 100

	switch {
	case profile.FeeImpactPct > feePoorPct:
		profile.FeeEfficiency = "poor"
		profile.Findings = append(profile.Findings, types.Insight{
			Label:    "Fees eating returns",
			Detail:   fmt.Sprintf("Commissions are %.1f%% of gross P&L; reduce churn or trade larger", profile.FeeImpactPct),
			Severity: "high",
		})
	case profile.FeeImpactPct > feeElevatedPct:
		profile.FeeEfficiency = "elevated"
		profile.Findings = append(profile.Findings, types.Insight{
			Label:    "Elevated fee drag",
			Detail:   fmt.Sprintf("Commissions are %.1f%% of gross P&L", profile.FeeImpactPct),
			Severity: "medium",
		})
	}
}

// assessSizing computes the coefficient of variation of trade notionals.
func (d *BehaviorDetector) assessSizing(events []types.TradeEvent, profile *types.BehavioralProfile) {
	var values []float64
	for _, e := range events {
		if v, _ := e.Value.Float64(); v > 0 {
			values = append(values, v)
		}
	}
	if len(values) < 2 {
		return
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	if mean == 0 {
		return
	}

	var sumSquares float64
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	stdDev := math.Sqrt(sumSquares / float64(len(values)))
	profile.SizeVariation = stdDev / mean

	if profile.SizeVariation > sizeVariationMax {
		profile.ConsistentSizing = false
		profile.Findings = append(profile.Findings, types.Insight{
			Label:    "Inconsistent position sizing",
			Detail:   fmt.Sprintf("Trade size varies %.0f%% around the mean", profile.SizeVariation*100),
			Severity: "medium",
		})
	}
}
