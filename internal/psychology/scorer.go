// Package psychology derives a discipline score and qualitative behavioral
// findings from the full chronological trade sequence.
package psychology

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/tradelens/analytics-backend/pkg/types"
)

const (
	revengeWindowTrades = 5
	revengeWindowSpan   = 30 * time.Minute
	weekendMinSamples   = 10
	hourMinTrades       = 3
	symbolMinTrades     = 5
)

// Scorer computes the psychological discipline profile
type Scorer struct {
	logger *zap.Logger
}

// NewScorer creates a new psychology scorer.
func NewScorer(logger *zap.Logger) *Scorer {
	return &Scorer{logger: logger}
}

// Score builds the profile from an aggregated result. With no trades the
// profile is neutral: score 50, no findings.
func (s *Scorer) Score(result *types.AnalyticsResult) *types.PsychologyProfile {
	profile := &types.PsychologyProfile{
		DisciplineScore: 50,
		Strengths:       []types.Insight{},
		Weaknesses:      []types.Insight{},
		Recommendations: []string{},
	}
	if len(result.AllTrades) == 0 {
		return profile
	}

	winRate, _ := result.WinRate.Float64()
	profitFactor, _ := result.ProfitFactor.Float64()
	lossStreak := result.MaxConsecutiveLosses

	profile.DisciplineScore = disciplineScore(winRate, profitFactor, lossStreak)

	if winRate >= 55 {
		profile.Strengths = append(profile.Strengths, types.Insight{
			Label:    "Solid win rate",
			Detail:   fmt.Sprintf("%.1f%% of completed trades were profitable", winRate),
			Severity: "low",
		})
	}
	if profitFactor >= 1.5 {
		profile.Strengths = append(profile.Strengths, types.Insight{
			Label:    "Healthy profit factor",
			Detail:   fmt.Sprintf("Average win is %.2fx the average loss", profitFactor),
			Severity: "low",
		})
	}
	if lossStreak <= 3 && result.CompletedTrades >= 10 {
		profile.Strengths = append(profile.Strengths, types.Insight{
			Label:    "Loss streaks stay short",
			Detail:   fmt.Sprintf("Longest losing streak was %d trades", lossStreak),
			Severity: "low",
		})
	}

	s.detectHoldingLosers(result.AllTrades, profile)
	profile.RevengeTradingSessions = countRevengeSessions(result.AllTrades)
	if profile.RevengeTradingSessions > 0 {
		profile.Weaknesses = append(profile.Weaknesses, types.Insight{
			Label:    "Revenge trading",
			Detail:   fmt.Sprintf("%d rapid-fire sessions opened right after a loss", profile.RevengeTradingSessions),
			Severity: "high",
		})
	}
	s.detectWeekendUnderperformance(result.AllTrades, winRate, profile)
	s.detectSizingBias(result.AllTrades, profile)

	profile.Recommendations = s.recommendations(result)

	return profile
}

// disciplineScore starts neutral at 50 and applies three independent rules,
// clamping the final score to [0,100].
func disciplineScore(winRate, profitFactor float64, maxLossStreak int) int {
	score := 50

	switch {
	case winRate >= 60:
		score += 20
	case winRate >= 50:
		score += 10
	case winRate < 40:
		score -= 10
	}

	switch {
	case profitFactor >= 2:
		score += 15
	case profitFactor >= 1.5:
		score += 10
	case profitFactor < 1:
		score -= 15
	}

	switch {
	case maxLossStreak <= 3:
		score += 15
	case maxLossStreak <= 5:
		score += 5
	default:
		score -= 10
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// detectHoldingLosers flags losing trades being held much longer than
// winning ones.
func (s *Scorer) detectHoldingLosers(events []types.TradeEvent, profile *types.PsychologyProfile) {
	var winHold, lossHold int64
	var winCount, lossCount int64
	for _, e := range events {
		if !e.Realized || e.HoldTimeMs <= 0 {
			continue
		}
		if e.PnL.IsPositive() {
			winHold += e.HoldTimeMs
			winCount++
		} else {
			lossHold += e.HoldTimeMs
			lossCount++
		}
	}
	if winCount == 0 || lossCount == 0 {
		return
	}
	avgWinHold := float64(winHold) / float64(winCount)
	avgLossHold := float64(lossHold) / float64(lossCount)
	if avgLossHold > 1.5*avgWinHold {
		profile.Weaknesses = append(profile.Weaknesses, types.Insight{
			Label: "Holding losers too long",
			Detail: fmt.Sprintf("Losing trades held %.1fx longer than winners on average",
				avgLossHold/avgWinHold),
			Severity: "high",
		})
	}
}

// countRevengeSessions finds windows of 5 consecutive trades spanning under
// 30 minutes where the first trade was a loss. Overlapping windows inside the
// same burst count once.
func countRevengeSessions(events []types.TradeEvent) int {
	sessions := 0
	span := revengeWindowSpan.Milliseconds()
	for i := 0; i+revengeWindowTrades <= len(events); i++ {
		first := events[i]
		if !first.Realized || !first.PnL.IsNegative() {
			continue
		}
		last := events[i+revengeWindowTrades-1]
		if last.Timestamp-first.Timestamp < span {
			sessions++
			i += revengeWindowTrades - 1
		}
	}
	return sessions
}

func (s *Scorer) detectWeekendUnderperformance(events []types.TradeEvent, overallWinRate float64, profile *types.PsychologyProfile) {
	var weekendWins, weekendTotal int
	for _, e := range events {
		if !e.Realized {
			continue
		}
		day := time.UnixMilli(e.Timestamp).UTC().Weekday()
		if day != time.Saturday && day != time.Sunday {
			continue
		}
		weekendTotal++
		if e.PnL.IsPositive() {
			weekendWins++
		}
	}
	if weekendTotal < weekendMinSamples {
		return
	}
	weekendWinRate := float64(weekendWins) / float64(weekendTotal) * 100
	if weekendWinRate < overallWinRate-15 {
		profile.Weaknesses = append(profile.Weaknesses, types.Insight{
			Label: "Weekend underperformance",
			Detail: fmt.Sprintf("Weekend win rate %.1f%% vs %.1f%% overall across %d trades",
				weekendWinRate, overallWinRate, weekendTotal),
			Severity: "medium",
		})
	}
}

// detectSizingBias compares average position size immediately after a win
// against size immediately after a loss.
func (s *Scorer) detectSizingBias(events []types.TradeEvent, profile *types.PsychologyProfile) {
	var afterWinSum, afterLossSum float64
	var afterWinCount, afterLossCount int
	lastOutcome := 0 // +1 win, -1 loss, 0 none yet

	for _, e := range events {
		if value, _ := e.Value.Float64(); value > 0 && lastOutcome != 0 {
			if lastOutcome > 0 {
				afterWinSum += value
				afterWinCount++
			} else {
				afterLossSum += value
				afterLossCount++
			}
		}
		if e.Realized {
			if e.PnL.IsPositive() {
				lastOutcome = 1
			} else {
				lastOutcome = -1
			}
		}
	}

	if afterWinCount == 0 || afterLossCount == 0 || afterLossSum == 0 {
		return
	}
	ratio := (afterWinSum / float64(afterWinCount)) / (afterLossSum / float64(afterLossCount))
	profile.PostWinSizingRatio = ratio

	if ratio > 1.3 {
		profile.Weaknesses = append(profile.Weaknesses, types.Insight{
			Label:    "Overconfidence after wins",
			Detail:   fmt.Sprintf("Positions sized %.2fx larger after wins than after losses", ratio),
			Severity: "medium",
		})
	} else if ratio < 0.7 {
		profile.Weaknesses = append(profile.Weaknesses, types.Insight{
			Label:    "Fear-based sizing",
			Detail:   fmt.Sprintf("Positions shrink to %.2fx after losses compared with wins", ratio),
			Severity: "medium",
		})
	}
}

// recommendations are generated from best/worst trading hours and the single
// best-performing symbol by win rate.
func (s *Scorer) recommendations(result *types.AnalyticsResult) []string {
	recs := []string{}

	type hourStat struct {
		hour  int
		wins  int
		total int
	}
	byHour := map[int]*hourStat{}
	for _, e := range result.AllTrades {
		if !e.Realized {
			continue
		}
		h := time.UnixMilli(e.Timestamp).UTC().Hour()
		stat, ok := byHour[h]
		if !ok {
			stat = &hourStat{hour: h}
			byHour[h] = stat
		}
		stat.total++
		if e.PnL.IsPositive() {
			stat.wins++
		}
	}

	var eligible []*hourStat
	for _, stat := range byHour {
		if stat.total >= hourMinTrades {
			eligible = append(eligible, stat)
		}
	}
	if len(eligible) > 0 {
		sort.Slice(eligible, func(i, j int) bool {
			ri := float64(eligible[i].wins) / float64(eligible[i].total)
			rj := float64(eligible[j].wins) / float64(eligible[j].total)
			if ri == rj {
				return eligible[i].hour < eligible[j].hour
			}
			return ri > rj
		})
		best := eligible[0]
		recs = append(recs, fmt.Sprintf("Your best trading hour is %02d:00 UTC (%.0f%% win rate); concentrate activity there",
			best.hour, float64(best.wins)/float64(best.total)*100))
		if len(eligible) > 1 {
			worst := eligible[len(eligible)-1]
			recs = append(recs, fmt.Sprintf("Avoid trading around %02d:00 UTC (%.0f%% win rate)",
				worst.hour, float64(worst.wins)/float64(worst.total)*100))
		}
	}

	bestSymbol := ""
	bestRate := -1.0
	for key, stat := range result.Symbols {
		if stat.Wins+stat.Losses < symbolMinTrades {
			continue
		}
		rate, _ := stat.WinRate.Float64()
		if rate > bestRate {
			bestRate = rate
			bestSymbol = key
		}
	}
	if bestSymbol != "" {
		recs = append(recs, fmt.Sprintf("%s is your strongest market (%.0f%% win rate); build your playbook around it",
			bestSymbol, bestRate))
	}

	return recs
}
