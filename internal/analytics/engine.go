// Package analytics orchestrates the analysis pipeline and merges its
// outputs into the final AnalyticsResult.
package analytics

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/tradelens/analytics-backend/internal/futures"
	"github.com/tradelens/analytics-backend/internal/fx"
	"github.com/tradelens/analytics-backend/internal/psychology"
	"github.com/tradelens/analytics-backend/internal/spot"
	"github.com/tradelens/analytics-backend/pkg/types"
)

// Engine runs the full pipeline: currency normalization, the two independent
// analyzers, aggregation, then the behavioral scorers. It holds no cross-call
// state; Analyze is atomic from the caller's perspective.
type Engine struct {
	logger     *zap.Logger
	normalizer *fx.Normalizer
	tracker    *spot.Tracker
	classifier *futures.Classifier
	aggregator *Aggregator
	scorer     *psychology.Scorer
	detector   *psychology.BehaviorDetector
}

// NewEngine wires the pipeline with an injected FX rate provider.
func NewEngine(logger *zap.Logger, provider fx.RateProvider) *Engine {
	return &Engine{
		logger:     logger,
		normalizer: fx.NewNormalizer(logger, provider),
		tracker:    spot.NewTracker(logger),
		classifier: futures.NewClassifier(logger),
		aggregator: NewAggregator(logger),
		scorer:     psychology.NewScorer(logger),
		detector:   psychology.NewBehaviorDetector(logger),
	}
}

// AnalyzeRaw parses a JSON bundle (structured or legacy form) and analyzes it.
func (e *Engine) AnalyzeRaw(ctx context.Context, data []byte) (*types.AnalyticsResult, error) {
	bundle, err := ParseBundle(data)
	if err != nil {
		return nil, err
	}
	return e.Analyze(ctx, bundle), nil
}

// Analyze runs the pipeline over one bundle. The spot and futures analyzers
// are independent and run concurrently; everything else is sequential.
func (e *Engine) Analyze(ctx context.Context, bundle *types.Bundle) *types.AnalyticsResult {
	normalized := e.normalizer.NormalizeBundle(ctx, bundle)

	var (
		wg           sync.WaitGroup
		spotAnalysis *types.SpotAnalysis
		spotEvents   []types.TradeEvent
		futAnalysis  *types.FuturesAnalysis
		futEvents    []types.TradeEvent
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		spotAnalysis, spotEvents = e.tracker.Analyze(normalized.SpotTrades)
	}()
	go func() {
		defer wg.Done()
		futAnalysis, futEvents = e.classifier.Analyze(normalized.FuturesIncome, normalized.FuturesPositions)
	}()
	wg.Wait()

	events := make([]types.TradeEvent, 0, len(spotEvents)+len(futEvents))
	events = append(events, spotEvents...)
	events = append(events, futEvents...)

	result := e.aggregator.Aggregate(normalized, spotAnalysis, futAnalysis, events)
	result.Psychology = e.scorer.Score(result)
	result.Behavioral = e.detector.Detect(result)

	e.logger.Info("Analysis complete",
		zap.Int("totalTrades", result.TotalTrades),
		zap.String("totalPnL", result.TotalPnL.String()),
		zap.Int("disciplineScore", result.Psychology.DisciplineScore),
	)
	return result
}
