// Package fx provides currency detection and conversion for input bundles.
package fx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tradelens/analytics-backend/pkg/types"
)

var fallbackUses = promauto.NewCounter(prometheus.CounterOpts{
	Name: "fx_fallback_rates_total",
	Help: "Number of rate lookups served from the static fallback table",
})

// RateProvider supplies currency rates relative to USD (units of currency
// per 1 USD). Implementations must always return a usable table; failures
// are handled internally, never surfaced to the pipeline.
type RateProvider interface {
	Rates(ctx context.Context) map[string]decimal.Decimal
}

// FallbackRates returns the static rate table used when no live rates are
// available. Approximate, refreshed with releases.
func FallbackRates() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"USD": decimal.NewFromInt(1),
		"EUR": decimal.NewFromFloat(0.92),
		"GBP": decimal.NewFromFloat(0.79),
		"INR": decimal.NewFromFloat(83.5),
		"KRW": decimal.NewFromFloat(1350),
		"JPY": decimal.NewFromFloat(155),
		"TRY": decimal.NewFromFloat(32.5),
		"BRL": decimal.NewFromFloat(5.4),
		"AUD": decimal.NewFromFloat(1.52),
		"CAD": decimal.NewFromFloat(1.37),
		"SGD": decimal.NewFromFloat(1.35),
	}
}

// StaticRateProvider serves a fixed table. Used in tests and offline mode.
type StaticRateProvider struct {
	Table map[string]decimal.Decimal
}

// Rates returns the fixed table, or the fallback table if none was set.
func (p *StaticRateProvider) Rates(_ context.Context) map[string]decimal.Decimal {
	if p.Table == nil {
		return FallbackRates()
	}
	return p.Table
}

// CachedRateProvider fetches live rates over HTTP and caches them for a TTL.
// On fetch failure it serves the previous table if one exists, otherwise the
// static fallback. It never blocks the pipeline on an error.
type CachedRateProvider struct {
	mu        sync.Mutex
	logger    *zap.Logger
	client    *resty.Client
	url       string
	ttl       time.Duration
	rates     map[string]decimal.Decimal
	fetchedAt time.Time
}

// NewCachedRateProvider creates a provider from FX configuration.
func NewCachedRateProvider(logger *zap.Logger, cfg types.FXConfig) *CachedRateProvider {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &CachedRateProvider{
		logger: logger,
		client: resty.New().SetTimeout(timeout),
		url:    cfg.RatesURL,
		ttl:    ttl,
	}
}

type ratesResponse struct {
	Result string             `json:"result"`
	Rates  map[string]float64 `json:"rates"`
}

// Rates returns the cached table, refreshing it when the TTL has elapsed.
func (p *CachedRateProvider) Rates(ctx context.Context) map[string]decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.rates != nil && time.Since(p.fetchedAt) < p.ttl {
		return p.rates
	}

	fresh, err := p.fetch(ctx)
	if err != nil {
		p.logger.Warn("FX rate fetch failed", zap.Error(err), zap.String("url", p.url))
		if p.rates != nil {
			// Stale live rates beat the static table
			return p.rates
		}
		fallbackUses.Inc()
		return FallbackRates()
	}

	p.rates = fresh
	p.fetchedAt = time.Now()
	p.logger.Debug("FX rates refreshed", zap.Int("currencies", len(fresh)))
	return fresh
}

func (p *CachedRateProvider) fetch(ctx context.Context) (map[string]decimal.Decimal, error) {
	var body ratesResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetResult(&body).
		Get(p.url)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("rate endpoint returned %s", resp.Status())
	}
	if len(body.Rates) == 0 {
		return nil, fmt.Errorf("rate endpoint returned no rates")
	}

	rates := make(map[string]decimal.Decimal, len(body.Rates))
	for code, rate := range body.Rates {
		if rate > 0 {
			rates[code] = decimal.NewFromFloat(rate)
		}
	}
	rates["USD"] = decimal.NewFromInt(1)
	return rates, nil
}
