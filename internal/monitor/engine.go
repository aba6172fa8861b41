package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"price-target-alerts/internal/alerting"
	"price-target-alerts/internal/feed"
	"price-target-alerts/internal/metrics"
	"price-target-alerts/internal/storage"
)

// Options tune the monitoring engine.
type Options struct {
	// TrackedChains are sampled into the price store every cycle.
	TrackedChains []string
	// WatchedChains are scanned for hourly increases; may differ from the
	// tracked set.
	WatchedChains        []string
	IncreaseThresholdPct decimal.Decimal
	// DetectionLookback bounds the history window fed into DetectIncrease.
	DetectionLookback time.Duration
	// CallTimeout applies to every external call so one hanging feed or
	// SMTP round trip cannot stall unrelated chains or alerts.
	CallTimeout   time.Duration
	SampleWorkers int
	OpsEmail      string
	LockKey       int64
}

// Engine runs the scheduled monitoring cycle: sample tracked chains,
// scan watched chains for hourly increases, evaluate pending alerts.
type Engine struct {
	opts     Options
	feed     feed.PriceFeed
	prices   storage.PriceStore
	alerts   storage.AlertStore
	notifier alerting.Notifier
	locker   storage.AdvisoryLocker
	logger   zerolog.Logger

	// mu makes RunCycle single flight: a tick arriving while a cycle is
	// in progress is dropped, never interleaved.
	mu sync.Mutex
}

// New constructs the monitoring engine. notifier and locker may be nil;
// a nil notifier disables dispatch, a nil locker disables cross-process
// exclusion.
func New(opts Options, priceFeed feed.PriceFeed, prices storage.PriceStore, alerts storage.AlertStore, notifier alerting.Notifier, locker storage.AdvisoryLocker, logger zerolog.Logger) *Engine {
	if opts.DetectionLookback <= 0 {
		opts.DetectionLookback = 24 * time.Hour
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 10 * time.Second
	}
	if opts.SampleWorkers <= 0 {
		opts.SampleWorkers = 4
	}

	return &Engine{
		opts:     opts,
		feed:     priceFeed,
		prices:   prices,
		alerts:   alerts,
		notifier: notifier,
		locker:   locker,
		logger:   logger.With().Str("component", "engine").Logger(),
	}
}

// RunCycle executes one monitoring cycle. The three steps run in order and
// are individually fault isolated: a failing chain or alert is logged and
// skipped, never aborting sibling work.
func (e *Engine) RunCycle(ctx context.Context, now time.Time) error {
	if !e.mu.TryLock() {
		e.logger.Warn().Time("tick", now).Msg("previous cycle still running; tick dropped")
		metrics.CyclesTotal.WithLabelValues("dropped").Inc()
		return nil
	}
	defer e.mu.Unlock()

	unlock, proceed, err := e.acquireLock(ctx)
	if err != nil {
		metrics.CyclesTotal.WithLabelValues("error").Inc()
		return err
	}
	if !proceed {
		e.logger.Debug().Time("tick", now).Msg("skip cycle because advisory lock held elsewhere")
		metrics.CyclesTotal.WithLabelValues("dropped").Inc()
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	e.sampleAll(ctx, now)
	e.checkIncreases(ctx, now)
	e.checkAlerts(ctx)

	metrics.CyclesTotal.WithLabelValues("complete").Inc()
	return nil
}

// sampleAll fetches and persists the spot price of every tracked chain.
// Chains fan out across workers; each chain stays on a single goroutine so
// its samples are written in timestamp order.
func (e *Engine) sampleAll(ctx context.Context, now time.Time) {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(e.opts.SampleWorkers)

	for _, chain := range e.opts.TrackedChains {
		chain := chain
		group.Go(func() error {
			price, err := e.fetchPrice(groupCtx, chain)
			if err != nil {
				e.logger.Error().Err(err).Str("chain", chain).Msg("failed to fetch price; chain skipped this cycle")
				metrics.SamplesTotal.WithLabelValues(chain, "error").Inc()
				return nil
			}

			sample := storage.PriceSample{Chain: chain, Price: price, SampledAt: now}
			if err := e.prices.InsertSample(groupCtx, sample); err != nil {
				e.logger.Error().Err(err).Str("chain", chain).Msg("failed to save price sample")
				metrics.SamplesTotal.WithLabelValues(chain, "error").Inc()
				return nil
			}

			e.logger.Info().Str("chain", chain).Str("price_usd", price.String()).Msg("price sampled")
			metrics.SamplesTotal.WithLabelValues(chain, "ok").Inc()
			return nil
		})
	}

	_ = group.Wait()
}

// checkIncreases scans each watched chain's recent history and notifies the
// operations address when the hourly change exceeds the threshold. A chain
// with no usable history is skipped silently; every qualifying cycle
// re-notifies, by design.
func (e *Engine) checkIncreases(ctx context.Context, now time.Time) {
	for _, chain := range e.opts.WatchedChains {
		history, err := e.prices.ListSamplesBetween(ctx, chain, now.Add(-e.opts.DetectionLookback), now)
		if err != nil {
			e.logger.Error().Err(err).Str("chain", chain).Msg("failed to load price history")
			continue
		}

		pct, ok := DetectIncrease(history, now)
		if !ok {
			continue
		}
		if !pct.GreaterThan(e.opts.IncreaseThresholdPct) {
			continue
		}

		e.logger.Info().Str("chain", chain).Str("increase_pct", pct.StringFixed(2)).Msg("hourly increase above threshold")
		metrics.IncreaseAlertsTotal.WithLabelValues(chain).Inc()

		if e.notifier == nil || e.opts.OpsEmail == "" {
			e.logger.Warn().Str("chain", chain).Msg("no operations recipient configured; increase notification dropped")
			continue
		}

		subject, body := alerting.RenderIncreaseAlert(chain, pct)
		if err := e.send(ctx, e.opts.OpsEmail, subject, body); err != nil {
			e.logger.Error().Err(err).Str("chain", chain).Msg("failed to dispatch increase notification")
			metrics.NotificationFailuresTotal.WithLabelValues("increase").Inc()
		}
	}
}

// checkAlerts evaluates every pending alert against the live price and
// consumes matched alerts. Alerts are processed sequentially, so no alert
// is ever evaluated twice concurrently. The notification attempt precedes
// deletion; the alert is deleted regardless of the send outcome.
func (e *Engine) checkAlerts(ctx context.Context) {
	pending, err := e.alerts.ListAlerts(ctx)
	if err != nil {
		e.logger.Error().Err(err).Msg("failed to list alerts")
		return
	}

	for _, alert := range pending {
		price, err := e.fetchPrice(ctx, alert.Chain)
		if err != nil {
			e.logger.Error().Err(err).Str("alert_id", alert.ID.String()).Str("chain", alert.Chain).Msg("failed to fetch price for alert; skipped this cycle")
			continue
		}

		if price.LessThan(alert.TargetPrice) {
			continue
		}

		if e.notifier != nil {
			subject, body := alerting.RenderTargetAlert(alert.Chain, price)
			if err := e.send(ctx, alert.Email, subject, body); err != nil {
				e.logger.Error().Err(err).Str("alert_id", alert.ID.String()).Msg("failed to dispatch alert notification")
				metrics.NotificationFailuresTotal.WithLabelValues("target").Inc()
			}
		}

		if err := e.alerts.DeleteAlert(ctx, alert.ID); err != nil {
			e.logger.Error().Err(err).Str("alert_id", alert.ID.String()).Msg("failed to delete matched alert")
			continue
		}

		e.logger.Info().Str("alert_id", alert.ID.String()).
			Str("chain", alert.Chain).
			Str("target_price", alert.TargetPrice.String()).
			Str("price_usd", price.String()).
			Msg("alert matched and consumed")
		metrics.TargetAlertsTotal.WithLabelValues(alert.Chain).Inc()
	}
}

func (e *Engine) fetchPrice(ctx context.Context, chain string) (decimal.Decimal, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
	defer cancel()
	return e.feed.Fetch(callCtx, chain)
}

func (e *Engine) send(ctx context.Context, to, subject, body string) error {
	callCtx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
	defer cancel()
	return e.notifier.Send(callCtx, to, subject, body)
}

func (e *Engine) acquireLock(ctx context.Context) (func(), bool, error) {
	if e.opts.LockKey == 0 || e.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := e.locker.TryAdvisoryLock(ctx, e.opts.LockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
