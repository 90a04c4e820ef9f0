package agent

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/arpitjain2323/buddyguard/internal/alert"
	"github.com/arpitjain2323/buddyguard/internal/capture"
	"github.com/arpitjain2323/buddyguard/internal/classifier"
	"github.com/arpitjain2323/buddyguard/internal/delivery"
	"github.com/arpitjain2323/buddyguard/internal/errors"
	"github.com/arpitjain2323/buddyguard/internal/logger"
	"github.com/arpitjain2323/buddyguard/internal/usage"
)

// AlertSink receives approved alerts for delivery
type AlertSink interface {
	SubmitAlert(event alert.Event)
}

// Stats is a point-in-time snapshot of the scheduler's counters
type Stats struct {
	Ticks              uint64
	MissedTicks        uint64
	CaptureFailures    uint64
	ClassifierFailures uint64
}

// Agent is the capture scheduler: a single timer-driven loop that pulls a
// snapshot each interval, feeds the usage aggregator, and hands frames to
// the classifier. Classification runs on its own goroutine so a slow call
// never blocks the next tick's sampling; its result comes back through the
// loop's select, the one place that touches the cooldown engine.
type Agent struct {
	cfg        Config
	source     capture.Source
	classifier classifier.Classifier
	engine     *alert.Engine
	aggregator *usage.Aggregator
	alerts     AlertSink

	deliveryStats func() delivery.Stats

	ticks              atomic.Uint64
	missedTicks        atomic.Uint64
	captureFailures    atomic.Uint64
	classifierFailures atomic.Uint64
}

type classifyOutcome struct {
	result   classifier.Result
	snapshot *capture.Snapshot
	err      error
}

func New(
	cfg Config,
	source capture.Source,
	cls classifier.Classifier,
	engine *alert.Engine,
	aggregator *usage.Aggregator,
	alerts AlertSink,
) (*Agent, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}
	if source == nil || engine == nil || aggregator == nil || alerts == nil {
		return nil, errFactory.WithMessage(ErrInvalidConfig, "missing component")
	}
	if cfg.ClassifierEnabled && cls == nil {
		return nil, errFactory.WithMessage(ErrInvalidConfig, "classifier enabled but not provided")
	}
	if cfg.ClassifyEveryN < 1 {
		cfg.ClassifyEveryN = 1
	}

	return &Agent{
		cfg:        cfg,
		source:     source,
		classifier: cls,
		engine:     engine,
		aggregator: aggregator,
		alerts:     alerts,
	}, nil
}

// WithDeliveryStats wires the delivery counters into the periodic status line
func (a *Agent) WithDeliveryStats(fn func() delivery.Stats) *Agent {
	a.deliveryStats = fn
	return a
}

// Stats returns a snapshot of the scheduler counters
func (a *Agent) Stats() Stats {
	return Stats{
		Ticks:              a.ticks.Load(),
		MissedTicks:        a.missedTicks.Load(),
		CaptureFailures:    a.captureFailures.Load(),
		ClassifierFailures: a.classifierFailures.Load(),
	}
}

// Run drives the capture loop until the context is cancelled. No single-tick
// failure is ever fatal; the loop survives indefinitely.
func (a *Agent) Run(ctx context.Context) error {
	interval := time.Duration(a.cfg.IntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info().
		Int("interval_seconds", a.cfg.IntervalSeconds).
		Bool("classifier", a.cfg.ClassifierEnabled).
		Msg("Capture scheduler started")

	classifyCh := make(chan classifyOutcome, 1)
	classifying := false

	for {
		select {
		case <-ctx.Done():
			if classifying {
				// Let the in-flight classification settle within a grace
				// period; its alerts still go through the normal path.
				select {
				case outcome := <-classifyCh:
					a.handleClassification(outcome)
				case <-time.After(5 * time.Second):
					logger.Warn().Msg("Abandoning in-flight classification at shutdown")
				}
			}
			a.aggregator.Flush()
			logger.Info().Msg("Capture scheduler stopped")
			return nil

		case outcome := <-classifyCh:
			classifying = false
			a.handleClassification(outcome)

		case <-ticker.C:
			if classifying {
				// Previous tick's work still in progress; ticks never
				// queue up or run concurrently.
				a.missedTicks.Add(1)
				logger.Debug().Msg("Tick skipped, previous work in progress")
				continue
			}
			classifying = a.tick(ctx, classifyCh)

			// Discard a tick that came due while this one was working
			select {
			case <-ticker.C:
				a.missedTicks.Add(1)
				logger.Debug().Msg("Tick skipped, capture overran the interval")
			default:
			}
		}
	}
}

// tick performs one capture cycle. Returns whether a classification was
// started asynchronously.
func (a *Agent) tick(ctx context.Context, classifyCh chan<- classifyOutcome) bool {
	tickNum := a.ticks.Add(1)

	snapshot, err := a.source.Capture(ctx)
	if err != nil {
		a.captureFailures.Add(1)
		logger.Warn().Err(err).Msg("Capture failed, skipping tick")
		return false
	}

	// Usage tracking is independent of classifier availability
	a.aggregator.Observe(snapshot)
	a.logStatus(snapshot)

	if !a.cfg.ClassifierEnabled {
		return false
	}
	if (tickNum-1)%uint64(a.cfg.ClassifyEveryN) != 0 {
		return false
	}

	go func() {
		result, err := a.classifier.Classify(ctx, snapshot)
		classifyCh <- classifyOutcome{result: result, snapshot: snapshot, err: err}
	}()

	return true
}

func (a *Agent) handleClassification(outcome classifyOutcome) {
	if outcome.err != nil {
		// Recoverable: the tick is treated as unclassified, no alert
		a.classifierFailures.Add(1)
		logger.Warn().Err(outcome.err).Msg("Classification failed")
		return
	}

	events := a.engine.Decide(outcome.result, outcome.snapshot, time.Now())
	for _, event := range events {
		a.alerts.SubmitAlert(event)
		logger.Info().
			Str("category", string(event.Category)).
			Float64("score", event.Score).
			Str("app", event.App).
			Msg("Alert emitted")
	}
}

func (a *Agent) logStatus(snapshot *capture.Snapshot) {
	event := logger.Debug().
		Str("app", snapshot.ForegroundApp).
		Float64("cpu_pct", snapshot.CPUPercent).
		Float64("mem_pct", snapshot.MemPercent).
		Uint64("ticks", a.ticks.Load()).
		Uint64("missed_ticks", a.missedTicks.Load()).
		Uint64("capture_failures", a.captureFailures.Load()).
		Uint64("gaps", a.aggregator.GapCount())

	if a.deliveryStats != nil {
		stats := a.deliveryStats()
		event = event.
			Uint64("delivered", stats.Delivered).
			Uint64("dropped", stats.Dropped).
			Int("queue_depth", stats.QueueDepth)
	}

	event.Msg("")
}
