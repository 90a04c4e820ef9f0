package usage

import (
	"time"

	"github.com/arpitjain2323/buddyguard/internal/capture"
	"github.com/arpitjain2323/buddyguard/internal/errors"
	"github.com/arpitjain2323/buddyguard/internal/logger"
)

// Aggregator accumulates snapshots into fixed-size, wall-clock-aligned
// buckets. It is touched only by the scheduler's tick and needs no locking.
type Aggregator struct {
	cfg      Config
	bucket   time.Duration
	interval time.Duration
	sink     Sink

	open       *Record
	prevSample time.Time
	gapCount   uint64
}

func NewAggregator(cfg Config, sink Sink) (*Aggregator, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}
	if sink == nil {
		return nil, errFactory.WithMessage(ErrInvalidConfig, "sink is required")
	}

	return &Aggregator{
		cfg:      cfg,
		bucket:   time.Duration(cfg.BucketSeconds) * time.Second,
		interval: time.Duration(cfg.CaptureIntervalSeconds) * time.Second,
		sink:     sink,
	}, nil
}

// Observe folds one snapshot into the open bucket, closing it first when
// the snapshot falls into a new bucket.
func (a *Aggregator) Observe(snapshot *capture.Snapshot) {
	ts := snapshot.Timestamp
	attributed := a.attribution(ts)
	bucketStart := ts.Truncate(a.bucket)

	if a.open != nil && !bucketStart.Equal(a.open.BucketStart) {
		// A sample spanning bucket boundaries credits only the portion
		// inside the closing bucket and the portion inside the new one;
		// time that fell in skipped buckets in between is dropped.
		if attributed > 0 && snapshot.ForegroundApp != "" {
			carry := ts.Sub(bucketStart).Seconds()
			if carry < 0 {
				carry = 0
			}
			if carry > attributed {
				carry = attributed
			}
			before := attributed - carry
			boundary := a.open.BucketStart.Add(a.bucket)
			if limit := boundary.Sub(a.prevSample).Seconds(); before > limit {
				before = limit
			}
			a.credit(a.open, snapshot.ForegroundApp, snapshot.URL, before)
			attributed = carry
		}
		a.closeBucket()
	}

	if a.open == nil {
		a.open = &Record{
			DeviceID:       a.cfg.DeviceID,
			BucketStart:    bucketStart,
			BucketDuration: a.bucket,
			AppSeconds:     make(map[string]float64),
			URLSeconds:     make(map[string]float64),
		}
	}

	if attributed > 0 && snapshot.ForegroundApp != "" {
		a.credit(a.open, snapshot.ForegroundApp, snapshot.URL, attributed)
	}

	a.open.Samples++
	n := float64(a.open.Samples)
	a.open.AvgCPUPercent += (snapshot.CPUPercent - a.open.AvgCPUPercent) / n
	a.open.AvgMemPercent += (snapshot.MemPercent - a.open.AvgMemPercent) / n

	a.prevSample = ts
}

// Flush closes the open bucket, handing it to the sink. Called on shutdown.
func (a *Aggregator) Flush() {
	a.closeBucket()
}

// GapCount returns how many inter-sample gaps were excluded from attribution
func (a *Aggregator) GapCount() uint64 {
	return a.gapCount
}

// attribution returns the seconds of foreground time the snapshot accounts
// for: the inter-sample interval, capped at the capture interval. A gap well
// beyond the interval (system sleep, missed ticks) is excluded entirely so
// totals never exceed wall-clock bucket length.
func (a *Aggregator) attribution(ts time.Time) float64 {
	if a.prevSample.IsZero() {
		return 0
	}

	elapsed := ts.Sub(a.prevSample)
	if elapsed <= 0 {
		return 0
	}
	if elapsed > time.Duration(float64(a.interval)*gapFactor) {
		a.gapCount++
		logger.Debug().
			Dur("elapsed", elapsed).
			Dur("interval", a.interval).
			Msg("Sample gap excluded from usage attribution")
		return 0
	}
	if elapsed > a.interval {
		elapsed = a.interval
	}

	return elapsed.Seconds()
}

// credit adds seconds to an app (and its browser URL, when present), never
// letting the bucket total exceed the bucket duration.
func (a *Aggregator) credit(record *Record, app, url string, seconds float64) {
	if seconds <= 0 {
		return
	}
	remaining := record.BucketDuration.Seconds() - record.TotalSeconds()
	if remaining <= 0 {
		return
	}
	if seconds > remaining {
		seconds = remaining
	}
	record.AppSeconds[app] += seconds
	if url != "" {
		record.URLSeconds[url] += seconds
	}
}

func (a *Aggregator) closeBucket() {
	if a.open == nil {
		return
	}
	record := a.open
	a.open = nil
	if record.Samples == 0 {
		return
	}
	a.sink(record)
}
