package usage_test

import (
	"testing"
	"time"

	"github.com/arpitjain2323/buddyguard/internal/capture"
	"github.com/arpitjain2323/buddyguard/internal/usage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAggregator(t *testing.T) (*usage.Aggregator, *[]*usage.Record) {
	t.Helper()
	var closed []*usage.Record
	aggregator, err := usage.NewAggregator(usage.Config{
		DeviceID:               "dev-1",
		BucketSeconds:          60,
		CaptureIntervalSeconds: 45,
	}, func(record *usage.Record) {
		closed = append(closed, record)
	})
	require.NoError(t, err)
	return aggregator, &closed
}

func snapshotAt(ts time.Time, app string, cpu, mem float64) *capture.Snapshot {
	return &capture.Snapshot{
		Timestamp:     ts,
		ForegroundApp: app,
		CPUPercent:    cpu,
		MemPercent:    mem,
	}
}

func TestAttributionAndBucketRollover(t *testing.T) {
	aggregator, closed := newTestAggregator(t)
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	// First sample opens the bucket but attributes nothing
	aggregator.Observe(snapshotAt(base, "Safari", 10, 40))
	assert.Empty(t, *closed)

	// 45s later: full interval attributed to the current foreground app
	aggregator.Observe(snapshotAt(base.Add(45*time.Second), "Safari", 20, 50))
	assert.Empty(t, *closed)

	// 45s later again: crosses the 10:01:00 boundary. 15s belong to the
	// closing bucket, 30s carry into the new one.
	aggregator.Observe(snapshotAt(base.Add(90*time.Second), "Safari", 30, 60))
	require.Len(t, *closed, 1)

	record := (*closed)[0]
	assert.Equal(t, "dev-1", record.DeviceID)
	assert.Equal(t, base, record.BucketStart)
	assert.Equal(t, time.Minute, record.BucketDuration)
	assert.InDelta(t, 60.0, record.AppSeconds["Safari"], 0.001)
	assert.LessOrEqual(t, record.TotalSeconds(), record.BucketDuration.Seconds())

	// The carry lands in the next bucket
	aggregator.Flush()
	require.Len(t, *closed, 2)
	next := (*closed)[1]
	assert.Equal(t, base.Add(time.Minute), next.BucketStart)
	assert.InDelta(t, 30.0, next.AppSeconds["Safari"], 0.001)
}

func TestSkippedBucketNotCredited(t *testing.T) {
	aggregator, closed := newTestAggregator(t)
	base := time.Date(2025, 3, 1, 10, 0, 59, 0, time.UTC)

	aggregator.Observe(snapshotAt(base, "Safari", 0, 0))

	// 62s later: within the gap allowance, but the sample skips the entire
	// [10:01, 10:02) bucket. Only the 1s before 10:01:00 belongs to the
	// closing bucket and only the 1s after 10:02:00 to the new one; the
	// 60s in between are dropped, never booked into either.
	aggregator.Observe(snapshotAt(base.Add(62*time.Second), "Safari", 0, 0))
	require.Len(t, *closed, 1)
	assert.InDelta(t, 1.0, (*closed)[0].AppSeconds["Safari"], 0.001)

	aggregator.Flush()
	require.Len(t, *closed, 2)
	next := (*closed)[1]
	assert.Equal(t, time.Date(2025, 3, 1, 10, 2, 0, 0, time.UTC), next.BucketStart)
	assert.LessOrEqual(t, next.AppSeconds["Safari"], 1.0)
}

func TestBrowserURLAttribution(t *testing.T) {
	aggregator, closed := newTestAggregator(t)
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	withURL := func(ts time.Time, url string) *capture.Snapshot {
		snap := snapshotAt(ts, "Google Chrome", 0, 0)
		snap.URL = url
		return snap
	}

	aggregator.Observe(withURL(base, "https://example.com/a"))
	aggregator.Observe(withURL(base.Add(15*time.Second), "https://example.com/a"))
	aggregator.Observe(withURL(base.Add(30*time.Second), "https://example.com/b"))
	// No URL resolved: app time still accrues, URL time does not
	aggregator.Observe(withURL(base.Add(45*time.Second), ""))

	aggregator.Flush()
	require.Len(t, *closed, 1)
	record := (*closed)[0]
	assert.InDelta(t, 45.0, record.AppSeconds["Google Chrome"], 0.001)
	assert.InDelta(t, 15.0, record.URLSeconds["https://example.com/a"], 0.001)
	assert.InDelta(t, 15.0, record.URLSeconds["https://example.com/b"], 0.001)
}

func TestGapExcludedFromAttribution(t *testing.T) {
	aggregator, closed := newTestAggregator(t)
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	aggregator.Observe(snapshotAt(base, "Safari", 0, 0))

	// 90s since the last sample (capture failed at t+45): a gap beyond the
	// interval must not inflate any app's attributed time.
	aggregator.Observe(snapshotAt(base.Add(90*time.Second), "Safari", 0, 0))
	assert.Equal(t, uint64(1), aggregator.GapCount())

	aggregator.Flush()
	var total float64
	for _, record := range *closed {
		total += record.TotalSeconds()
	}
	assert.Zero(t, total)
}

func TestElapsedCappedAtCaptureInterval(t *testing.T) {
	aggregator, closed := newTestAggregator(t)
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	aggregator.Observe(snapshotAt(base, "Terminal", 0, 0))
	// 50s elapsed is within the gap allowance but above the interval;
	// attribution is capped at 45s to bound drift.
	aggregator.Observe(snapshotAt(base.Add(50*time.Second), "Terminal", 0, 0))

	aggregator.Flush()
	require.Len(t, *closed, 1)
	assert.InDelta(t, 45.0, (*closed)[0].AppSeconds["Terminal"], 0.001)
}

func TestAppSwitchAttribution(t *testing.T) {
	aggregator, closed := newTestAggregator(t)
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	aggregator.Observe(snapshotAt(base, "Safari", 0, 0))
	aggregator.Observe(snapshotAt(base.Add(20*time.Second), "Terminal", 0, 0))
	aggregator.Observe(snapshotAt(base.Add(40*time.Second), "Terminal", 0, 0))

	aggregator.Flush()
	require.Len(t, *closed, 1)
	record := (*closed)[0]
	assert.InDelta(t, 40.0, record.AppSeconds["Terminal"], 0.001)
	assert.NotContains(t, record.AppSeconds, "Safari")
}

func TestIncrementalResourceMeans(t *testing.T) {
	aggregator, closed := newTestAggregator(t)
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	aggregator.Observe(snapshotAt(base, "Safari", 10, 30))
	aggregator.Observe(snapshotAt(base.Add(15*time.Second), "Safari", 20, 40))
	aggregator.Observe(snapshotAt(base.Add(30*time.Second), "Safari", 30, 50))

	aggregator.Flush()
	require.Len(t, *closed, 1)
	record := (*closed)[0]
	assert.Equal(t, 3, record.Samples)
	assert.InDelta(t, 20.0, record.AvgCPUPercent, 0.001)
	assert.InDelta(t, 40.0, record.AvgMemPercent, 0.001)
}

func TestUnknownForegroundAppUnattributed(t *testing.T) {
	aggregator, closed := newTestAggregator(t)
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	aggregator.Observe(snapshotAt(base, "", 0, 0))
	aggregator.Observe(snapshotAt(base.Add(45*time.Second), "", 0, 0))

	aggregator.Flush()
	require.Len(t, *closed, 1)
	assert.Empty(t, (*closed)[0].AppSeconds)
	assert.Equal(t, 2, (*closed)[0].Samples)
}

func TestFlushWithoutSamplesEmitsNothing(t *testing.T) {
	aggregator, closed := newTestAggregator(t)
	aggregator.Flush()
	assert.Empty(t, *closed)
}

func TestInvalidConfigRejected(t *testing.T) {
	_, err := usage.NewAggregator(usage.Config{BucketSeconds: 0, CaptureIntervalSeconds: 45}, func(*usage.Record) {})
	require.Error(t, err)

	_, err = usage.NewAggregator(usage.Config{BucketSeconds: 60, CaptureIntervalSeconds: 45}, nil)
	require.Error(t, err)
}
