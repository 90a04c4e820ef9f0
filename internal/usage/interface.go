package usage

import "time"

// Record aggregates foreground-app time and resource averages over one
// wall-clock-aligned bucket. It is mutated only while its bucket is open,
// exclusively by the Aggregator, then frozen and handed to the sink.
type Record struct {
	DeviceID       string
	BucketStart    time.Time
	BucketDuration time.Duration
	AppSeconds     map[string]float64
	URLSeconds     map[string]float64 // browser time keyed by page URL
	AvgCPUPercent  float64
	AvgMemPercent  float64
	Samples        int
}

// TotalSeconds returns the attributed time across all apps
func (r *Record) TotalSeconds() float64 {
	var total float64
	for _, seconds := range r.AppSeconds {
		total += seconds
	}
	return total
}

// Sink receives frozen usage records as buckets close
type Sink func(*Record)
