package classifier

import (
	"context"
	"time"

	"github.com/arpitjain2323/buddyguard/internal/capture"
)

// Category names one class of harmful content
type Category string

// Default categories, matching the collector's alert taxonomy
const (
	CategoryInappropriate Category = "inappropriate"
	CategoryViolence      Category = "violence"
	CategorySelfHarm      Category = "self_harm"
	CategoryBullyingHate  Category = "bullying_hate"
)

// Result holds the per-category scores derived from one Snapshot.
// It is ephemeral and never persisted.
type Result struct {
	SnapshotTimestamp time.Time
	Scores            map[Category]float64
}

// Flagged reports whether any category scored above zero
func (r Result) Flagged() bool {
	for _, score := range r.Scores {
		if score > 0 {
			return true
		}
	}
	return false
}

// Classifier maps a Snapshot to per-category scores. Implementations may
// call out to a remote service and are expected to honor the context.
type Classifier interface {
	Classify(ctx context.Context, snapshot *capture.Snapshot) (Result, error)
}
