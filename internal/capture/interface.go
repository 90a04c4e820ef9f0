package capture

import (
	"context"
	"time"
)

// Snapshot is one capture tick's frame plus foreground-context metadata.
// It is created once per tick and never mutated afterwards.
type Snapshot struct {
	Timestamp     time.Time
	Frame         []byte // nil when frame capture is disabled or denied
	ForegroundApp string
	WindowTitle   string
	URL           string // active tab URL when the foreground app is a known browser
	CPUPercent    float64
	MemPercent    float64
}

// Source produces a Snapshot of the monitored device on demand
type Source interface {
	Capture(ctx context.Context) (*Snapshot, error)
}
