package delivery

import "time"

// ItemType distinguishes the two event streams the collector ingests
type ItemType string

const (
	TypeUsage ItemType = "usage_summary"
	TypeAlert ItemType = "harmful_content_alert"
)

// Item is one pending event awaiting acknowledgment by the collector.
// ID is stable across retries so the collector can dedupe.
type Item struct {
	ID        string
	Type      ItemType
	DeviceID  string
	Timestamp time.Time
	Payload   any
}

// Stats is a point-in-time snapshot of the client's counters
type Stats struct {
	Delivered    uint64
	Retries      uint64
	Dropped      uint64
	Unauthorized uint64
	Rejected     uint64
	QueueDepth   int
}
