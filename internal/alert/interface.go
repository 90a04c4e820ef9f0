package alert

import (
	"time"

	"github.com/arpitjain2323/buddyguard/internal/classifier"
)

// Event is an approved harmful-content alert. Immutable once created;
// construction and the cooldown-state update happen atomically inside
// Engine.Decide.
type Event struct {
	ID          string
	DeviceID    string
	Category    classifier.Category
	Score       float64
	Timestamp   time.Time
	App         string
	WindowTitle string
	URL         string // active browser URL at capture time, when known
	Attachment  []byte // redacted frame; populated only when retention is configured
}
