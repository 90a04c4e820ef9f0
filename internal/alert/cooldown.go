package alert

import (
	"sort"
	"time"

	"github.com/arpitjain2323/buddyguard/internal/capture"
	"github.com/arpitjain2323/buddyguard/internal/classifier"
	"github.com/arpitjain2323/buddyguard/internal/errors"
	"github.com/google/uuid"
)

// Engine decides whether a classification result becomes alerts, enforcing
// a minimum inter-alert gap per category. Cooldown state lives for the
// process lifetime and is owned exclusively by the Engine; all calls happen
// on the scheduler's serialization point, so no locking is required.
type Engine struct {
	cfg      Config
	cooldown time.Duration
	last     map[classifier.Category]time.Time
}

func NewEngine(cfg Config) (*Engine, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	return &Engine{
		cfg:      cfg,
		cooldown: time.Duration(cfg.CooldownSeconds) * time.Second,
		last:     make(map[classifier.Category]time.Time),
	}, nil
}

// Decide emits one Event per qualifying category. Categories are
// independent: a category inside its cooldown window is suppressed without
// affecting the others, and every approved category produces its own Event.
func (e *Engine) Decide(result classifier.Result, snapshot *capture.Snapshot, now time.Time) []Event {
	if len(result.Scores) == 0 {
		return nil
	}

	categories := make([]classifier.Category, 0, len(result.Scores))
	for category := range result.Scores {
		categories = append(categories, category)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })

	var events []Event
	for _, category := range categories {
		score := result.Scores[category]
		if score < e.threshold(category) {
			continue
		}
		if last, ok := e.last[category]; ok && now.Sub(last) < e.cooldown {
			continue
		}

		event := Event{
			ID:        uuid.NewString(),
			DeviceID:  e.cfg.DeviceID,
			Category:  category,
			Score:     score,
			Timestamp: now,
		}
		if snapshot != nil {
			event.App = snapshot.ForegroundApp
			event.WindowTitle = snapshot.WindowTitle
			event.URL = snapshot.URL
			if e.cfg.RetainAttachments && len(snapshot.Frame) > 0 {
				event.Attachment = snapshot.Frame
			}
		}

		e.last[category] = now
		events = append(events, event)
	}

	return events
}

func (e *Engine) threshold(category classifier.Category) float64 {
	if threshold, ok := e.cfg.Thresholds[category]; ok {
		return threshold
	}
	return e.cfg.DefaultThreshold
}

// NextEligible reports when the given category may alert again.
// The zero time means it is eligible now.
func (e *Engine) NextEligible(category classifier.Category) time.Time {
	last, ok := e.last[category]
	if !ok {
		return time.Time{}
	}
	return last.Add(e.cooldown)
}
