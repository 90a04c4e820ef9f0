package delivery

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"math/rand"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/arpitjain2323/buddyguard/internal/alert"
	"github.com/arpitjain2323/buddyguard/internal/errors"
	"github.com/arpitjain2323/buddyguard/internal/logger"
	"github.com/arpitjain2323/buddyguard/internal/usage"
	"github.com/google/uuid"
)

// Client ships usage records and alerts to the collector. Submit enqueues
// and returns immediately; a single delivery goroutine works the queue head
// with exponential backoff, so capture ticks never block on network I/O.
type Client struct {
	cfg        Config
	queue      *boundedQueue
	spool      Spool
	httpClient *http.Client

	delivered    atomic.Uint64
	retries      atomic.Uint64
	dropped      atomic.Uint64
	unauthorized atomic.Uint64
	rejected     atomic.Uint64

	cancel context.CancelFunc
	done   chan struct{}
}

type envelope struct {
	ID        string `json:"id"`
	DeviceID  string `json:"device_id"`
	Timestamp int64  `json:"timestamp"`
	Type      string `json:"type"`
	Payload   any    `json:"payload"`
}

type usagePayload struct {
	BucketStart   int64              `json:"bucket_start"`
	BucketSeconds int                `json:"bucket_seconds"`
	AppSeconds    map[string]float64 `json:"app_seconds"`
	URLSeconds    map[string]float64 `json:"url_seconds,omitempty"`
	AvgCPUPercent float64            `json:"avg_cpu_pct"`
	AvgMemPercent float64            `json:"avg_mem_pct"`
	Samples       int                `json:"samples"`
}

type alertPayload struct {
	Category   string  `json:"category"`
	Score      float64 `json:"score"`
	App        string  `json:"app,omitempty"`
	Title      string  `json:"title,omitempty"`
	URL        string  `json:"url,omitempty"`
	Attachment string  `json:"attachment_b64,omitempty"`
}

func NewClient(cfg Config) (*Client, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	spool, err := NewSpool(cfg.SpoolPath)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		cfg:        cfg,
		queue:      newBoundedQueue(cfg.QueueSize),
		spool:      spool,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	go c.run(ctx)

	return c, nil
}

// SubmitUsage enqueues one frozen usage record
func (c *Client) SubmitUsage(record *usage.Record) {
	c.Submit(Item{
		ID:        uuid.NewString(),
		Type:      TypeUsage,
		DeviceID:  record.DeviceID,
		Timestamp: record.BucketStart,
		Payload: usagePayload{
			BucketStart:   record.BucketStart.Unix(),
			BucketSeconds: int(record.BucketDuration.Seconds()),
			AppSeconds:    record.AppSeconds,
			URLSeconds:    record.URLSeconds,
			AvgCPUPercent: record.AvgCPUPercent,
			AvgMemPercent: record.AvgMemPercent,
			Samples:       record.Samples,
		},
	})
}

// SubmitAlert enqueues one approved alert. The attachment travels with the
// payload only when attachment upload is configured.
func (c *Client) SubmitAlert(event alert.Event) {
	payload := alertPayload{
		Category: string(event.Category),
		Score:    event.Score,
		App:      event.App,
		Title:    event.WindowTitle,
		URL:      event.URL,
	}
	if c.cfg.UploadAttachments && len(event.Attachment) > 0 {
		payload.Attachment = base64.StdEncoding.EncodeToString(event.Attachment)
	}

	c.Submit(Item{
		ID:        event.ID,
		Type:      TypeAlert,
		DeviceID:  event.DeviceID,
		Timestamp: event.Timestamp,
		Payload:   payload,
	})
}

// Submit enqueues without blocking; anything evicted to make room is
// counted and spooled.
func (c *Client) Submit(item Item) {
	for _, evicted := range c.queue.Push(item) {
		c.dropped.Add(1)
		if err := c.spool.Store(evicted, "queue_full"); err != nil {
			logger.Error().Err(err).Msg("Failed to spool evicted item")
		}
		logger.Warn().
			Str("type", string(evicted.Type)).
			Str("id", evicted.ID).
			Msg("Delivery queue full, item evicted")
	}
}

// Stats returns a snapshot of the delivery counters
func (c *Client) Stats() Stats {
	return Stats{
		Delivered:    c.delivered.Load(),
		Retries:      c.retries.Load(),
		Dropped:      c.dropped.Load(),
		Unauthorized: c.unauthorized.Load(),
		Rejected:     c.rejected.Load(),
		QueueDepth:   c.queue.Len(),
	}
}

// Close stops the delivery loop, waiting up to grace for an in-flight
// request, then spools whatever is still pending.
func (c *Client) Close(grace time.Duration) error {
	c.queue.Close()
	c.cancel()

	select {
	case <-c.done:
	case <-time.After(grace):
		logger.Warn().Msg("Delivery loop did not stop within grace period")
	}

	for _, item := range c.queue.Drain() {
		if err := c.spool.Store(item, "shutdown"); err != nil {
			logger.Error().Err(err).Msg("Failed to spool pending item at shutdown")
		}
	}

	return c.spool.Close()
}

func (c *Client) run(ctx context.Context) {
	defer close(c.done)

	attempt := 0
	currentID := ""

	for {
		item, err := c.queue.Head(ctx)
		if err != nil {
			return
		}
		if item.ID != currentID {
			currentID = item.ID
			attempt = 0
		}

		err = c.send(ctx, item)
		switch {
		case err == nil:
			c.queue.Ack(item.ID)
			c.delivered.Add(1)
			logger.Debug().Str("type", string(item.Type)).Str("id", item.ID).Msg("Event delivered")

		case errors.HasCode(err, ErrUnauthorized):
			// Retrying a rejected credential would starve the queue;
			// surface loudly and move on.
			c.queue.Ack(item.ID)
			c.unauthorized.Add(1)
			if spoolErr := c.spool.Store(item, "unauthorized"); spoolErr != nil {
				logger.Error().Err(spoolErr).Msg("Failed to spool unauthorized item")
			}
			logger.Error().
				Str("type", string(item.Type)).
				Str("id", item.ID).
				Msg("Collector rejected credential, item dropped; check delivery.api_key")

		case errors.HasCode(err, ErrRejected):
			c.queue.Ack(item.ID)
			c.rejected.Add(1)
			if spoolErr := c.spool.Store(item, "rejected"); spoolErr != nil {
				logger.Error().Err(spoolErr).Msg("Failed to spool rejected item")
			}
			logger.Warn().
				Str("type", string(item.Type)).
				Str("id", item.ID).
				Err(err).
				Msg("Collector rejected payload, item dropped")

		default:
			c.retries.Add(1)
			attempt++
			delay := backoffDelay(attempt)
			logger.Debug().
				Err(err).
				Int("attempt", attempt).
				Dur("backoff", delay).
				Msg("Delivery failed, backing off")
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}
	}
}

func (c *Client) send(ctx context.Context, item Item) error {
	errFactory := errors.New()

	body, err := json.Marshal(envelope{
		ID:        item.ID,
		DeviceID:  item.DeviceID,
		Timestamp: item.Timestamp.Unix(),
		Type:      string(item.Type),
		Payload:   item.Payload,
	})
	if err != nil {
		return errFactory.Wrap(ErrRejected, err)
	}

	url := strings.TrimRight(c.cfg.Endpoint, "/") + "/api/events"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errFactory.Wrap(ErrTransient, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errFactory.Wrap(ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errFactory.WithData(ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return errFactory.WithData(ErrRejected, resp.StatusCode)
	default:
		return errFactory.WithData(ErrTransient, resp.StatusCode)
	}
}

// backoffDelay implements full-jitter exponential backoff: uniformly random
// in [0, min(cap, base*2^(attempt-1))].
func backoffDelay(attempt int) time.Duration {
	ceiling := backoffBase
	for i := 1; i < attempt && ceiling < backoffCap; i++ {
		ceiling *= 2
	}
	if ceiling > backoffCap {
		ceiling = backoffCap
	}

	return time.Duration(rand.Int63n(int64(ceiling) + 1))
}
