package classifier

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/arpitjain2323/buddyguard/internal/capture"
	"github.com/arpitjain2323/buddyguard/internal/errors"
)

// remoteClassifier submits the frame and derived text to a moderation
// service and maps its per-category scores onto a Result.
type remoteClassifier struct {
	cfg    Config
	client *http.Client
}

type moderationRequest struct {
	Timestamp int64  `json:"timestamp"`
	Text      string `json:"text,omitempty"`
	Image     string `json:"image_b64,omitempty"`
}

type moderationResponse struct {
	Scores map[string]float64 `json:"scores"`
}

func newRemoteClassifier(cfg Config) *remoteClassifier {
	return &remoteClassifier{
		cfg: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

func (r *remoteClassifier) Classify(ctx context.Context, snapshot *capture.Snapshot) (Result, error) {
	errFactory := errors.New()

	result := Result{SnapshotTimestamp: snapshot.Timestamp}

	reqBody := moderationRequest{
		Timestamp: snapshot.Timestamp.Unix(),
		Text:      deriveText(snapshot),
	}
	if len(snapshot.Frame) > 0 {
		reqBody.Image = base64.StdEncoding.EncodeToString(snapshot.Frame)
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return result, errFactory.Wrap(ErrBadResponse, err)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.TimeoutSeconds)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return result, errFactory.Wrap(ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.cfg.APIKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return result, errFactory.Wrap(ErrTimeout, ctx.Err())
		}
		return result, errFactory.Wrap(ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return result, errFactory.WithData(ErrUnavailable, resp.StatusCode)
	}

	var decoded moderationResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return result, errFactory.Wrap(ErrBadResponse, err)
	}

	if len(decoded.Scores) > 0 {
		result.Scores = make(map[Category]float64, len(decoded.Scores))
		for name, score := range decoded.Scores {
			result.Scores[Category(name)] = score
		}
	}

	return result, nil
}
