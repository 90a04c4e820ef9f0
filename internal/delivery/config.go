package delivery

import (
	"time"

	"github.com/arpitjain2323/buddyguard/internal/errors"
)

const (
	defaultQueueSize      = 256
	defaultRequestTimeout = 15 * time.Second

	backoffBase = 1 * time.Second
	backoffCap  = 60 * time.Second
)

type Config struct {
	Endpoint          string
	APIKey            string
	QueueSize         int
	UploadAttachments bool
	SpoolPath         string
}

func DefaultConfig() Config {
	return Config{
		QueueSize: defaultQueueSize,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.Endpoint == "" {
		return errFactory.New(ErrInvalidEndpoint)
	}
	if c.QueueSize <= 0 {
		return errFactory.WithMessage(ErrInvalidConfig, "queue size must be positive")
	}

	return nil
}
