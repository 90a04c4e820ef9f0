package usage

import "github.com/arpitjain2323/buddyguard/internal/errors"

const (
	ErrInvalidConfig = errors.ErrorCode("usage_invalid_config")
	ErrInvalidBucket = errors.ErrorCode("usage_invalid_bucket")

	defaultBucketSeconds = 60

	// Elapsed time beyond this multiple of the capture interval is treated
	// as a gap (sleep, missed ticks) and attributed to nothing.
	gapFactor = 1.5
)

type Config struct {
	DeviceID               string
	BucketSeconds          int
	CaptureIntervalSeconds int
}

func DefaultConfig() Config {
	return Config{
		BucketSeconds: defaultBucketSeconds,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.BucketSeconds <= 0 {
		return errFactory.WithData(ErrInvalidBucket, c.BucketSeconds)
	}
	if c.CaptureIntervalSeconds <= 0 {
		return errFactory.WithMessage(ErrInvalidConfig, "capture interval must be positive")
	}

	return nil
}
