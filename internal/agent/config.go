package agent

import "github.com/arpitjain2323/buddyguard/internal/errors"

const (
	ErrInvalidConfig   = errors.ErrorCode("agent_invalid_config")
	ErrInvalidInterval = errors.ErrorCode("agent_invalid_interval")

	defaultIntervalSeconds = 45
)

type Config struct {
	IntervalSeconds   int
	ClassifierEnabled bool
	ClassifyEveryN    int // classify every Nth capture; 0 or 1 means every tick
}

func DefaultConfig() Config {
	return Config{
		IntervalSeconds:   defaultIntervalSeconds,
		ClassifierEnabled: true,
		ClassifyEveryN:    1,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.IntervalSeconds <= 0 {
		return errFactory.WithData(ErrInvalidInterval, c.IntervalSeconds)
	}
	if c.ClassifyEveryN < 0 {
		return errFactory.WithMessage(ErrInvalidConfig, "classify_every_n must not be negative")
	}

	return nil
}
