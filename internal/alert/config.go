package alert

import (
	"github.com/arpitjain2323/buddyguard/internal/classifier"
	"github.com/arpitjain2323/buddyguard/internal/errors"
)

const (
	ErrInvalidConfig   = errors.ErrorCode("alert_invalid_config")
	ErrInvalidCooldown = errors.ErrorCode("alert_invalid_cooldown")

	defaultCooldownSeconds = 300
	defaultThreshold       = 0.7
)

type Config struct {
	DeviceID          string
	CooldownSeconds   int
	DefaultThreshold  float64
	Thresholds        map[classifier.Category]float64
	RetainAttachments bool
}

func DefaultConfig() Config {
	return Config{
		CooldownSeconds:  defaultCooldownSeconds,
		DefaultThreshold: defaultThreshold,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.CooldownSeconds < 0 {
		return errFactory.WithData(ErrInvalidCooldown, c.CooldownSeconds)
	}
	if c.DefaultThreshold < 0 || c.DefaultThreshold > 1 {
		return errFactory.WithMessage(ErrInvalidConfig, "default threshold must be within [0, 1]")
	}
	for category, threshold := range c.Thresholds {
		if threshold < 0 || threshold > 1 {
			return errFactory.WithData(ErrInvalidConfig, category)
		}
	}

	return nil
}
