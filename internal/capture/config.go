package capture

import "github.com/arpitjain2323/buddyguard/internal/errors"

const (
	defaultDirPerm        = 0o755
	defaultCommandTimeout = 10 // seconds
)

type Config struct {
	FrameEnabled    bool
	ScreenshotDir   string
	TrackBrowserURL bool
}

func DefaultConfig() Config {
	return Config{
		FrameEnabled:    true,
		TrackBrowserURL: true,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()
	if !c.FrameEnabled && c.ScreenshotDir != "" {
		return errFactory.WithMessage(ErrInvalidConfig, "screenshot retention requires frame capture")
	}
	return nil
}
