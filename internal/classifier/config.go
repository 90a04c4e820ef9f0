package classifier

import "github.com/arpitjain2323/buddyguard/internal/errors"

const (
	ProviderRemote  = "remote"
	ProviderKeyword = "keyword"

	defaultTimeoutSeconds = 5
	keywordMatchScore     = 0.9
)

type Config struct {
	Enabled        bool
	Provider       string
	Endpoint       string
	APIKey         string
	TimeoutSeconds int
	Keywords       map[string][]string
}

func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		Provider:       ProviderRemote,
		TimeoutSeconds: defaultTimeoutSeconds,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if !c.Enabled {
		return nil
	}

	switch c.Provider {
	case ProviderRemote:
		if c.Endpoint == "" {
			return errFactory.WithMessage(ErrInvalidConfig, "remote provider requires an endpoint")
		}
	case ProviderKeyword:
	default:
		return errFactory.WithData(ErrInvalidProvider, c.Provider)
	}

	if c.TimeoutSeconds <= 0 {
		return errFactory.WithMessage(ErrInvalidConfig, "timeout must be positive")
	}

	return nil
}
