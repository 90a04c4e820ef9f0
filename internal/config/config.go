package config

import (
	"os"
	"strings"

	"github.com/arpitjain2323/buddyguard/internal/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel = "info"

	defaultCaptureInterval   = 45
	defaultClassifierTimeout = 5
	defaultThreshold         = 0.7
	defaultCooldown          = 300
	defaultBucketSeconds     = 60
	defaultQueueSize         = 256
	defaultEndpoint          = "http://localhost:8000"
)

type Config struct {
	DeviceID string `mapstructure:"device_id"`
	LogLevel string `mapstructure:"log_level"`
	Debug    bool   `mapstructure:"debug"`
	Verbose  bool   `mapstructure:"verbose"`

	Capture    CaptureConfig    `mapstructure:"capture"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Alerts     AlertsConfig     `mapstructure:"alerts"`
	Usage      UsageConfig      `mapstructure:"usage"`
	Delivery   DeliveryConfig   `mapstructure:"delivery"`
}

type CaptureConfig struct {
	IntervalSeconds int    `mapstructure:"interval_seconds"`
	FrameEnabled    bool   `mapstructure:"frame_enabled"`
	ScreenshotDir   string `mapstructure:"screenshot_dir"`
	TrackBrowserURL bool   `mapstructure:"track_browser_url"`
}

type ClassifierConfig struct {
	Enabled          bool                `mapstructure:"enabled"`
	Provider         string              `mapstructure:"provider"`
	Endpoint         string              `mapstructure:"endpoint"`
	APIKey           string              `mapstructure:"api_key"`
	TimeoutSeconds   int                 `mapstructure:"timeout_seconds"`
	RunEveryN        int                 `mapstructure:"run_every_n"`
	DefaultThreshold float64             `mapstructure:"default_threshold"`
	Thresholds       map[string]float64  `mapstructure:"thresholds"`
	Keywords         map[string][]string `mapstructure:"keywords"`
}

type AlertsConfig struct {
	CooldownSeconds   int  `mapstructure:"cooldown_seconds"`
	RetainAttachments bool `mapstructure:"retain_attachments"`
}

type UsageConfig struct {
	BucketSeconds int `mapstructure:"bucket_seconds"`
}

type DeliveryConfig struct {
	Endpoint          string `mapstructure:"endpoint"`
	APIKey            string `mapstructure:"api_key"`
	QueueSize         int    `mapstructure:"queue_size"`
	UploadAttachments bool   `mapstructure:"upload_attachments"`
	SpoolPath         string `mapstructure:"spool_path"`
}

func Load() (*Config, error) {
	errFactory := errors.New()

	flags := pflag.NewFlagSet("buddyguard", pflag.ContinueOnError)
	flags.ParseErrorsWhitelist.UnknownFlags = true
	debugFlag := flags.Bool("debug", false, "Enable debugging mode")
	verboseFlag := flags.Bool("verbose", false, "Enable verbose logging")
	logLevelFlag := flags.String("log-level", "", "Log level (debug, info, warning, error)")
	configFlag := flags.String("config", "", "Path to configuration file")
	flags.Int("interval", 0, "Seconds between capture ticks")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BUDDYGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath := *configFlag
	if configPath == "" {
		configPath = os.Getenv("BUDDYGUARD_CONFIG")
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("buddyguard")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// An explicit path that does not exist is also non-fatal; only a
			// file that exists but cannot be parsed is.
			if _, statErr := os.Stat(configPath); configPath == "" || statErr == nil {
				return nil, errFactory.WithMessage(errors.ErrReadConfig, "Failed to read config file").WithData(err.Error())
			}
		}
	}

	// Command line flags override file values
	if flags.Changed("debug") {
		v.Set("debug", *debugFlag)
	}
	if flags.Changed("verbose") {
		v.Set("verbose", *verboseFlag)
	}
	if flags.Changed("log-level") {
		v.Set("log_level", *logLevelFlag)
	}
	if flags.Changed("interval") {
		interval, _ := flags.GetInt("interval")
		v.Set("capture.interval_seconds", interval)
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	// The delivery credential may come from the environment instead of disk
	if key := os.Getenv("BUDDYGUARD_API_KEY"); key != "" {
		config.Delivery.APIKey = key
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	applyLogLevel(config)

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("device_id", hostnameOrUnknown())
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("capture.interval_seconds", defaultCaptureInterval)
	v.SetDefault("capture.frame_enabled", true)
	v.SetDefault("capture.track_browser_url", true)
	v.SetDefault("classifier.enabled", true)
	v.SetDefault("classifier.provider", "remote")
	v.SetDefault("classifier.timeout_seconds", defaultClassifierTimeout)
	v.SetDefault("classifier.run_every_n", 1)
	v.SetDefault("classifier.default_threshold", defaultThreshold)
	v.SetDefault("alerts.cooldown_seconds", defaultCooldown)
	v.SetDefault("alerts.retain_attachments", false)
	v.SetDefault("usage.bucket_seconds", defaultBucketSeconds)
	v.SetDefault("delivery.endpoint", defaultEndpoint)
	v.SetDefault("delivery.queue_size", defaultQueueSize)
	v.SetDefault("delivery.upload_attachments", false)
}

func (c *Config) Validate() error {
	errFactory := errors.New()

	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}
	if c.Capture.IntervalSeconds <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Capture.IntervalSeconds)
	}
	if c.Usage.BucketSeconds <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Usage.BucketSeconds)
	}
	if c.Alerts.CooldownSeconds < 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Alerts.CooldownSeconds)
	}
	if c.Delivery.QueueSize <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "delivery queue size must be positive")
	}
	if c.Classifier.DefaultThreshold < 0 || c.Classifier.DefaultThreshold > 1 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "classifier threshold must be within [0, 1]")
	}
	if c.Classifier.RunEveryN < 1 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "classifier run_every_n must be at least 1")
	}
	switch c.Classifier.Provider {
	case "remote", "keyword":
	default:
		return errFactory.WithData(errors.ErrInvalidConfig, c.Classifier.Provider)
	}

	return nil
}

func applyLogLevel(c *Config) {
	switch {
	case c.Debug:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case c.Verbose:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	default:
		switch LogLevel(c.LogLevel) {
		case LogLevelDebug:
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		case LogLevelInfo:
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		case LogLevelWarning:
			zerolog.SetGlobalLevel(zerolog.WarnLevel)
		case LogLevelError:
			zerolog.SetGlobalLevel(zerolog.ErrorLevel)
		}
	}
}

func hostnameOrUnknown() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "unknown"
	}
	return host
}
