package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arpitjain2323/buddyguard/internal/config"
	"github.com/arpitjain2323/buddyguard/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "buddyguard.toml")
	err := os.WriteFile(configPath, []byte(content), 0o600)
	require.NoError(t, err)

	return configPath
}

func TestLoad(t *testing.T) {
	configPath := writeConfig(t, `
device_id = "laptop-01"
log_level = "debug"

[capture]
interval_seconds = 30
frame_enabled = false
screenshot_dir = "/var/lib/buddyguard/frames"

[classifier]
provider = "keyword"
run_every_n = 2
default_threshold = 0.8

[alerts]
cooldown_seconds = 120
retain_attachments = true

[usage]
bucket_seconds = 300

[delivery]
endpoint = "https://collector.example.com"
api_key = "file-key"
queue_size = 64
spool_path = "/var/lib/buddyguard/spool.db"
`)
	t.Setenv("BUDDYGUARD_CONFIG", configPath)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "laptop-01", cfg.DeviceID, "Expected DeviceID laptop-01")
	assert.Equal(t, "debug", cfg.LogLevel, "Expected LogLevel debug")
	assert.Equal(t, 30, cfg.Capture.IntervalSeconds, "Expected IntervalSeconds 30")
	assert.False(t, cfg.Capture.FrameEnabled, "Expected FrameEnabled false")
	assert.Equal(t, "keyword", cfg.Classifier.Provider, "Expected keyword provider")
	assert.Equal(t, 2, cfg.Classifier.RunEveryN, "Expected RunEveryN 2")
	assert.InDelta(t, 0.8, cfg.Classifier.DefaultThreshold, 0.001)
	assert.Equal(t, 120, cfg.Alerts.CooldownSeconds, "Expected CooldownSeconds 120")
	assert.True(t, cfg.Alerts.RetainAttachments, "Expected RetainAttachments true")
	assert.Equal(t, 300, cfg.Usage.BucketSeconds, "Expected BucketSeconds 300")
	assert.Equal(t, "https://collector.example.com", cfg.Delivery.Endpoint)
	assert.Equal(t, "file-key", cfg.Delivery.APIKey)
	assert.Equal(t, 64, cfg.Delivery.QueueSize, "Expected QueueSize 64")
	assert.Equal(t, "/var/lib/buddyguard/spool.db", cfg.Delivery.SpoolPath)
}

func TestLoadDefaults(t *testing.T) {
	// Ensure no config file is used
	t.Setenv("BUDDYGUARD_CONFIG", "")

	cfg, err := config.Load()
	require.NoError(t, err, "Failed to load config")

	assert.NotEmpty(t, cfg.DeviceID, "Expected DeviceID to default to hostname")
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel, "Expected default LogLevel info")
	assert.Equal(t, 45, cfg.Capture.IntervalSeconds, "Expected default IntervalSeconds 45")
	assert.True(t, cfg.Capture.FrameEnabled, "Expected default FrameEnabled true")
	assert.True(t, cfg.Capture.TrackBrowserURL, "Expected default TrackBrowserURL true")
	assert.True(t, cfg.Classifier.Enabled, "Expected classifier enabled by default")
	assert.Equal(t, "remote", cfg.Classifier.Provider, "Expected default remote provider")
	assert.Equal(t, 1, cfg.Classifier.RunEveryN, "Expected default RunEveryN 1")
	assert.InDelta(t, 0.7, cfg.Classifier.DefaultThreshold, 0.001)
	assert.Equal(t, 300, cfg.Alerts.CooldownSeconds, "Expected default CooldownSeconds 300")
	assert.False(t, cfg.Alerts.RetainAttachments, "Expected default RetainAttachments false")
	assert.Equal(t, 60, cfg.Usage.BucketSeconds, "Expected default BucketSeconds 60")
	assert.Equal(t, "http://localhost:8000", cfg.Delivery.Endpoint)
	assert.Equal(t, 256, cfg.Delivery.QueueSize, "Expected default QueueSize 256")
	assert.False(t, cfg.Delivery.UploadAttachments, "Expected default UploadAttachments false")
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	configPath := writeConfig(t, `
This is not a valid TOML file
`)
	t.Setenv("BUDDYGUARD_CONFIG", configPath)

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to read config file")
}

func TestInvalidLogLevel(t *testing.T) {
	configPath := writeConfig(t, `
log_level = "invalid"
`)
	t.Setenv("BUDDYGUARD_CONFIG", configPath)

	_, err := config.Load()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidLogLevel))
}

func TestInvalidCaptureInterval(t *testing.T) {
	configPath := writeConfig(t, `
[capture]
interval_seconds = 0
`)
	t.Setenv("BUDDYGUARD_CONFIG", configPath)

	_, err := config.Load()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidInterval))
}

func TestInvalidClassifierRunEveryN(t *testing.T) {
	configPath := writeConfig(t, `
[classifier]
run_every_n = 0
`)
	t.Setenv("BUDDYGUARD_CONFIG", configPath)

	_, err := config.Load()
	require.Error(t, err)
}

func TestInvalidClassifierProvider(t *testing.T) {
	configPath := writeConfig(t, `
[classifier]
provider = "oracle"
`)
	t.Setenv("BUDDYGUARD_CONFIG", configPath)

	_, err := config.Load()
	require.Error(t, err)
}

func TestAPIKeyFromEnvironment(t *testing.T) {
	t.Setenv("BUDDYGUARD_CONFIG", "")
	t.Setenv("BUDDYGUARD_API_KEY", "env-key")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Delivery.APIKey, "Environment credential overrides file value")
}

func TestLogLevelFlag(t *testing.T) {
	// Save original args and restore after test
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"cmd", "--log-level", "debug"}

	t.Setenv("BUDDYGUARD_CONFIG", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel, "Expected LogLevel debug from flag")
}

func TestNonexistentExplicitConfigFallsBackToDefaults(t *testing.T) {
	t.Setenv("BUDDYGUARD_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 45, cfg.Capture.IntervalSeconds)
}
