package capture_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arpitjain2323/buddyguard/internal/capture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureWithoutFrame(t *testing.T) {
	source, err := capture.New(capture.Config{FrameEnabled: false})
	require.NoError(t, err)

	before := time.Now()
	snapshot, err := source.Capture(context.Background())
	require.NoError(t, err)

	assert.Nil(t, snapshot.Frame)
	assert.False(t, snapshot.Timestamp.Before(before))
	assert.GreaterOrEqual(t, snapshot.MemPercent, 0.0)
	assert.LessOrEqual(t, snapshot.MemPercent, 100.0)
}

func TestNewCreatesScreenshotDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")

	_, err := capture.New(capture.Config{FrameEnabled: true, ScreenshotDir: dir})
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestRetentionRequiresFrameCapture(t *testing.T) {
	_, err := capture.New(capture.Config{FrameEnabled: false, ScreenshotDir: "/tmp/frames"})
	assert.Error(t, err)
}
