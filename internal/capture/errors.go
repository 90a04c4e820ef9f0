package capture

import "github.com/arpitjain2323/buddyguard/internal/errors"

const (
	// Frame and foreground-context errors
	ErrCaptureFailed  = errors.ErrorCode("capture_failed")
	ErrCaptureDenied  = errors.ErrorCode("capture_denied")
	ErrCaptureTimeout = errors.ErrorCode("capture_timeout")

	// Resource sampling errors
	ErrSampleFailed = errors.ErrorCode("capture_sample_failed")

	// Configuration errors
	ErrInvalidConfig = errors.ErrorCode("capture_invalid_config")
)
