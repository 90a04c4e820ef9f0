package classifier

import "github.com/arpitjain2323/buddyguard/internal/errors"

const (
	// Configuration errors
	ErrInvalidConfig   = errors.ErrorCode("classifier_invalid_config")
	ErrInvalidProvider = errors.ErrorCode("classifier_invalid_provider")

	// Service errors
	ErrUnavailable = errors.ErrorCode("classifier_unavailable")
	ErrTimeout     = errors.ErrorCode("classifier_timeout")
	ErrBadResponse = errors.ErrorCode("classifier_bad_response")
)
