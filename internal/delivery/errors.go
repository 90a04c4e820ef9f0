package delivery

import "github.com/arpitjain2323/buddyguard/internal/errors"

const (
	// Configuration errors
	ErrInvalidConfig   = errors.ErrorCode("delivery_invalid_config")
	ErrInvalidEndpoint = errors.ErrorCode("delivery_invalid_endpoint")

	// Transport errors
	ErrTransient    = errors.ErrorCode("delivery_transient")
	ErrUnauthorized = errors.ErrorCode("delivery_unauthorized")
	ErrRejected     = errors.ErrorCode("delivery_rejected")

	// Queue errors
	ErrQueueClosed = errors.ErrorCode("delivery_queue_closed")

	// Spool errors
	ErrSpoolInit   = errors.ErrorCode("delivery_spool_init_failed")
	ErrSpoolAccess = errors.ErrorCode("delivery_spool_access_failed")
	ErrSpoolClose  = errors.ErrorCode("delivery_spool_close_failed")
)
