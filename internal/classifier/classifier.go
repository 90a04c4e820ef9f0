package classifier

import (
	"context"

	"github.com/arpitjain2323/buddyguard/internal/capture"
	"github.com/arpitjain2323/buddyguard/internal/errors"
	"github.com/arpitjain2323/buddyguard/internal/logger"
)

// No-op implementation used when classification is disabled
type noopClassifier struct{}

func New(cfg Config) (Classifier, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		logger.Debug().Msg("Content classification disabled, using no-op classifier")
		return &noopClassifier{}, nil
	}

	switch cfg.Provider {
	case ProviderKeyword:
		return newKeywordClassifier(cfg), nil
	default:
		return newRemoteClassifier(cfg), nil
	}
}

func (*noopClassifier) Classify(_ context.Context, snapshot *capture.Snapshot) (Result, error) {
	return Result{SnapshotTimestamp: snapshot.Timestamp}, nil
}
