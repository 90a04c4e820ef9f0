package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arpitjain2323/buddyguard/internal/agent"
	"github.com/arpitjain2323/buddyguard/internal/alert"
	"github.com/arpitjain2323/buddyguard/internal/capture"
	"github.com/arpitjain2323/buddyguard/internal/classifier"
	"github.com/arpitjain2323/buddyguard/internal/config"
	"github.com/arpitjain2323/buddyguard/internal/delivery"
	"github.com/arpitjain2323/buddyguard/internal/errors"
	"github.com/arpitjain2323/buddyguard/internal/logger"
	"github.com/arpitjain2323/buddyguard/internal/pid"
	"github.com/arpitjain2323/buddyguard/internal/usage"
)

const shutdownGrace = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Debug, cfg.Verbose, logger.IsService())
	logger.Debug().Str("device_id", cfg.DeviceID).Msg("Config loaded")

	errFactory := errors.New()

	if err := pid.Write(); err != nil {
		logger.FatalWithCode(errFactory.Wrap(errors.ErrInitApp, err)).Msg("failed to write PID file")
	}
	defer pid.Remove()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if err := run(ctx, cfg); err != nil {
		logger.ErrorWithCode(errFactory.Wrap(errors.ErrMainLoop, err)).Msg("error in main loop")
		os.Exit(1)
	}
	logger.Info().Msg("Exiting...")
}

func run(ctx context.Context, cfg *config.Config) error {
	source, err := capture.New(capture.Config{
		FrameEnabled:    cfg.Capture.FrameEnabled,
		ScreenshotDir:   cfg.Capture.ScreenshotDir,
		TrackBrowserURL: cfg.Capture.TrackBrowserURL,
	})
	if err != nil {
		return err
	}

	cls, err := classifier.New(classifier.Config{
		Enabled:        cfg.Classifier.Enabled,
		Provider:       cfg.Classifier.Provider,
		Endpoint:       cfg.Classifier.Endpoint,
		APIKey:         cfg.Classifier.APIKey,
		TimeoutSeconds: cfg.Classifier.TimeoutSeconds,
		Keywords:       cfg.Classifier.Keywords,
	})
	if err != nil {
		return err
	}

	thresholds := make(map[classifier.Category]float64, len(cfg.Classifier.Thresholds))
	for name, threshold := range cfg.Classifier.Thresholds {
		thresholds[classifier.Category(name)] = threshold
	}
	engine, err := alert.NewEngine(alert.Config{
		DeviceID:          cfg.DeviceID,
		CooldownSeconds:   cfg.Alerts.CooldownSeconds,
		DefaultThreshold:  cfg.Classifier.DefaultThreshold,
		Thresholds:        thresholds,
		RetainAttachments: cfg.Alerts.RetainAttachments,
	})
	if err != nil {
		return err
	}

	client, err := delivery.NewClient(delivery.Config{
		Endpoint:          cfg.Delivery.Endpoint,
		APIKey:            cfg.Delivery.APIKey,
		QueueSize:         cfg.Delivery.QueueSize,
		UploadAttachments: cfg.Delivery.UploadAttachments,
		SpoolPath:         cfg.Delivery.SpoolPath,
	})
	if err != nil {
		return err
	}

	aggregator, err := usage.NewAggregator(usage.Config{
		DeviceID:               cfg.DeviceID,
		BucketSeconds:          cfg.Usage.BucketSeconds,
		CaptureIntervalSeconds: cfg.Capture.IntervalSeconds,
	}, client.SubmitUsage)
	if err != nil {
		return err
	}

	scheduler, err := agent.New(agent.Config{
		IntervalSeconds:   cfg.Capture.IntervalSeconds,
		ClassifierEnabled: cfg.Classifier.Enabled,
		ClassifyEveryN:    cfg.Classifier.RunEveryN,
	}, source, cls, engine, aggregator, client)
	if err != nil {
		return err
	}
	scheduler.WithDeliveryStats(client.Stats)

	runErr := scheduler.Run(ctx)

	// Aggregator flushes on loop exit; give delivery a chance to drain
	if err := client.Close(shutdownGrace); err != nil {
		logger.Error().Err(err).Msg("failed to close delivery client")
	}

	return runErr
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}
