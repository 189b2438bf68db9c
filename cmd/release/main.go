// Package main is the entrypoint for the release Lambda function.
//
// release is triggered by S3 uploads to an environment's site bucket. It
// invalidates the environment's CloudFront distribution and reports progress
// by invoking the announce function.
//
// This file handles dependency wiring (Cold Start) and delegates all business
// logic to the internal/release package.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"deploynotify/internal/config"
	"deploynotify/internal/external"
	"deploynotify/internal/queue"
	"deploynotify/internal/release"
	"deploynotify/internal/telemetry"
)

const functionName = "release"

// loadAWSConfig loads the SDK configuration for the configured region. A
// non-empty EndpointURL (LocalStack) overrides every service endpoint.
func loadAWSConfig(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.EndpointURL != "" {
		opts = append(opts, awsconfig.WithBaseEndpoint(cfg.EndpointURL))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

// newWatcher wires the Watcher and its optional collaborators.
func newWatcher(cfg *config.ReleaseConfig, awsCfg aws.Config, logger *slog.Logger) *release.Watcher {
	gateway := external.NewAWSClient(awsCfg, external.AWSClientConfig{Logger: logger})

	w := &release.Watcher{
		Environments: release.Environments(cfg.Distributions),
		Gateway:      gateway,
		Reporter:     release.NewReporter(gateway, cfg.AnnounceFunction),
		Metrics:      telemetry.NopMetrics{},
		Log:          logger,
	}

	if cfg.Observability.EnableMetrics {
		w.Metrics = telemetry.NewCloudWatchMetrics(
			cloudwatch.NewFromConfig(awsCfg),
			cfg.Observability.MetricNamespace,
			functionName,
			logger,
		)
	}

	if cfg.FailureQueueURL != "" {
		w.Failures = queue.NewFailurePublisher(sqs.NewFromConfig(awsCfg), cfg.FailureQueueURL, logger)
	}

	return w
}

// runLocal handles one event read from r and writes the response to w.
func runLocal(ctx context.Context, w *release.Watcher, r io.Reader, out io.Writer) error {
	payload, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read stdin: %w", err)
	}
	if len(payload) == 0 {
		return fmt.Errorf("no input received on stdin")
	}

	resp, err := w.Handle(ctx, json.RawMessage(payload))
	if err != nil {
		return err
	}
	if resp == nil {
		resp = json.RawMessage("null")
	}
	_, err = fmt.Fprintln(out, string(resp))
	return err
}

func main() {
	bootLogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	bootLogger.Info("release Lambda initializing (cold start)")

	cfg, err := config.LoadReleaseConfig(config.NewSSMProvider(os.Getenv("AWS_REGION")))
	if err != nil {
		bootLogger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})).With("function", functionName, "version", cfg.Build.Version)

	awsCfg, err := loadAWSConfig(context.Background(), cfg.AWS)
	if err != nil {
		logger.Error("Failed to load AWS SDK config", "error", err)
		os.Exit(1)
	}

	watcher := newWatcher(cfg, awsCfg, logger)

	logger.Info("release Lambda initialized",
		"env", cfg.Environment,
		"region", cfg.AWS.Region,
		"environments", len(cfg.Distributions),
		"announce_function", cfg.AnnounceFunction,
		"metrics_enabled", cfg.Observability.EnableMetrics,
		"failure_queue", cfg.FailureQueueURL,
	)

	// Local mode: read one JSON event from stdin instead of starting the
	// Lambda runtime. AWS calls still go to the configured region (or
	// AWS_ENDPOINT_URL).
	// Usage: echo '{"test":true,"bucket":{...}}' | APP_ENV=local go run ./cmd/release
	if cfg.IsLocal() {
		logger.Info("APP_ENV=local: reading event from stdin")
		if err := runLocal(context.Background(), watcher, os.Stdin, os.Stdout); err != nil {
			logger.Error("Handler execution failed", "error", err)
			os.Exit(1)
		}
		return
	}

	lambda.Start(watcher.Handle)
}
