// Package main is the entrypoint for the announce Lambda function.
//
// announce receives {level, message} and posts the message to the Slack
// channel configured for the level. It is invoked by the release function and
// may be triggered directly.
//
// This file handles dependency wiring (Cold Start) and delegates all business
// logic to the internal/announce package.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"deploynotify/internal/announce"
	"deploynotify/internal/config"
	"deploynotify/internal/external"
	"deploynotify/internal/types"
)

func newLogger(cfg config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})).With("function", "announce", "version", cfg.Build.Version)
}

func newNotifier(cfg *config.AnnounceConfig, logger *slog.Logger) *announce.Notifier {
	slack := external.NewSlackClient(external.SlackClientConfig{
		APIURL:    cfg.Slack.APIURL,
		Token:     cfg.Slack.Token,
		UserAgent: cfg.Slack.UserAgent,
		Timeout:   cfg.Slack.Timeout,
		Logger:    logger,
	})
	return announce.NewNotifier(
		slack,
		announce.NewChannelMap(cfg.Slack.Channels),
		cfg.Slack.IconEmoji,
		logger,
	)
}

// runLocal decodes one NotificationEvent from r, handles it and writes the
// indented response to w.
func runLocal(ctx context.Context, n *announce.Notifier, r io.Reader, w io.Writer) error {
	payload, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read stdin: %w", err)
	}
	if len(payload) == 0 {
		return fmt.Errorf("no input received on stdin")
	}

	var evt types.NotificationEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return fmt.Errorf("failed to parse stdin as notification event: %w", err)
	}

	resp, err := n.Handle(ctx, evt)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func main() {
	bootLogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	bootLogger.Info("announce Lambda initializing (cold start)")

	cfg, err := config.LoadAnnounceConfig(config.NewSSMProvider(os.Getenv("AWS_REGION")))
	if err != nil {
		bootLogger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Config)
	notifier := newNotifier(cfg, logger)

	logger.Info("announce Lambda initialized",
		"env", cfg.Environment,
		"slack_api_url", cfg.Slack.APIURL,
		"error_channel", cfg.Slack.Channels.Error,
		"info_channel", cfg.Slack.Channels.Info,
		"debug_channel", cfg.Slack.Channels.Debug,
	)

	// Local mode: read one JSON event from stdin instead of starting the
	// Lambda runtime.
	// Usage: echo '{"level":"info","message":"hi"}' | APP_ENV=local go run ./cmd/announce
	if cfg.IsLocal() {
		logger.Info("APP_ENV=local: reading event from stdin")
		if err := runLocal(context.Background(), notifier, os.Stdin, os.Stdout); err != nil {
			logger.Error("Handler execution failed", "error", err)
			os.Exit(1)
		}
		return
	}

	lambda.Start(notifier.Handle)
}
