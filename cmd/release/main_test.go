package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deploynotify/internal/config"
	"deploynotify/internal/queue"
	"deploynotify/internal/release"
	"deploynotify/internal/telemetry"
	"deploynotify/internal/types"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testReleaseConfig() *config.ReleaseConfig {
	return &config.ReleaseConfig{
		Config: config.Config{Environment: "local", LogLevel: "info", AWS: config.AWSConfig{Region: "us-east-2"}},
		Distributions: config.Distributions{
			{Name: "prod", Bucket: "arn:aws:s3:::prod-site", DistributionID: "D123"},
		},
		AnnounceFunction: "announce",
		Observability:    config.ObservabilityConfig{MetricNamespace: "DeployNotify", EnableMetrics: true},
	}
}

func TestNewWatcher_Wiring(t *testing.T) {
	cfg := testReleaseConfig()
	w := newWatcher(cfg, aws.Config{Region: "us-east-2"}, discard())

	require.Len(t, w.Environments, 1)
	assert.Equal(t, "D123", w.Environments[0].DistributionID)
	assert.NotNil(t, w.Gateway)
	assert.NotNil(t, w.Reporter)
	assert.IsType(t, &telemetry.CloudWatchMetrics{}, w.Metrics)
	assert.Nil(t, w.Failures, "no failure queue configured")
}

func TestNewWatcher_OptionalFeatures(t *testing.T) {
	cfg := testReleaseConfig()
	cfg.Observability.EnableMetrics = false
	cfg.FailureQueueURL = "https://sqs.us-east-2.amazonaws.com/123456789/release-failures"

	w := newWatcher(cfg, aws.Config{Region: "us-east-2"}, discard())

	assert.IsType(t, telemetry.NopMetrics{}, w.Metrics)
	assert.IsType(t, &queue.FailurePublisher{}, w.Failures)
}

// stubGateway answers every invocation with a fixed payload.
type stubGateway struct {
	reports []types.NotificationEvent
}

func (s *stubGateway) Invalidate(context.Context, string, string) (string, error) {
	return "INV", nil
}

func (s *stubGateway) InvokeFunction(_ context.Context, _ string, payload []byte) ([]byte, error) {
	var evt types.NotificationEvent
	_ = json.Unmarshal(payload, &evt)
	s.reports = append(s.reports, evt)
	return []byte(`{"ok":true}`), nil
}

func TestRunLocal(t *testing.T) {
	gw := &stubGateway{}
	w := &release.Watcher{
		Environments: release.Environments{{Name: "prod", Bucket: "arn:aws:s3:::prod-site", DistributionID: "D123"}},
		Gateway:      gw,
		Reporter:     release.NewReporter(gw, "announce"),
		Log:          discard(),
	}

	var out bytes.Buffer
	err := runLocal(context.Background(), w, strings.NewReader(`{"test":true,"bucket":{"name":"prod-site","arn":"arn:aws:s3:::prod-site"}}`), &out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, out.String())
	require.Len(t, gw.reports, 2)

	out.Reset()
	err = runLocal(context.Background(), w, strings.NewReader(`{}`), &out)
	require.NoError(t, err)
	assert.Equal(t, "null\n", out.String())

	err = runLocal(context.Background(), w, strings.NewReader(""), &out)
	assert.ErrorContains(t, err, "no input")
}
