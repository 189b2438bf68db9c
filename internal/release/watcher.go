package release

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"deploynotify/internal/external"
	"deploynotify/internal/types"
)

// MetricRecorder counts watcher outcomes. Implementations must not block the
// invocation on failure.
type MetricRecorder interface {
	RecordInvalidation(ctx context.Context, env string)
	RecordUnmatched(ctx context.Context)
	RecordHandlerError(ctx context.Context)
}

// FailureSink stores events that could not be handled.
type FailureSink interface {
	PublishFailure(ctx context.Context, event json.RawMessage, cause error) error
}

// Outcome names how an event was resolved.
type Outcome string

const (
	// OutcomeDeployed: environment matched and its distribution invalidated.
	OutcomeDeployed Outcome = "deployed"
	// OutcomeTested: environment matched, invalidation skipped for a test event.
	OutcomeTested Outcome = "tested"
	// OutcomeUnmatched: no bucket, or no environment for the bucket.
	OutcomeUnmatched Outcome = "unmatched"
)

// Result describes a successfully processed event.
type Result struct {
	Outcome        Outcome
	Environment    types.Environment
	Bucket         types.Bucket
	InvalidationID string
	// Response is the announce function's reply to the final report; nil
	// for OutcomeUnmatched.
	Response json.RawMessage
}

// Watcher is the release function handler. Metrics and Failures are
// optional.
type Watcher struct {
	Environments Environments
	Gateway      external.AWSGateway
	Reporter     *Reporter
	Metrics      MetricRecorder
	Failures     FailureSink
	Log          *slog.Logger
}

// Handle is the Lambda entrypoint. It returns the announce response of the
// final report, or nil when the event matched no environment. On failure an
// error report is sent and the original error is returned.
func (w *Watcher) Handle(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	ctx = types.WithRequestID(ctx, types.ResolveRequestID(ctx))
	evt := ParseUploadEvent(payload)

	res, err := w.Process(ctx, evt)
	if err != nil {
		w.handleFailure(ctx, evt, err)
		return nil, err
	}

	w.logger().InfoContext(ctx, "event handled",
		"request_id", types.GetRequestID(ctx),
		"outcome", string(res.Outcome),
		"env", res.Environment.Name,
		"distribution_id", res.Environment.DistributionID,
	)
	return res.Response, nil
}

// Process runs the deploy flow for evt: debug report, invalidation (skipped
// for test events), info report. ctx should carry a request id; it is used as
// the CloudFront caller reference.
func (w *Watcher) Process(ctx context.Context, evt UploadEvent) (Result, error) {
	bucket, hasBucket := ExtractBucket(evt)

	var env types.Environment
	found := false
	if hasBucket {
		env, found = w.Environments.Find(bucket)
	}

	if !found {
		w.logger().InfoContext(ctx, "no environment for event",
			"request_id", types.GetRequestID(ctx),
			"kind", string(evt.Kind),
			"bucket_arn", bucket.ARN,
		)
		if w.Metrics != nil {
			w.Metrics.RecordUnmatched(ctx)
		}
		msg := "Could not find bucket corresponding to event\n```" + indentJSON(evt.Raw) + "```"
		if _, err := w.Reporter.Report(ctx, types.LevelDebug, msg); err != nil {
			return Result{}, err
		}
		return Result{Outcome: OutcomeUnmatched, Bucket: bucket}, nil
	}

	res := Result{Outcome: OutcomeTested, Environment: env, Bucket: bucket}

	msg := fmt.Sprintf("Invalidating existing `distributionId=%s`", env.DistributionID)
	if _, err := w.Reporter.Report(ctx, types.LevelDebug, msg); err != nil {
		return Result{}, err
	}

	if !evt.Test {
		id, err := w.Gateway.Invalidate(ctx, env.DistributionID, types.GetRequestID(ctx))
		if err != nil {
			return Result{}, err
		}
		res.Outcome = OutcomeDeployed
		res.InvalidationID = id
		if w.Metrics != nil {
			w.Metrics.RecordInvalidation(ctx, env.Name)
		}
	}

	resp, err := w.Reporter.Report(ctx, types.LevelInfo, deployedMessage(env, bucket, hasBucket))
	if err != nil {
		return Result{}, err
	}
	res.Response = resp
	return res, nil
}

// handleFailure reports, counts and enqueues a failed event. Every step is
// best-effort; failures are logged.
func (w *Watcher) handleFailure(ctx context.Context, evt UploadEvent, cause error) {
	log := w.logger()
	log.ErrorContext(ctx, "release handler failed",
		"request_id", types.GetRequestID(ctx),
		"kind", string(evt.Kind),
		"error", cause,
	)

	if w.Metrics != nil {
		w.Metrics.RecordHandlerError(ctx)
	}

	msg := "Error handling event\n```" + failureDocument(cause, evt.Raw) + "```"
	if _, err := w.Reporter.Report(ctx, types.LevelError, msg); err != nil {
		log.ErrorContext(ctx, "failed to report handler error",
			"request_id", types.GetRequestID(ctx),
			"error", err,
		)
	}

	if w.Failures != nil {
		if err := w.Failures.PublishFailure(ctx, evt.Raw, cause); err != nil {
			log.ErrorContext(ctx, "failed to enqueue failed event",
				"request_id", types.GetRequestID(ctx),
				"error", err,
			)
		}
	}
}

func (w *Watcher) logger() *slog.Logger {
	if w.Log == nil {
		return slog.Default()
	}
	return w.Log
}

func deployedMessage(env types.Environment, bucket types.Bucket, hasBucket bool) string {
	msg := fmt.Sprintf("Deployed `env=%s`", env.Name)
	if hasBucket {
		msg += fmt.Sprintf(" via push to `bucket=%s`", bucket.Name)
	}
	return msg
}

// indentJSON pretty-prints raw with two-space indentation. Invalid JSON is
// returned verbatim.
func indentJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

// failureDocument renders {"error": ..., "event": ...} indented. An event
// that is not valid JSON is embedded as a string.
func failureDocument(cause error, raw json.RawMessage) string {
	doc := struct {
		Error string `json:"error"`
		Event any    `json:"event"`
	}{Error: cause.Error()}

	if json.Valid(raw) {
		doc.Event = raw
	} else {
		doc.Event = string(raw)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Sprintf("error: %s\nevent: %s", cause.Error(), string(raw))
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}
