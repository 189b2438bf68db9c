// Package telemetry emits the release function's CloudWatch counters.
package telemetry

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"deploynotify/internal/types"
)

// CloudWatchAPI abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchMetrics publishes deploy counters to CloudWatch.
//
// Metrics emitted:
//   - InvalidationIssued: Dims {Function, Environment}
//   - UnmatchedEvent: Dims {Function}
//   - HandlerError: Dims {Function}
//
// Publishing is fire-and-forget: failures are logged and never returned, so a
// CloudWatch outage cannot fail a deploy.
type CloudWatchMetrics struct {
	client    CloudWatchAPI
	namespace string
	function  string
	logger    *slog.Logger
}

// NewCloudWatchMetrics creates a CloudWatchMetrics. An empty namespace falls
// back to types.MetricNamespace.
func NewCloudWatchMetrics(client CloudWatchAPI, namespace, function string, logger *slog.Logger) *CloudWatchMetrics {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudWatchMetrics{
		client:    client,
		namespace: namespace,
		function:  function,
		logger:    logger,
	}
}

// RecordInvalidation counts one CloudFront invalidation for env.
func (m *CloudWatchMetrics) RecordInvalidation(ctx context.Context, env string) {
	m.put(ctx, types.MetricInvalidationIssued, cwtypes.Dimension{
		Name:  aws.String(types.DimEnvironment),
		Value: aws.String(env),
	})
}

// RecordUnmatched counts one event that matched no environment.
func (m *CloudWatchMetrics) RecordUnmatched(ctx context.Context) {
	m.put(ctx, types.MetricUnmatchedEvent)
}

// RecordHandlerError counts one failed invocation.
func (m *CloudWatchMetrics) RecordHandlerError(ctx context.Context) {
	m.put(ctx, types.MetricHandlerError)
}

func (m *CloudWatchMetrics) put(ctx context.Context, name string, extra ...cwtypes.Dimension) {
	dims := make([]cwtypes.Dimension, 0, len(extra)+1)
	if m.function != "" {
		dims = append(dims, cwtypes.Dimension{
			Name:  aws.String(types.DimFunction),
			Value: aws.String(m.function),
		})
	}
	dims = append(dims, extra...)

	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String(name),
				Value:      aws.Float64(1),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: dims,
			},
		},
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.WarnContext(ctx, "failed to publish metric",
			"metric", name,
			"namespace", m.namespace,
			"error", err,
		)
	}
}

// NopMetrics discards every metric. Used when ENABLE_METRICS=false.
type NopMetrics struct{}

func (NopMetrics) RecordInvalidation(context.Context, string) {}
func (NopMetrics) RecordUnmatched(context.Context)            {}
func (NopMetrics) RecordHandlerError(context.Context)         {}
