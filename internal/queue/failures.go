// Package queue publishes events the release function failed to handle to an
// SQS queue, so they can be replayed once the cause is fixed.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"deploynotify/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Message attribute names set on every failure message.
const (
	AttrErrorCode = "error_code"
	AttrRequestID = "request_id"
)

// FailurePublisher sends the raw payload of a failed invocation to the
// failure queue. The message body is the event exactly as received, so a
// replay is a plain re-invoke with the body.
type FailurePublisher struct {
	client   SQSSender
	queueURL string
	logger   *slog.Logger
}

// NewFailurePublisher creates a FailurePublisher for queueURL.
func NewFailurePublisher(client SQSSender, queueURL string, logger *slog.Logger) *FailurePublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &FailurePublisher{
		client:   client,
		queueURL: queueURL,
		logger:   logger,
	}
}

// PublishFailure enqueues event, tagged with the error code of cause and the
// request id from ctx.
func (p *FailurePublisher) PublishFailure(ctx context.Context, event json.RawMessage, cause error) error {
	code := types.ErrCodeInternalUnexpected
	var appErr *types.AppError
	if errors.As(cause, &appErr) {
		code = appErr.Code
	}

	attrs := map[string]sqsTypes.MessageAttributeValue{
		AttrErrorCode: {
			DataType:    aws.String("String"),
			StringValue: aws.String(string(code)),
		},
	}
	requestID := types.GetRequestID(ctx)
	if requestID != "" {
		attrs[AttrRequestID] = sqsTypes.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(requestID),
		}
	}

	out, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(p.queueURL),
		MessageBody:       aws.String(string(event)),
		MessageAttributes: attrs,
	})
	if err != nil {
		return types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamQueue,
			"failed to publish failed event",
			err,
			map[string]any{"queue_url": p.queueURL},
		)
	}

	p.logger.InfoContext(ctx, "failed event published for replay",
		"queue_url", p.queueURL,
		"message_id", aws.ToString(out.MessageId),
		"error_code", string(code),
		"request_id", requestID,
	)

	return nil
}
