package queue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deploynotify/internal/types"
)

// mockSQSSender captures SendMessage calls for test assertions.
type mockSQSSender struct {
	calls []*sqs.SendMessageInput
	err   error
}

func (m *mockSQSSender) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	m.calls = append(m.calls, params)
	if m.err != nil {
		return nil, m.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-1")}, nil
}

const testQueueURL = "https://sqs.us-east-2.amazonaws.com/123456789/release-failures"

func newTestPublisher(mock *mockSQSSender) *FailurePublisher {
	return NewFailurePublisher(mock, testQueueURL, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPublishFailure_SendsRawEvent(t *testing.T) {
	mock := &mockSQSSender{}
	pub := newTestPublisher(mock)

	event := json.RawMessage(`{"test":true,"bucket":{"name":"prod-site","arn":"arn:aws:s3:::prod-site"}}`)
	cause := types.NewAppError(types.ErrCodeUpstreamCDN, "CloudFront CreateInvalidation failed", errors.New("boom"))
	ctx := types.WithRequestID(context.Background(), "req-9")

	require.NoError(t, pub.PublishFailure(ctx, event, cause))
	require.Len(t, mock.calls, 1)

	call := mock.calls[0]
	assert.Equal(t, testQueueURL, aws.ToString(call.QueueUrl))
	assert.Equal(t, string(event), aws.ToString(call.MessageBody))
	assert.Equal(t, string(types.ErrCodeUpstreamCDN), aws.ToString(call.MessageAttributes[AttrErrorCode].StringValue))
	assert.Equal(t, "req-9", aws.ToString(call.MessageAttributes[AttrRequestID].StringValue))
}

func TestPublishFailure_PlainErrorUsesInternalCode(t *testing.T) {
	mock := &mockSQSSender{}
	pub := newTestPublisher(mock)

	require.NoError(t, pub.PublishFailure(context.Background(), json.RawMessage(`{}`), errors.New("plain")))
	require.Len(t, mock.calls, 1)

	attrs := mock.calls[0].MessageAttributes
	assert.Equal(t, string(types.ErrCodeInternalUnexpected), aws.ToString(attrs[AttrErrorCode].StringValue))
	_, hasRequestID := attrs[AttrRequestID]
	assert.False(t, hasRequestID)
}

func TestPublishFailure_SQSError(t *testing.T) {
	mock := &mockSQSSender{err: errors.New("access denied")}
	pub := newTestPublisher(mock)

	err := pub.PublishFailure(context.Background(), json.RawMessage(`{}`), errors.New("x"))
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeUpstreamQueue, appErr.Code)
	assert.Equal(t, testQueueURL, appErr.Details["queue_url"])
}
