package release

import (
	"context"
	"encoding/json"

	"deploynotify/internal/external"
	"deploynotify/internal/types"
)

// Reporter delivers progress messages by invoking the announce function.
type Reporter struct {
	gateway  external.AWSGateway
	function string
}

// NewReporter creates a Reporter that invokes function through gateway.
func NewReporter(gateway external.AWSGateway, function string) *Reporter {
	return &Reporter{gateway: gateway, function: function}
}

// Report sends {level, message} and returns the announce function's response
// payload.
func (r *Reporter) Report(ctx context.Context, level types.Level, message string) (json.RawMessage, error) {
	payload, err := json.Marshal(types.NotificationEvent{Level: level, Message: message})
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode report", err)
	}

	out, err := r.gateway.InvokeFunction(ctx, r.function, payload)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(out), nil
}
