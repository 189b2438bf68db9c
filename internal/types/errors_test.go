package types

import (
	"errors"
	"fmt"
	"testing"
)

// TestAppErrorImplementsError verifies that *AppError satisfies the error interface.
func TestAppErrorImplementsError(t *testing.T) {
	var _ error = (*AppError)(nil)
}

func TestAppErrorErrorFormat(t *testing.T) {
	appErr := &AppError{
		Code:    ErrCodeUpstreamCDN,
		Message: "CloudFront CreateInvalidation failed",
	}

	expected := "upstream_cdn_unavailable: CloudFront CreateInvalidation failed"
	if appErr.Error() != expected {
		t.Errorf("Error() = %q, want %q", appErr.Error(), expected)
	}
}

func TestAppErrorErrorFormatWithCause(t *testing.T) {
	appErr := NewAppError(ErrCodeUpstreamChat, "chat.postMessage failed", errors.New("dial tcp: timeout"))

	expected := "upstream_chat_unavailable: chat.postMessage failed: dial tcp: timeout"
	if appErr.Error() != expected {
		t.Errorf("Error() = %q, want %q", appErr.Error(), expected)
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	underlying := errors.New("connection reset")
	appErr := NewAppError(ErrCodeUpstreamFunction, "invoke failed", underlying)

	if !errors.Is(appErr, underlying) {
		t.Errorf("errors.Is should find the underlying error")
	}
	if appErr.Unwrap() != underlying {
		t.Errorf("Unwrap() = %v, want %v", appErr.Unwrap(), underlying)
	}
}

func TestAppErrorErrorsAs(t *testing.T) {
	appErr := NewAppError(ErrCodeUpstreamChatResponse, "body is not JSON", nil)
	wrapped := fmt.Errorf("announce: %w", appErr)

	var target *AppError
	if !errors.As(wrapped, &target) {
		t.Fatal("errors.As should extract AppError from chain")
	}
	if target.Code != ErrCodeUpstreamChatResponse {
		t.Errorf("Code = %q, want %q", target.Code, ErrCodeUpstreamChatResponse)
	}
}

func TestAppErrorWithDetails(t *testing.T) {
	original := NewAppErrorWithDetails(ErrCodeUpstreamCDN, "failed", nil, map[string]any{"distribution_id": "D123"})
	extended := original.WithDetails(map[string]any{"caller_reference": "req-1"})

	if len(original.Details) != 1 {
		t.Errorf("original details mutated: %v", original.Details)
	}
	if extended.Details["distribution_id"] != "D123" || extended.Details["caller_reference"] != "req-1" {
		t.Errorf("unexpected merged details: %v", extended.Details)
	}
}

func TestErrorCodeIsUpstream(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want bool
	}{
		{ErrCodeUpstreamChat, true},
		{ErrCodeUpstreamChatResponse, true},
		{ErrCodeUpstreamCDN, true},
		{ErrCodeUpstreamFunction, true},
		{ErrCodeUpstreamQueue, true},
		{ErrCodeInternalUnexpected, false},
	}
	for _, tt := range tests {
		if got := tt.code.IsUpstream(); got != tt.want {
			t.Errorf("%s.IsUpstream() = %v, want %v", tt.code, got, tt.want)
		}
	}
}
