// Package external is the boundary between the two functions and the remote
// capabilities they call: the Slack Web API over HTTPS, and CloudFront and
// Lambda through the AWS SDK. Provider errors are translated into
// types.AppError here so callers never inspect vendor error types.
package external

import (
	"errors"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"deploynotify/internal/types"
)

// requestIDHeader carries the invocation's request id on outbound HTTP calls.
const requestIDHeader = "X-Request-Id"

// BaseClient wraps an *http.Client and a circuit breaker. Requests are sent
// exactly once. The breaker counts transport failures only, so an upstream
// that answers with any status is always reached.
type BaseClient struct {
	client      *http.Client
	breaker     *gobreaker.CircuitBreaker[*http.Response]
	userAgent   string
	failureCode types.ErrorCode
}

// BreakerSettings returns the breaker configuration used by NewBaseClient.
func BreakerSettings(name string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	}
}

// NewBaseClient creates a BaseClient. failureCode is the ErrorCode attached to
// transport failures (e.g. ErrCodeUpstreamChat for the Slack client).
func NewBaseClient(httpClient *http.Client, breakerName, userAgent string, failureCode types.ErrorCode) *BaseClient {
	return NewBaseClientWithBreaker(
		httpClient,
		gobreaker.NewCircuitBreaker[*http.Response](BreakerSettings(breakerName)),
		userAgent,
		failureCode,
	)
}

// NewBaseClientWithBreaker creates a BaseClient with a caller-provided breaker.
func NewBaseClientWithBreaker(
	httpClient *http.Client,
	breaker *gobreaker.CircuitBreaker[*http.Response],
	userAgent string,
	failureCode types.ErrorCode,
) *BaseClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &BaseClient{
		client:      httpClient,
		breaker:     breaker,
		userAgent:   userAgent,
		failureCode: failureCode,
	}
}

// Do sends the request once through the circuit breaker.
//
// Any HTTP response, whatever its status, is returned to the caller, who owns
// the body. Transport errors and an open breaker are returned as
// *types.AppError carrying the client's failure code.
func (c *BaseClient) Do(req *http.Request) (*http.Response, error) {
	if id := types.GetRequestID(req.Context()); id != "" {
		req.Header.Set(requestIDHeader, id)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		return c.client.Do(req)
	})
	if err != nil {
		return nil, c.mapError(err)
	}
	return resp, nil
}

// State exposes the breaker state for logging.
func (c *BaseClient) State() gobreaker.State {
	return c.breaker.State()
}

func (c *BaseClient) mapError(err error) *types.AppError {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return types.NewAppError(
			c.failureCode,
			"circuit breaker is open; upstream service unavailable",
			err,
		)
	}
	return types.NewAppError(c.failureCode, "upstream request failed", err)
}
