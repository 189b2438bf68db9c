package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"deploynotify/internal/types"
)

// postMessageMethod is the Slack Web API method used to send messages.
const postMessageMethod = "chat.postMessage"

// ChatPoster sends a message to a chat channel and returns the decoded API
// response.
type ChatPoster interface {
	PostMessage(ctx context.Context, msg types.ChatMessage) (map[string]any, error)
}

// SlackClientConfig holds the configuration for creating a SlackClient.
type SlackClientConfig struct {
	// APIURL is the Web API base, e.g. https://slack.com/api (no trailing slash required).
	APIURL    string
	Token     types.SecretString
	UserAgent string
	Timeout   time.Duration
	Logger    *slog.Logger
}

// SlackClient posts messages through the Slack Web API with a bot token.
type SlackClient struct {
	base   *BaseClient
	apiURL string
	token  types.SecretString
	logger *slog.Logger
}

// NewSlackClient creates a SlackClient with its own HTTP client and breaker.
func NewSlackClient(cfg SlackClientConfig) *SlackClient {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	return NewSlackClientWithBase(
		NewBaseClient(httpClient, "slack", cfg.UserAgent, types.ErrCodeUpstreamChat),
		cfg,
	)
}

// NewSlackClientWithBase creates a SlackClient around an existing BaseClient.
func NewSlackClientWithBase(base *BaseClient, cfg SlackClientConfig) *SlackClient {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SlackClient{
		base:   base,
		apiURL: strings.TrimRight(cfg.APIURL, "/"),
		token:  cfg.Token,
		logger: logger,
	}
}

// PostMessage calls chat.postMessage and decodes the response body.
//
// The HTTP status and Slack's own "ok" field are not interpreted: whatever
// JSON object Slack sends back is returned. A transport failure is returned as
// ErrCodeUpstreamChat; a body that is not a JSON object as
// ErrCodeUpstreamChatResponse.
func (c *SlackClient) PostMessage(ctx context.Context, msg types.ChatMessage) (map[string]any, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode chat message", err)
	}

	endpoint := fmt.Sprintf("%s/%s", c.apiURL, postMessageMethod)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build chat request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token.Unmask())

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamChat, "failed to read chat response body", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamChatResponse,
			"chat response is not a JSON object",
			err,
			map[string]any{"status": resp.StatusCode, "body_bytes": len(raw)},
		)
	}

	c.logger.DebugContext(ctx, "chat message posted",
		"channel", msg.Channel,
		"status", resp.StatusCode,
		"ok", decoded["ok"],
	)

	return decoded, nil
}

// Compile-time assertion that SlackClient satisfies ChatPoster.
var _ ChatPoster = (*SlackClient)(nil)
