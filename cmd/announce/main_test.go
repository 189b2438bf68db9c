package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deploynotify/internal/config"
	"deploynotify/internal/types"
)

func testAnnounceConfig(apiURL string) *config.AnnounceConfig {
	return &config.AnnounceConfig{
		Config: config.Config{Environment: "local", LogLevel: "info"},
		Slack: config.SlackConfig{
			Token:     "xoxb-test",
			APIURL:    apiURL,
			IconEmoji: ":female-scientist:",
			UserAgent: "deploynotify-announce/test",
			Timeout:   2 * time.Second,
			Channels:  config.ChannelConfig{Error: "errors", Info: "activity", Debug: "bots"},
		},
	}
}

func TestRunLocal_PostsAndPrintsResponse(t *testing.T) {
	var posted types.ChatMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer xoxb-test", r.Header.Get("Authorization"))
		assert.Equal(t, "deploynotify-announce/test", r.Header.Get("User-Agent"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	n := newNotifier(testAnnounceConfig(server.URL), logger)

	var out bytes.Buffer
	err := runLocal(context.Background(), n, strings.NewReader(`{"level":"error","message":"boom"}`), &out)
	require.NoError(t, err)

	assert.Equal(t, "errors", posted.Channel)
	assert.Equal(t, "boom", posted.Text)
	assert.JSONEq(t, `{"ok":true}`, out.String())
}

func TestRunLocal_InputErrors(t *testing.T) {
	n := newNotifier(testAnnounceConfig("http://127.0.0.1:0"), slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := runLocal(context.Background(), n, strings.NewReader(""), io.Discard)
	assert.ErrorContains(t, err, "no input")

	err = runLocal(context.Background(), n, strings.NewReader("{not json"), io.Discard)
	assert.ErrorContains(t, err, "failed to parse stdin")
}
