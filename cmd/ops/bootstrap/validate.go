package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"deploynotify/internal/config"
)

// ValidationResult holds the outcome of a validation check.
type ValidationResult struct {
	Valid bool

	// Message is shown to the operator: what was verified, or why the
	// input was rejected.
	Message string
}

// HTTPClient is the interface used by validators that make outbound HTTP calls.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Validator checks operator input before it is written to SSM.
type Validator struct {
	httpClient  HTTPClient
	slackAPIURL string
	structs     *validator.Validate
}

// NewValidator creates a Validator that probes the Slack Web API at apiURL.
func NewValidator(apiURL string) *Validator {
	return NewValidatorWithDeps(&http.Client{Timeout: 10 * time.Second}, apiURL)
}

// NewValidatorWithDeps creates a Validator with an injected HTTP client.
func NewValidatorWithDeps(httpClient HTTPClient, apiURL string) *Validator {
	return &Validator{
		httpClient:  httpClient,
		slackAPIURL: strings.TrimRight(apiURL, "/"),
		structs:     validator.New(),
	}
}

// validateTimeout bounds each active probe.
const validateTimeout = 15 * time.Second

// s3ARNPrefix starts every bucket ARN; environments are matched on ARN.
const s3ARNPrefix = "arn:aws:s3:::"

// ValidateSlackToken checks the token format, then calls auth.test to confirm
// Slack accepts it.
func (v *Validator) ValidateSlackToken(ctx context.Context, token string) ValidationResult {
	token = strings.TrimSpace(token)
	if !strings.HasPrefix(token, "xoxb-") && !strings.HasPrefix(token, "xoxp-") {
		return ValidationResult{Valid: false, Message: "expected a bot (xoxb-) or user (xoxp-) token"}
	}

	probeCtx, cancel := context.WithTimeout(ctx, validateTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodPost, v.slackAPIURL+"/auth.test", nil)
	if err != nil {
		return ValidationResult{Valid: false, Message: fmt.Sprintf("building auth.test request: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return ValidationResult{Valid: false, Message: fmt.Sprintf("calling Slack auth.test: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ValidationResult{Valid: false, Message: fmt.Sprintf("reading auth.test response: %v", err)}
	}

	var result struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
		Team  string `json:"team"`
		User  string `json:"user"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return ValidationResult{Valid: false, Message: fmt.Sprintf("unexpected auth.test response (HTTP %d)", resp.StatusCode)}
	}
	if !result.OK {
		return ValidationResult{Valid: false, Message: fmt.Sprintf("Slack rejected the token: %s", result.Error)}
	}

	return ValidationResult{
		Valid:   true,
		Message: fmt.Sprintf("Slack token verified: team %q, user %q", result.Team, result.User),
	}
}

// ValidateDistributions parses the DISTRIBUTIONS JSON the same way the
// release function does and checks every entry.
func (v *Validator) ValidateDistributions(_ context.Context, raw string) ValidationResult {
	var dists config.Distributions
	if err := dists.Decode(raw); err != nil {
		return ValidationResult{Valid: false, Message: err.Error()}
	}
	if len(dists) == 0 {
		return ValidationResult{Valid: false, Message: "at least one environment is required"}
	}

	names := make([]string, 0, len(dists))
	for i, env := range dists {
		if err := v.structs.Struct(env); err != nil {
			return ValidationResult{Valid: false, Message: fmt.Sprintf("entry %d: %v", i, err)}
		}
		if !strings.HasPrefix(env.Bucket, s3ARNPrefix) {
			return ValidationResult{
				Valid:   false,
				Message: fmt.Sprintf("entry %d (%s): bucket must be an ARN like %sname, got %q", i, env.Name, s3ARNPrefix, env.Bucket),
			}
		}
		names = append(names, env.Name)
	}

	return ValidationResult{
		Valid:   true,
		Message: fmt.Sprintf("%d environment(s): %s", len(dists), strings.Join(names, ", ")),
	}
}
