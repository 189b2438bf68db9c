// Package config defines the configuration of the announce and release
// functions. Configuration is loaded once per cold start and is immutable
// thereafter; handlers receive the parts they need by value or pointer and
// never write to them.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> AWS SSM Parameter Store (Lowest)
//
// A missing required value or an invalid format makes main exit before the
// Lambda runtime is started.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"deploynotify/internal/types"
)

// SecretString is an alias for types.SecretString.
type SecretString = types.SecretString

// Config holds the settings shared by both functions.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"prod" validate:"required,oneof=local dev staging prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	AWS AWSConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// IsLocal reports whether the process runs outside Lambda (stdin mode, no SSM).
func (c Config) IsLocal() bool {
	return c.Environment == localEnv
}

// SlogLevel maps LogLevel onto a slog.Level. Unknown values fall back to info;
// the validator rejects them before this is reached in practice.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// AWSConfig holds regional configuration for the SDK clients.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-2" validate:"required"`

	// LocalStack Support (Empty in Prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL" validate:"omitempty,url"`
}

// AnnounceConfig is the configuration of the announce (Notifier) function.
type AnnounceConfig struct {
	Config
	Slack SlackConfig
}

// SlackConfig holds the chat API credentials and channel routing.
type SlackConfig struct {
	Token     SecretString  `envconfig:"SLACK_TOKEN" validate:"required"`
	APIURL    string        `envconfig:"SLACK_API_URL" default:"https://slack.com/api" validate:"required,url"`
	IconEmoji string        `envconfig:"SLACK_ICON_EMOJI" default:":female-scientist:"`
	UserAgent string        `envconfig:"SLACK_USER_AGENT" default:"deploynotify-announce/1.0"`
	// Timeout of zero leaves the HTTP client without a deadline; the Lambda
	// function timeout bounds the call.
	Timeout   time.Duration `envconfig:"SLACK_TIMEOUT" default:"0s"`
	Channels  ChannelConfig
}

// ChannelConfig maps each severity level to a Slack channel name.
type ChannelConfig struct {
	// Error was read from INFO_CHANNEL in the first version of this function,
	// so overriding the info channel also moved errors.
	Error string `envconfig:"ERROR_CHANNEL" default:"errors" validate:"required"`
	Info  string `envconfig:"INFO_CHANNEL" default:"activity" validate:"required"`
	Debug string `envconfig:"DEBUG_CHANNEL" default:"bots" validate:"required"`
}

// ReleaseConfig is the configuration of the release (Release Watcher) function.
type ReleaseConfig struct {
	Config

	// Distributions is decoded from a JSON array:
	//	[{"name":"prod","bucket":"arn:aws:s3:::prod-site","distributionId":"E123"}]
	Distributions Distributions `envconfig:"DISTRIBUTIONS" default:"[]" validate:"dive"`

	AnnounceFunction string `envconfig:"ANNOUNCE_FUNCTION" default:"announce" validate:"required"`

	// FailureQueueURL receives the raw event of failed invocations. Optional.
	FailureQueueURL string `envconfig:"FAILURE_QUEUE_URL" validate:"omitempty,url"`

	Observability ObservabilityConfig
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"DeployNotify"`
	EnableMetrics   bool   `envconfig:"ENABLE_METRICS" default:"true"`
}

// Distributions is the ordered environment table. It implements
// envconfig.Decoder so the JSON value of DISTRIBUTIONS is decoded in place.
type Distributions []types.Environment

// Decode implements envconfig.Decoder.
func (d *Distributions) Decode(value string) error {
	if strings.TrimSpace(value) == "" {
		*d = Distributions{}
		return nil
	}
	var envs []types.Environment
	if err := json.Unmarshal([]byte(value), &envs); err != nil {
		return fmt.Errorf("DISTRIBUTIONS is not a JSON array of {name,bucket,distributionId}: %w", err)
	}
	*d = envs
	return nil
}

// BuildInfo holds build-time metadata injected via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrSSMResolution indicates a failure when fetching secrets from AWS SSM.
	ErrSSMResolution ConfigErrorType = "SSM_FAILURE"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
