// loader.go implements the configuration loading lifecycle:
//  1. Load .env via godotenv (non-fatal if absent).
//  2. Unless APP_ENV=local, resolve every FOO_SSM_PARAM pointer through the
//     SecretProvider and export the value as FOO.
//  3. Populate the target struct with envconfig.
//  4. Attach BuildInfo and validate with go-playground/validator.
package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ConfigError is the error type returned by the loaders.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ssmParamSuffix marks pointer variables: SLACK_TOKEN_SSM_PARAM holds the SSM
// path whose value becomes SLACK_TOKEN.
const ssmParamSuffix = "_SSM_PARAM"

// localEnv is the APP_ENV value that bypasses SSM resolution.
const localEnv = "local"

// ssmTimeout bounds SSM resolution during a cold start.
const ssmTimeout = 30 * time.Second

type loaderDeps struct {
	lookupEnv func(key string) (string, bool)
	setEnv    func(key, value string) error
	environ   func() []string
	dotenv    func() error
}

func defaultDeps() loaderDeps {
	return loaderDeps{
		lookupEnv: os.LookupEnv,
		setEnv:    os.Setenv,
		environ:   os.Environ,
		dotenv:    func() error { return godotenv.Load() },
	}
}

// buildable is implemented by the per-function config structs so the loader
// can attach build metadata after envconfig has run.
type buildable interface {
	setBuild(BuildInfo)
}

func (c *Config) setBuild(b BuildInfo) { c.Build = b }

// LoadAnnounceConfig loads and validates the announce function configuration.
// provider may be nil when APP_ENV=local or when no _SSM_PARAM pointers are set.
func LoadAnnounceConfig(provider SecretProvider) (*AnnounceConfig, error) {
	var cfg AnnounceConfig
	if err := load(provider, defaultDeps(), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadReleaseConfig loads and validates the release function configuration.
func LoadReleaseConfig(provider SecretProvider) (*ReleaseConfig, error) {
	var cfg ReleaseConfig
	if err := load(provider, defaultDeps(), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func load(provider SecretProvider, deps loaderDeps, target buildable) error {
	// .env never overrides variables that are already set.
	_ = deps.dotenv()

	appEnv, _ := deps.lookupEnv("APP_ENV")
	if appEnv != localEnv {
		if err := resolveSSMParams(provider, deps); err != nil {
			return err
		}
	}

	if err := envconfig.Process("", target); err != nil {
		return &ConfigError{
			Type:    classifyEnvconfigError(err),
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	target.setBuild(NewBuildInfo())

	if err := validator.New().Struct(target); err != nil {
		return &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}

	return nil
}

// classifyEnvconfigError separates "required key missing" from parse failures.
func classifyEnvconfigError(err error) ConfigErrorType {
	if strings.Contains(err.Error(), "required key") {
		return ErrMissingEnv
	}
	return ErrParsing
}

// resolveSSMParams exports the value behind every FOO_SSM_PARAM pointer as FOO.
// Pointers whose target is already set are skipped (Env > SSM).
func resolveSSMParams(provider SecretProvider, deps loaderDeps) error {
	pathToTarget := make(map[string]string)
	var paths []string

	for _, entry := range deps.environ() {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || !strings.HasSuffix(key, ssmParamSuffix) {
			continue
		}

		target := strings.TrimSuffix(key, ssmParamSuffix)
		if _, exists := deps.lookupEnv(target); exists {
			continue
		}
		if value == "" {
			continue
		}

		if _, seen := pathToTarget[value]; !seen {
			paths = append(paths, value)
		}
		pathToTarget[value] = target
	}

	if len(paths) == 0 {
		return nil
	}

	if provider == nil {
		targets := make([]string, 0, len(paths))
		for _, p := range paths {
			targets = append(targets, pathToTarget[p])
		}
		return &ConfigError{
			Type:    ErrSSMResolution,
			Message: fmt.Sprintf("SecretProvider is required for non-local environments (need to resolve: %s)", strings.Join(targets, ", ")),
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), ssmTimeout)
	defer cancel()

	resolved, err := provider.GetParametersBatch(ctx, paths)
	if err != nil {
		return &ConfigError{
			Type:    ErrSSMResolution,
			Message: fmt.Sprintf("failed to resolve %d SSM parameters", len(paths)),
			Err:     err,
		}
	}

	var missing []string
	for _, path := range paths {
		target := pathToTarget[path]
		value, ok := resolved[path]
		if !ok {
			missing = append(missing, target)
			continue
		}
		if err := deps.setEnv(target, value); err != nil {
			return &ConfigError{
				Type:    ErrSSMResolution,
				Message: fmt.Sprintf("failed to set resolved value for %s", target),
				Err:     err,
			}
		}
	}
	if len(missing) > 0 {
		return &ConfigError{
			Type:    ErrSSMResolution,
			Message: fmt.Sprintf("SSM parameters not found for: %s", strings.Join(missing, ", ")),
		}
	}

	return nil
}
