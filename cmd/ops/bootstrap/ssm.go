package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// SSMClient is the part of the SSM API the bootstrap tool calls.
type SSMClient interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	PutParameter(ctx context.Context, params *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error)
}

// ParameterStore keeps the deploynotify parameters of one environment under
// /{env}/deploynotify/.
type ParameterStore struct {
	client SSMClient
	env    string
	logger *slog.Logger
}

const ssmCallTimeout = 15 * time.Second

// NewParameterStore creates a ParameterStore from the BootstrapContext.
func NewParameterStore(bctx *BootstrapContext) *ParameterStore {
	return NewParameterStoreWithClient(ssm.NewFromConfig(bctx.AWSConfig), bctx.Environment, bctx.Logger)
}

// NewParameterStoreWithClient creates a ParameterStore with an injected client.
func NewParameterStoreWithClient(client SSMClient, env string, logger *slog.Logger) *ParameterStore {
	return &ParameterStore{client: client, env: env, logger: logger}
}

// Path is the parameter name the functions resolve through EnvVar_SSM_PARAM.
func (s *ParameterStore) Path(step BootstrapStep) string {
	return fmt.Sprintf("/%s/deploynotify/%s", s.env, step.SSMCategoryKey)
}

// Exists reports whether the step's parameter is already stored. The probe
// does not decrypt, so it works without kms:Decrypt.
func (s *ParameterStore) Exists(ctx context.Context, step BootstrapStep) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, ssmCallTimeout)
	defer cancel()

	path := s.Path(step)
	_, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(path),
		WithDecryption: aws.Bool(false),
	})
	var notFound *ssmtypes.ParameterNotFound
	switch {
	case errors.As(err, &notFound):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("checking SSM parameter %q: %w", path, err)
	}
	return true, nil
}

// Store writes value for step. Secret steps become SecureString parameters
// and their value never reaches the log.
func (s *ParameterStore) Store(ctx context.Context, step BootstrapStep, value string, overwrite bool) error {
	if value == "" {
		return fmt.Errorf("empty value for %s", step.EnvVar)
	}

	paramType := ssmtypes.ParameterTypeString
	if step.IsSecret {
		paramType = ssmtypes.ParameterTypeSecureString
	}

	ctx, cancel := context.WithTimeout(ctx, ssmCallTimeout)
	defer cancel()

	path := s.Path(step)
	if _, err := s.client.PutParameter(ctx, &ssm.PutParameterInput{
		Name:      aws.String(path),
		Value:     aws.String(value),
		Type:      paramType,
		Overwrite: aws.Bool(overwrite),
	}); err != nil {
		return fmt.Errorf("writing SSM parameter %q: %w", path, err)
	}

	s.logger.Info("parameter stored",
		"env_var", step.EnvVar,
		"path", path,
		"type", string(paramType),
		"value_length", len(value),
	)
	return nil
}
