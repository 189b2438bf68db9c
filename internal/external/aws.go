package external

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"deploynotify/internal/types"
)

// CloudFrontAPI defines the subset of the CloudFront client used by AWSClient.
type CloudFrontAPI interface {
	CreateInvalidation(ctx context.Context, params *cloudfront.CreateInvalidationInput, optFns ...func(*cloudfront.Options)) (*cloudfront.CreateInvalidationOutput, error)
}

// LambdaAPI defines the subset of the Lambda client used by AWSClient.
type LambdaAPI interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// AWSGateway is the release function's view of AWS: purge a distribution and
// call another function synchronously. Both calls block until AWS answers or
// ctx is done.
type AWSGateway interface {
	// Invalidate purges every path ("/*") on the distribution. callerReference
	// makes the request idempotent; the created invalidation id is returned.
	Invalidate(ctx context.Context, distributionID, callerReference string) (string, error)

	// InvokeFunction runs the named function with a RequestResponse
	// invocation and returns its response payload.
	InvokeFunction(ctx context.Context, functionName string, payload []byte) ([]byte, error)
}

// AWSClientConfig holds the configuration for creating an AWSClient.
type AWSClientConfig struct {
	Logger *slog.Logger
}

// AWSClient implements AWSGateway with the CloudFront and Lambda SDK clients.
// The SDK provides its own retry logic, so no BaseClient wrapper is used.
type AWSClient struct {
	cdn    CloudFrontAPI
	fn     LambdaAPI
	logger *slog.Logger
}

// NewAWSClient creates an AWSClient from an AWS config.
func NewAWSClient(awsCfg aws.Config, cfg AWSClientConfig) *AWSClient {
	return NewAWSClientWithAPI(cloudfront.NewFromConfig(awsCfg), lambda.NewFromConfig(awsCfg), cfg)
}

// NewAWSClientWithAPI creates an AWSClient with pre-configured SDK interfaces.
func NewAWSClientWithAPI(cdn CloudFrontAPI, fn LambdaAPI, cfg AWSClientConfig) *AWSClient {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AWSClient{cdn: cdn, fn: fn, logger: logger}
}

// Invalidate issues CreateInvalidation for "/*" with quantity 1.
func (c *AWSClient) Invalidate(ctx context.Context, distributionID, callerReference string) (string, error) {
	out, err := c.cdn.CreateInvalidation(ctx, &cloudfront.CreateInvalidationInput{
		DistributionId: aws.String(distributionID),
		InvalidationBatch: &cftypes.InvalidationBatch{
			CallerReference: aws.String(callerReference),
			Paths: &cftypes.Paths{
				Quantity: aws.Int32(1),
				Items:    []string{types.InvalidateAllPaths},
			},
		},
	})
	if err != nil {
		return "", mapCloudFrontError(err, distributionID)
	}

	var invalidationID, status string
	if out.Invalidation != nil {
		invalidationID = aws.ToString(out.Invalidation.Id)
		status = aws.ToString(out.Invalidation.Status)
	}

	c.logger.InfoContext(ctx, "invalidation created",
		"distribution_id", distributionID,
		"invalidation_id", invalidationID,
		"status", status,
		"caller_reference", callerReference,
	)

	return invalidationID, nil
}

// InvokeFunction performs a RequestResponse invocation with LogType None.
// Only a failed Invoke call is an error. When the invoked function itself
// raised (FunctionError set), its error payload is returned as the response
// and the failure is logged.
func (c *AWSClient) InvokeFunction(ctx context.Context, functionName string, payload []byte) ([]byte, error) {
	out, err := c.fn.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(functionName),
		InvocationType: lambdatypes.InvocationTypeRequestResponse,
		LogType:        lambdatypes.LogTypeNone,
		Payload:        payload,
	})
	if err != nil {
		return nil, mapLambdaError(err, functionName)
	}

	if out.FunctionError != nil {
		c.logger.WarnContext(ctx, "invoked function returned an error",
			"function", functionName,
			"function_error", aws.ToString(out.FunctionError),
			"payload", string(out.Payload),
		)
	}

	return out.Payload, nil
}

func mapCloudFrontError(err error, distributionID string) error {
	details := map[string]any{"distribution_id": distributionID}

	var tooMany *cftypes.TooManyInvalidationsInProgress
	if errors.As(err, &tooMany) {
		return types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamRateLimited,
			"CloudFront has too many invalidations in progress",
			err,
			details,
		)
	}

	var noDist *cftypes.NoSuchDistribution
	if errors.As(err, &noDist) {
		return types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamCDN,
			fmt.Sprintf("CloudFront distribution %s does not exist", distributionID),
			err,
			details,
		)
	}

	return types.NewAppErrorWithDetails(
		types.ErrCodeUpstreamCDN,
		"CloudFront CreateInvalidation failed",
		err,
		details,
	)
}

func mapLambdaError(err error, functionName string) error {
	details := map[string]any{"function": functionName}

	var tooMany *lambdatypes.TooManyRequestsException
	if errors.As(err, &tooMany) {
		return types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamRateLimited,
			"Lambda invocation throttled",
			err,
			details,
		)
	}

	var notFound *lambdatypes.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamFunction,
			fmt.Sprintf("function %s does not exist", functionName),
			err,
			details,
		)
	}

	return types.NewAppErrorWithDetails(
		types.ErrCodeUpstreamFunction,
		fmt.Sprintf("invoking function %s failed", functionName),
		err,
		details,
	)
}

// Compile-time assertion that AWSClient satisfies AWSGateway.
var _ AWSGateway = (*AWSClient)(nil)
