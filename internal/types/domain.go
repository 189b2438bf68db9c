package types

// Environment is a named deployment target. Bucket holds the S3 bucket ARN
// that receives the build artifacts; DistributionID names the CloudFront
// distribution serving them.
type Environment struct {
	Name           string `json:"name" validate:"required"`
	Bucket         string `json:"bucket" validate:"required"`
	DistributionID string `json:"distributionId" validate:"required"`
}

// Bucket identifies the S3 bucket an upload event came from.
type Bucket struct {
	Name string `json:"name"`
	ARN  string `json:"arn"`
}

// InvalidateAllPaths is the path pattern purged on every deploy.
const InvalidateAllPaths = "/*"
