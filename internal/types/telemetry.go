package types

// Telemetry metric names for CloudWatch.
const (
	MetricInvalidationIssued = "InvalidationIssued"
	MetricUnmatchedEvent     = "UnmatchedEvent"
	MetricHandlerError       = "HandlerError"

	DimEnvironment = "Environment"
	DimFunction    = "Function"

	// Default namespace when METRIC_NAMESPACE is unset.
	MetricNamespace = "DeployNotify"
)
