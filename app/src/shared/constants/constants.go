package constants

import "time"

const (
	// TimeFormat defines the canonical timestamp format used across transports.
	TimeFormat = time.RFC3339Nano

	// RequestIDHeader carries the correlation id of an HTTP request.
	RequestIDHeader = "X-Request-ID"

	// RequestIDMetadataKey carries the correlation id of a gRPC call.
	RequestIDMetadataKey = "x-request-id"
)
