package domain

import "time"

// TimestampField is the payload key that may carry the event time of a record.
const TimestampField = "timestamp"

// Payload is an opaque telemetry document. The core only ever reads TimestampField.
type Payload map[string]any

// TelemetryRecord is one stored event. Records reference their mission by id only.
type TelemetryRecord struct {
	ID        int64
	MissionID int64
	Data      Payload
	CreatedAt time.Time
}
