package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"mission-telemetry/app/src/domain"
)

// TimestampResult is the outcome of normalizing one timestamp value. When OK is false,
// Reason says why and Instant is the zero time.
type TimestampResult struct {
	Instant time.Time
	OK      bool
	Reason  string
	Raw     string
}

const (
	ReasonMissing     = "missing"
	ReasonNotString   = "not a string"
	ReasonEmpty       = "empty"
	ReasonUnparseable = "unparseable"
)

// TimestampNormalizer turns free-form timestamp text into UTC instants. Text without an
// explicit offset is read as wall-clock time in the configured location.
type TimestampNormalizer struct {
	loc *time.Location
}

func NewTimestampNormalizer(loc *time.Location) *TimestampNormalizer {
	if loc == nil {
		loc = time.Local
	}
	return &TimestampNormalizer{loc: loc}
}

// Normalize never fails; unusable values produce a result with OK=false.
func (n *TimestampNormalizer) Normalize(value any) TimestampResult {
	text, ok := value.(string)
	if !ok {
		return TimestampResult{Reason: ReasonNotString, Raw: fmt.Sprint(value)}
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return TimestampResult{Reason: ReasonEmpty, Raw: text}
	}

	instant, err := dateparse.ParseIn(trimmed, n.loc)
	if err != nil {
		return TimestampResult{Reason: ReasonUnparseable + ": " + err.Error(), Raw: text}
	}

	return TimestampResult{Instant: instant.UTC(), OK: true, Raw: text}
}

// FromPayload normalizes the embedded timestamp field of a payload.
func (n *TimestampNormalizer) FromPayload(payload domain.Payload) TimestampResult {
	value, ok := payload[domain.TimestampField]
	if !ok || value == nil {
		return TimestampResult{Reason: ReasonMissing}
	}
	return n.Normalize(value)
}
