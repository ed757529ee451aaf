package constants

import (
	"fmt"
	"strconv"
	"strings"

	sharederrors "mission-telemetry/app/src/shared/errors"
)

// ParseID validates a positive decimal identifier as used for missions and records.
func ParseID(value string) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: empty", sharederrors.ErrInvalidID)
	}

	id, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", sharederrors.ErrInvalidID, value)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%w: must be positive", sharederrors.ErrInvalidID)
	}
	return id, nil
}

// FormatID renders an identifier the way ParseID accepts it.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
