package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"mission-telemetry/app/src/domain"
)

// ParseDurationText reads "HH:MM:SS", optionally prefixed by a day count ("2 01:00:00") and
// optionally carrying up to six fractional second digits.
func ParseDurationText(text string) (time.Duration, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: duration is empty", domain.ErrValidation)
	}

	var days int64
	clock := trimmed
	if head, tail, found := strings.Cut(trimmed, " "); found {
		d, err := strconv.ParseInt(head, 10, 64)
		if err != nil || d < 0 {
			return 0, fmt.Errorf("%w: invalid duration %q", domain.ErrValidation, text)
		}
		days = d
		clock = strings.TrimSpace(tail)
	}

	parts := strings.Split(clock, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("%w: duration %q must be HH:MM:SS", domain.ErrValidation, text)
	}

	hours, err := parseClockField(parts[0], -1)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid hours in %q", domain.ErrValidation, text)
	}
	minutes, err := parseClockField(parts[1], 59)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid minutes in %q", domain.ErrValidation, text)
	}

	secText, fracText, _ := strings.Cut(parts[2], ".")
	seconds, err := parseClockField(secText, 59)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid seconds in %q", domain.ErrValidation, text)
	}

	var micros int64
	if fracText != "" {
		if len(fracText) > 6 {
			return 0, fmt.Errorf("%w: too many fractional digits in %q", domain.ErrValidation, text)
		}
		micros, err = strconv.ParseInt(fracText+strings.Repeat("0", 6-len(fracText)), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: invalid fraction in %q", domain.ErrValidation, text)
		}
	}

	// Largest whole-hour count a time.Duration can hold.
	const maxHours = int64(math.MaxInt64 / time.Hour)
	if days > maxHours/24 || hours > maxHours-days*24 {
		return 0, fmt.Errorf("%w: duration %q is out of range", domain.ErrValidation, text)
	}
	whole := time.Duration(days*24+hours) * time.Hour
	rest := time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(micros)*time.Microsecond
	if rest > time.Duration(math.MaxInt64)-whole {
		return 0, fmt.Errorf("%w: duration %q is out of range", domain.ErrValidation, text)
	}
	return whole + rest, nil
}

func parseClockField(s string, max int64) (int64, error) {
	if s == "" || strings.TrimLeft(s, "0123456789") != "" {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if max >= 0 && v > max {
		return 0, fmt.Errorf("out of range: %d", v)
	}
	return v, nil
}

// FormatDuration renders d as "HH:MM:SS", prefixed with "D " past one day and suffixed with
// microseconds when present. Negative durations keep a leading "-".
func FormatDuration(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}

	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	d -= seconds * time.Second
	micros := d / time.Microsecond

	out := fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	if micros > 0 {
		out += fmt.Sprintf(".%06d", micros)
	}
	if days > 0 {
		out = fmt.Sprintf("%d %s", days, out)
	}
	return sign + out
}
