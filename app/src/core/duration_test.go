package core

import (
	"testing"
	"time"

	"mission-telemetry/app/src/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDurationText(t *testing.T) {
	cases := map[string]time.Duration{
		"01:00:00":        time.Hour,
		"00:05:00":        5 * time.Minute,
		"36:00:00":        36 * time.Hour,
		"2 01:30:15":      49*time.Hour + 30*time.Minute + 15*time.Second,
		"00:00:01.5":      1500 * time.Millisecond,
		"00:00:00.000001": time.Microsecond,
		" 10:00:00 ":      10 * time.Hour,
	}
	for text, want := range cases {
		got, err := ParseDurationText(text)
		require.NoError(t, err, text)
		assert.Equal(t, want, got, text)
	}
}

func TestParseDurationTextRejectsMalformedInput(t *testing.T) {
	for _, text := range []string{"", "1:00", "abc", "01:60:00", "01:00:60", "-1 01:00:00", "01:00:00.1234567", "01:-5:00", "x 01:00:00", "01:00:00:00",
		"3000000:00:00", "200000 00:00:00", "2562047:47:17", "9223372036854775807:00:00"} {
		_, err := ParseDurationText(text)
		assert.ErrorIs(t, err, domain.ErrValidation, text)
	}
}

func TestParseDurationTextAcceptsLargestDuration(t *testing.T) {
	t.Log("Шаг 1: верхняя граница time.Duration до секунды принимается")
	d, err := ParseDurationText("2562047:47:16")
	require.NoError(t, err)
	assert.Equal(t, 2562047*time.Hour+47*time.Minute+16*time.Second, d)

	t.Log("Шаг 2: та же граница через количество дней")
	d, err = ParseDurationText("106751 23:47:16")
	require.NoError(t, err)
	assert.Positive(t, d)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "01:00:00", FormatDuration(time.Hour))
	assert.Equal(t, "00:00:00", FormatDuration(0))
	assert.Equal(t, "1 02:03:04", FormatDuration(26*time.Hour+3*time.Minute+4*time.Second))
	assert.Equal(t, "00:00:01.500000", FormatDuration(1500*time.Millisecond))
	assert.Equal(t, "-00:30:00", FormatDuration(-30*time.Minute))
}

func TestDurationRoundTrip(t *testing.T) {
	for _, d := range []time.Duration{time.Hour, 49*time.Hour + time.Second, 1500 * time.Millisecond} {
		parsed, err := ParseDurationText(FormatDuration(d))
		require.NoError(t, err)
		assert.Equal(t, d, parsed)
	}
}
