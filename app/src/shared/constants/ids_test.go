package constants

import (
	"testing"

	sharederrors "mission-telemetry/app/src/shared/errors"

	"github.com/stretchr/testify/assert"
)

func TestParseIDSuccess(t *testing.T) {
	t.Log("разбираем корректный идентификатор")
	id, err := ParseID(" 42 ")

	assert.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "42", FormatID(id))
}

func TestParseIDErrors(t *testing.T) {
	t.Log("проверяем обработку некорректных строк")
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"letters", "abc"},
		{"zero", "0"},
		{"negative", "-5"},
		{"overflow", "99999999999999999999"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Logf("Пытаемся распарсить значение: %s", tc.input)
			_, err := ParseID(tc.input)
			assert.Error(t, err)
			assert.ErrorIs(t, err, sharederrors.ErrInvalidID)
		})
	}
}
