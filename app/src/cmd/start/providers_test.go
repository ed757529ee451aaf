package main

import (
	"bytes"
	"context"
	"testing"

	"mission-telemetry/app/src/infra"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvideStoreConfigFollowsIsolation(t *testing.T) {
	assert.False(t, provideStoreConfig(infra.Config{MissionIsolation: infra.IsolationLegacy}).Strict)
	assert.True(t, provideStoreConfig(infra.Config{MissionIsolation: infra.IsolationStrict}).Strict)
}

func TestProvideNormalizerRejectsUnknownZone(t *testing.T) {
	_, err := provideNormalizer(infra.Config{Timezone: "Mars/Olympus"})
	assert.Error(t, err)

	normalizer, err := provideNormalizer(infra.Config{Timezone: "UTC"})
	require.NoError(t, err)
	assert.NotNil(t, normalizer)
}

func TestInitApplicationWithMemoryStorage(t *testing.T) {
	t.Log("Шаг 1: собираем приложение на памяти")
	t.Setenv("STORAGE_DRIVER", infra.StorageDriverMemory)
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DB_DSN", "")
	t.Setenv("DB_HOST", "")

	buf := &bytes.Buffer{}
	app, cleanup, err := initApplication(context.Background(), buf)
	require.NoError(t, err)
	defer cleanup()

	t.Log("Шаг 2: сервис работает без базы данных")
	missions, err := app.Service.ListMissions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, missions)
	assert.Contains(t, buf.String(), "in-memory storage")
}
