package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Log("Шаг 1: очищаем переменные окружения и загружаем конфиг")
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("HTTP_PORT", "")
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("MISSION_ISOLATION", "")
	t.Setenv("RECORD_INSERT_CHUNK", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, StorageDriverPostgres, cfg.StorageDriver)
	assert.Equal(t, IsolationLegacy, cfg.MissionIsolation)
	assert.False(t, cfg.StrictIsolation())
	assert.Equal(t, 500, cfg.RecordInsertChunk)
	assert.Equal(t, 1<<20, cfg.MaxBodyBytes)
}

func TestLoadConfigReadsEnvironment(t *testing.T) {
	t.Log("Шаг 1: устанавливаем переменные окружения для конфигурации")
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("DB_DSN", "dsn")
	t.Setenv("STORAGE_DRIVER", "Memory")
	t.Setenv("MISSION_ISOLATION", "strict")
	t.Setenv("TIMEZONE", "Europe/Lisbon")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.HTTPPort)
	assert.Equal(t, "dsn", cfg.DatabaseDSN)
	assert.Equal(t, StorageDriverMemory, cfg.StorageDriver)
	assert.True(t, cfg.StrictIsolation())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Lisbon", loc.String())
}

func TestLoadConfigFileIsOverriddenByEnvironment(t *testing.T) {
	t.Log("Шаг 1: пишем YAML-файл конфигурации")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "http_port: \"7000\"\ngrpc_port: \"7001\"\nstorage_driver: memory\nrecord_insert_chunk: 50\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("HTTP_PORT", "")
	t.Setenv("GRPC_PORT", "7100")
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("MISSION_ISOLATION", "")
	t.Setenv("RECORD_INSERT_CHUNK", "")

	t.Log("Шаг 2: переменные окружения имеют приоритет над файлом")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.HTTPPort)
	assert.Equal(t, "7100", cfg.GRPCPort)
	assert.Equal(t, StorageDriverMemory, cfg.StorageDriver)
	assert.Equal(t, 50, cfg.RecordInsertChunk)
}

func TestLoadConfigRejectsUnknownValues(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("STORAGE_DRIVER", "mongo")
	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("MISSION_ISOLATION", "serializable")
	_, err = LoadConfig()
	assert.Error(t, err)

	t.Setenv("MISSION_ISOLATION", "")
	t.Setenv("TIMEZONE", "Mars/Olympus")
	_, err = LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLogConfigProducesEntries(t *testing.T) {
	t.Log("Шаг 1: логируем конфигурацию и проверяем записи")
	var buf bytes.Buffer
	logger := NewLogger(&buf, "test")
	cfg := Config{DatabasePassword: "secret"}

	LogConfig(context.Background(), logger, cfg)

	assert.NotContains(t, buf.String(), "secret")
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.NotEmpty(t, lines)

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var payload map[string]any
		assert.NoError(t, json.Unmarshal([]byte(line), &payload))
		assert.Equal(t, "info", payload["level"])
	}
}

func TestGetEnv(t *testing.T) {
	t.Log("получаем переменную окружения с запасным значением")
	t.Setenv("FOO", "bar")
	assert.Equal(t, "bar", getEnv("FOO", "baz"))
	t.Setenv("FOO", "")
	assert.Equal(t, "baz", getEnv("FOO", "baz"))
}

func TestGetEnvInt(t *testing.T) {
	t.Log("читаем целочисленную переменную окружения")
	t.Setenv("NUM", "42")
	assert.Equal(t, 42, getEnvInt("NUM", 1))
	t.Log("проверяем поведение при некорректном значении")
	t.Setenv("NUM", "invalid")
	assert.Equal(t, 1, getEnvInt("NUM", 1))
}
