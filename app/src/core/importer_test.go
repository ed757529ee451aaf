package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"mission-telemetry/app/src/database/memory"
	"mission-telemetry/app/src/domain"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payloadsOf(records []domain.TelemetryRecord) []domain.Payload {
	out := make([]domain.Payload, len(records))
	for i, r := range records {
		out[i] = r.Data
	}
	return out
}

func TestImportComputesWindowAndKeepsInputOrder(t *testing.T) {
	t.Log("Шаг 1: импортируем 10:00, 09:00 и запись без времени")
	svc, repo := newTestService(t, false)
	m := seedMission(t, repo, domain.ModeBatch)
	ctx := context.Background()

	input := []domain.Payload{
		{"timestamp": "2024-05-01T10:00:00Z", "v": "a"},
		{"timestamp": "2024-05-01T09:00:00Z", "v": "b"},
		{"v": "c"},
	}
	result, err := svc.ImportRecords(ctx, m.ID, input)
	require.NoError(t, err)

	t.Log("Шаг 2: проверяем результат импорта")
	assert.Equal(t, m.ID, result.MissionID)
	assert.Equal(t, 3, result.Count)
	assert.Equal(t, 2, result.Parsed)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, 2, result.Failures[0].Index)
	assert.Equal(t, ReasonMissing, result.Failures[0].Reason)

	t.Log("Шаг 3: агрегат миссии отражает временной порядок")
	got, err := svc.GetMission(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, got.StartDate.Equal(at(9, 0)))
	assert.True(t, got.EndDate.Equal(at(10, 0)))
	assert.Equal(t, time.Hour, *got.Duration)
	assert.Equal(t, "01:00:00", FormatDuration(*got.Duration))

	t.Log("Шаг 4: записи сохранены в исходном порядке")
	records, err := svc.ListRecords(ctx, m.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(input, payloadsOf(records)); diff != "" {
		t.Fatalf("stored order mismatch (-want +got):\n%s", diff)
	}
}

func TestImportStoresEveryPayloadRegardlessOfParseFailures(t *testing.T) {
	svc, repo := newTestService(t, false)
	m := seedMission(t, repo, domain.ModeBatch)

	input := []domain.Payload{
		{"timestamp": "garbage"},
		{"timestamp": 42.0},
		{"timestamp": ""},
		{},
		{"timestamp": "2024-05-01T09:15:00Z"},
	}
	result, err := svc.ImportRecords(context.Background(), m.ID, input)
	require.NoError(t, err)
	assert.Equal(t, len(input), result.Count)
	assert.Equal(t, 1, result.Parsed)
	assert.Len(t, result.Failures, 4)

	records, _ := repo.ListByMission(context.Background(), m.ID)
	assert.Len(t, records, len(input))

	got, _ := repo.GetMission(context.Background(), m.ID)
	assert.True(t, got.StartDate.Equal(at(9, 15)))
	assert.Equal(t, time.Duration(0), *got.Duration)
}

func TestImportWithoutTimestampsLeavesLifecycleUnset(t *testing.T) {
	svc, repo := newTestService(t, false)
	m := seedMission(t, repo, domain.ModeBatch)

	result, err := svc.ImportRecords(context.Background(), m.ID, []domain.Payload{{"a": 1}, {"b": 2}})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Count)

	got, _ := repo.GetMission(context.Background(), m.ID)
	assert.Nil(t, got.StartDate)
	assert.Nil(t, got.EndDate)
	assert.Nil(t, got.Duration)
}

func TestImportSecondBatchMovesEndBackwards(t *testing.T) {
	svc, repo := newTestService(t, true)
	m := seedMission(t, repo, domain.ModeBatch)
	ctx := context.Background()

	_, err := svc.ImportRecords(ctx, m.ID, []domain.Payload{{"timestamp": "2024-05-01T09:00:00Z"}, {"timestamp": "2024-05-01T12:00:00Z"}})
	require.NoError(t, err)
	_, err = svc.ImportRecords(ctx, m.ID, []domain.Payload{{"timestamp": "2024-05-01T10:00:00Z"}})
	require.NoError(t, err)

	got, _ := repo.GetMission(ctx, m.ID)
	assert.True(t, got.EndDate.Equal(at(10, 0)))
	assert.Equal(t, time.Hour, *got.Duration)
}

func TestImportRejectsEmptyBatch(t *testing.T) {
	svc, repo := newTestService(t, false)
	m := seedMission(t, repo, domain.ModeBatch)

	_, err := svc.ImportRecords(context.Background(), m.ID, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

type failingLog struct {
	*memory.Repository
	appendCalls int
}

func (f *failingLog) AppendMany(context.Context, int64, []domain.Payload) (int, error) {
	f.appendCalls++
	return 0, errors.New("disk full")
}

func TestImportNotFoundAbortsBeforeWrites(t *testing.T) {
	repo := &failingLog{Repository: memory.New()}
	store := newTestStore(repo, false)
	pipeline := NewBatchImportPipeline(store, repo, nil, nil)

	_, err := pipeline.Import(context.Background(), 404, []domain.Payload{{"timestamp": "2024-05-01T09:00:00Z"}})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 0, repo.appendCalls)
}

func TestImportAppendFailureKeepsWindow(t *testing.T) {
	t.Log("окно применяется до вставки и не откатывается")
	repo := &failingLog{Repository: memory.New()}
	m := seedMission(t, repo.Repository, domain.ModeBatch)
	store := newTestStore(repo, false)
	pipeline := NewBatchImportPipeline(store, repo, NewTimestampNormalizer(time.UTC), &stubLogger{})

	_, err := pipeline.Import(context.Background(), m.ID, []domain.Payload{{"timestamp": "2024-05-01T09:00:00Z"}})
	require.Error(t, err)
	assert.Equal(t, 1, repo.appendCalls)

	got, _ := repo.GetMission(context.Background(), m.ID)
	require.NotNil(t, got.StartDate)
	assert.True(t, got.StartDate.Equal(at(9, 0)))
}

func TestImportLogsTimestampFailures(t *testing.T) {
	logger := &stubLogger{}
	repo := memory.New()
	m := seedMission(t, repo, domain.ModeBatch)
	pipeline := NewBatchImportPipeline(newTestStore(repo, false), repo, nil, logger)

	_, err := pipeline.Import(context.Background(), m.ID, []domain.Payload{{"timestamp": "garbage"}})
	require.NoError(t, err)
	require.Len(t, logger.messages(), 1)
	assert.Contains(t, logger.messages()[0], "1 of 1 timestamps unusable")
}
