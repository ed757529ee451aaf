package database

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"mission-telemetry/app/src/domain"
	"mission-telemetry/app/src/infra"
)

// Config contains the configuration required to connect to a Postgres database.
type Config struct {
	DSN    string
	Runner CommandRunner
	Logger *infra.Logger
	// InsertChunk caps the number of rows per multi-row INSERT.
	InsertChunk int
}

// CommandRunner executes SQL commands against Postgres.
type CommandRunner interface {
	Exec(ctx context.Context, dsn, password, sql string, args ...any) (string, error)
	Close() error
}

// Repository implements the mission and telemetry log contracts backed by Postgres.
type Repository struct {
	dsn      string
	password string

	runner CommandRunner
	logger *infra.Logger

	insertChunk int

	closeOnce sync.Once
}

const defaultInsertChunk = 500

const missionColumns = `id, name, start_date, end_date, EXTRACT(EPOCH FROM duration), is_realtime, created_at`

const (
	selectMissionSQL = `SELECT ` + missionColumns + ` FROM public.missions WHERE id = $1`

	listMissionsSQL = `SELECT ` + missionColumns + ` FROM public.missions ORDER BY created_at DESC, id DESC`

	latestUnstartedRealtimeSQL = `SELECT ` + missionColumns + ` FROM public.missions
WHERE is_realtime AND start_date IS NULL
ORDER BY created_at DESC, id DESC
LIMIT 1`

	insertMissionSQL = `INSERT INTO public.missions (name, is_realtime) VALUES ($1, $2) RETURNING ` + missionColumns

	saveLifecycleSQL = `
UPDATE public.missions
SET start_date = $2,
    end_date   = $3,
    duration   = $4::double precision * INTERVAL '1 second'
WHERE id = $1
`
	setStartDateSQL = `UPDATE public.missions SET start_date = $2 WHERE id = $1`

	applyImportWindowSQL = `
UPDATE public.missions
SET start_date = COALESCE(start_date, $2::timestamptz),
    end_date   = COALESCE($3::timestamptz, end_date),
    duration   = COALESCE(COALESCE($3::timestamptz, end_date) - COALESCE(start_date, $2::timestamptz), duration)
WHERE id = $1
RETURNING ` + missionColumns

	markStartedSQL = `
UPDATE public.missions
SET start_date = $2
WHERE id = $1 AND start_date IS NULL AND is_realtime
RETURNING id
`
	insertRecordSQL = `INSERT INTO public.mission_records (mission_id, data) VALUES ($1, $2::jsonb) RETURNING id`

	listRecordsSQL = `SELECT id, mission_id, data::text, created_at FROM public.mission_records WHERE mission_id = $1 ORDER BY id ASC`
)

// New creates a repository backed by Postgres using a SQL command runner.
func New(cfg Config) (*Repository, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres repository: DSN is required")
	}

	parsed, err := url.Parse(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres repository: parse dsn: %w", err)
	}

	password, _ := parsed.User.Password()

	runner := cfg.Runner
	if runner == nil {
		runner = NewSQLRunner()
	}

	chunk := cfg.InsertChunk
	if chunk <= 0 {
		chunk = defaultInsertChunk
	}

	return &Repository{
		dsn:         cfg.DSN,
		password:    password,
		runner:      runner,
		logger:      cfg.Logger,
		insertChunk: chunk,
	}, nil
}

// Close releases resources held by the repository.
func (r *Repository) Close() error {
	var err error
	r.closeOnce.Do(func() {
		err = r.runner.Close()
	})
	return err
}

// GetMission returns the mission with the given id or domain.ErrNotFound.
func (r *Repository) GetMission(ctx context.Context, id int64) (domain.Mission, error) {
	return r.queryOneMission(ctx, "get_mission", selectMissionSQL, id)
}

// ListMissions returns all missions, newest first.
func (r *Repository) ListMissions(ctx context.Context) ([]domain.Mission, error) {
	output, err := r.exec(ctx, "list_missions", listMissionsSQL)
	if err != nil {
		return nil, fmt.Errorf("postgres repository: list missions: %w", err)
	}
	missions, err := parseMissionList(output)
	if err != nil {
		return nil, fmt.Errorf("postgres repository: list missions parse: %w", err)
	}
	if missions == nil {
		missions = []domain.Mission{}
	}
	return missions, nil
}

// LatestUnstartedRealtime returns the most recently created realtime mission with no start.
func (r *Repository) LatestUnstartedRealtime(ctx context.Context) (domain.Mission, error) {
	return r.queryOneMission(ctx, "latest_unstarted", latestUnstartedRealtimeSQL)
}

// CreateMission inserts a mission row in the open state.
func (r *Repository) CreateMission(ctx context.Context, mission domain.NewMission) (domain.Mission, error) {
	output, err := r.exec(ctx, "create_mission", insertMissionSQL, mission.Name, mission.Mode == domain.ModeRealtime)
	if err != nil {
		return domain.Mission{}, fmt.Errorf("postgres repository: create mission: %w", err)
	}
	missions, err := parseMissionList(output)
	if err != nil {
		return domain.Mission{}, fmt.Errorf("postgres repository: create mission parse: %w", err)
	}
	if len(missions) == 0 {
		return domain.Mission{}, errors.New("postgres repository: create mission returned no row")
	}
	return missions[0], nil
}

// SaveLifecycle overwrites the aggregate fields of a mission unconditionally.
func (r *Repository) SaveLifecycle(ctx context.Context, id int64, lifecycle domain.Lifecycle) error {
	var seconds any
	if lifecycle.Duration != nil {
		seconds = lifecycle.Duration.Seconds()
	}
	tag, err := r.exec(ctx, "save_lifecycle", saveLifecycleSQL, id, nullableTime(lifecycle.StartDate), nullableTime(lifecycle.EndDate), seconds)
	if err != nil {
		return fmt.Errorf("postgres repository: save lifecycle: %w", err)
	}
	return r.expectAffected(tag, id)
}

// SetStartDate overwrites the start instant of a mission unconditionally.
func (r *Repository) SetStartDate(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.exec(ctx, "set_start_date", setStartDateSQL, id, at.UTC())
	if err != nil {
		return fmt.Errorf("postgres repository: set start date: %w", err)
	}
	return r.expectAffected(tag, id)
}

// ApplyImportWindowAtomic folds the window into the mission in a single UPDATE.
func (r *Repository) ApplyImportWindowAtomic(ctx context.Context, id int64, window domain.ImportWindow) (domain.Mission, error) {
	return r.queryOneMission(ctx, "apply_window", applyImportWindowSQL, id, nullableTime(window.Min), nullableTime(window.Max))
}

// MarkStartedAtomic sets the start instant only when it is unset on a realtime mission.
func (r *Repository) MarkStartedAtomic(ctx context.Context, id int64, at time.Time) (bool, error) {
	output, err := r.exec(ctx, "mark_started", markStartedSQL, id, at.UTC())
	if err != nil {
		return false, fmt.Errorf("postgres repository: mark started: %w", err)
	}
	return strings.TrimSpace(output) != "", nil
}

// AppendMany stores one record per payload, preserving input order within and across chunks.
func (r *Repository) AppendMany(ctx context.Context, missionID int64, payloads []domain.Payload) (int, error) {
	stored := 0
	for start := 0; start < len(payloads); start += r.insertChunk {
		end := start + r.insertChunk
		if end > len(payloads) {
			end = len(payloads)
		}

		statement, args, err := buildRecordInsert(missionID, payloads[start:end])
		if err != nil {
			return stored, fmt.Errorf("postgres repository: append records: %w", err)
		}

		tag, err := r.exec(ctx, "append_many", statement, args...)
		if err != nil {
			return stored, fmt.Errorf("postgres repository: append records: %w", err)
		}
		affected, err := parseRowsAffected(tag)
		if err != nil {
			return stored, fmt.Errorf("postgres repository: append records result: %w", err)
		}
		stored += int(affected)
	}
	return stored, nil
}

// AppendOne stores a single record and returns its id.
func (r *Repository) AppendOne(ctx context.Context, missionID int64, payload domain.Payload) (int64, error) {
	data, err := marshalPayload(payload)
	if err != nil {
		return 0, fmt.Errorf("postgres repository: append record: %w", err)
	}

	output, err := r.exec(ctx, "append_one", insertRecordSQL, missionID, data)
	if err != nil {
		return 0, fmt.Errorf("postgres repository: append record: %w", err)
	}

	id, err := strconv.ParseInt(strings.TrimSpace(output), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("postgres repository: append record id %q: %w", output, err)
	}
	return id, nil
}

// ListByMission returns the records of a mission ordered by id.
func (r *Repository) ListByMission(ctx context.Context, missionID int64) ([]domain.TelemetryRecord, error) {
	output, err := r.exec(ctx, "list_records", listRecordsSQL, missionID)
	if err != nil {
		return nil, fmt.Errorf("postgres repository: list records: %w", err)
	}
	records, err := parseRecordList(output)
	if err != nil {
		return nil, fmt.Errorf("postgres repository: list records parse: %w", err)
	}
	return records, nil
}

func (r *Repository) queryOneMission(ctx context.Context, op, statement string, args ...any) (domain.Mission, error) {
	output, err := r.exec(ctx, op, statement, args...)
	if err != nil {
		return domain.Mission{}, fmt.Errorf("postgres repository: %s: %w", op, err)
	}
	missions, err := parseMissionList(output)
	if err != nil {
		return domain.Mission{}, fmt.Errorf("postgres repository: %s parse: %w", op, err)
	}
	if len(missions) == 0 {
		return domain.Mission{}, domain.ErrNotFound
	}
	return missions[0], nil
}

func (r *Repository) exec(ctx context.Context, op, statement string, args ...any) (string, error) {
	start := time.Now()
	output, err := r.runner.Exec(ctx, r.dsn, r.password, statement, args...)
	infra.ObserveDBQuery(op, time.Since(start))
	if err != nil && r.logger != nil {
		r.logger.Errorf(ctx, "postgres repository: %s failed statement=%q: %v", op, strings.Join(strings.Fields(statement), " "), err)
	}
	return output, err
}

func (r *Repository) expectAffected(tag string, id int64) error {
	affected, err := parseRowsAffected(tag)
	if err != nil {
		return fmt.Errorf("postgres repository: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("postgres repository: mission %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func buildRecordInsert(missionID int64, payloads []domain.Payload) (string, []any, error) {
	var b strings.Builder
	b.WriteString("INSERT INTO public.mission_records (mission_id, data) VALUES ")

	args := make([]any, 0, len(payloads)+1)
	args = append(args, missionID)
	for i, payload := range payloads {
		data, err := marshalPayload(payload)
		if err != nil {
			return "", nil, fmt.Errorf("payload %d: %w", i, err)
		}
		args = append(args, data)
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "($1, $%d::jsonb)", len(args))
	}
	return b.String(), args, nil
}

func marshalPayload(payload domain.Payload) (string, error) {
	if payload == nil {
		payload = domain.Payload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return string(data), nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func parseRowsAffected(tag string) (int64, error) {
	fields := strings.Fields(strings.TrimSpace(tag))
	if len(fields) == 0 {
		return 0, nil
	}

	switch strings.ToUpper(fields[0]) {
	case "UPDATE", "DELETE":
		if len(fields) < 2 {
			return 0, fmt.Errorf("unexpected command tag %q", tag)
		}
		count, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse rows affected: %w", err)
		}
		return count, nil
	case "INSERT":
		if len(fields) < 3 {
			return 0, fmt.Errorf("unexpected command tag %q", tag)
		}
		count, err := strconv.ParseInt(fields[len(fields)-1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse rows affected: %w", err)
		}
		return count, nil
	default:
		return 0, fmt.Errorf("unsupported command tag %q", tag)
	}
}

func readCSV(output string, columns int, row func([]string) error) error {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return nil
	}

	reader := csv.NewReader(strings.NewReader(trimmed))
	reader.FieldsPerRecord = -1

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("parse csv: %w", err)
		}
		if len(record) < columns {
			return fmt.Errorf("unexpected column count: %d", len(record))
		}
		if err := row(record); err != nil {
			return err
		}
	}
}

func parseMissionList(output string) ([]domain.Mission, error) {
	var results []domain.Mission
	err := readCSV(output, 7, func(record []string) error {
		id, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			return fmt.Errorf("parse id: %w", err)
		}
		start, err := parseOptionalTime(record[2])
		if err != nil {
			return err
		}
		end, err := parseOptionalTime(record[3])
		if err != nil {
			return err
		}
		duration, err := parseOptionalSeconds(record[4])
		if err != nil {
			return err
		}
		realtime, err := strconv.ParseBool(record[5])
		if err != nil {
			return fmt.Errorf("parse is_realtime: %w", err)
		}
		createdAt, err := time.Parse(time.RFC3339Nano, record[6])
		if err != nil {
			return fmt.Errorf("parse created_at: %w", err)
		}

		results = append(results, domain.Mission{
			ID:        id,
			Name:      record[1],
			StartDate: start,
			EndDate:   end,
			Duration:  duration,
			Mode:      domain.ModeFromRealtime(realtime),
			CreatedAt: createdAt.UTC(),
		})
		return nil
	})
	return results, err
}

func parseRecordList(output string) ([]domain.TelemetryRecord, error) {
	results := []domain.TelemetryRecord{}
	err := readCSV(output, 4, func(record []string) error {
		id, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			return fmt.Errorf("parse id: %w", err)
		}
		missionID, err := strconv.ParseInt(record[1], 10, 64)
		if err != nil {
			return fmt.Errorf("parse mission id: %w", err)
		}
		var data domain.Payload
		dec := json.NewDecoder(strings.NewReader(record[2]))
		dec.UseNumber()
		if err := dec.Decode(&data); err != nil {
			return fmt.Errorf("parse data: %w", err)
		}
		createdAt, err := time.Parse(time.RFC3339Nano, record[3])
		if err != nil {
			return fmt.Errorf("parse created_at: %w", err)
		}
		results = append(results, domain.TelemetryRecord{
			ID:        id,
			MissionID: missionID,
			Data:      data,
			CreatedAt: createdAt.UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func parseOptionalTime(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp: %w", err)
	}
	t = t.UTC()
	return &t, nil
}

// parseOptionalSeconds reads EXTRACT(EPOCH FROM interval) output at microsecond precision.
func parseOptionalSeconds(value string) (*time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("parse duration: %w", err)
	}
	d := time.Duration(math.Round(seconds*1e6)) * time.Microsecond
	return &d, nil
}

var _ domain.Repository = (*Repository)(nil)
