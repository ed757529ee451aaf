package database

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"
)

// PoolOptions sizes the Postgres pool shared by migrations and the mission repository.
type PoolOptions struct {
	MaxOpen     int
	MaxIdle     int
	IdleTime    time.Duration
	Lifetime    time.Duration
	PingTimeout time.Duration
}

func DefaultPoolOptions() PoolOptions {
	return PoolOptions{
		MaxOpen:     15,
		MaxIdle:     5,
		IdleTime:    5 * time.Minute,
		Lifetime:    time.Hour,
		PingTimeout: 5 * time.Second,
	}
}

// SQLRunner executes mission statements through database/sql, keeping one pool per DSN.
// Row-returning statements come back as CSV with cells encoded by column type, commands as
// a Postgres command tag.
type SQLRunner struct {
	opts PoolOptions

	mu  sync.Mutex
	dbs map[string]*sql.DB
}

func NewSQLRunner() CommandRunner {
	return NewSQLRunnerWithOptions(DefaultPoolOptions())
}

func NewSQLRunnerWithOptions(opts PoolOptions) *SQLRunner {
	return &SQLRunner{opts: opts, dbs: make(map[string]*sql.DB)}
}

// NewSQLRunnerWithDB returns a runner that serves dsn from an already opened handle.
func NewSQLRunnerWithDB(dsn string, db *sql.DB) *SQLRunner {
	runner := NewSQLRunnerWithOptions(DefaultPoolOptions())
	runner.dbs[dsn] = db
	return runner
}

func (r *SQLRunner) Exec(ctx context.Context, dsn, _ string, statement string, args ...any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	query := strings.TrimSpace(statement)
	if query == "" {
		return "", nil
	}

	db, err := r.pool(ctx, dsn)
	if err != nil {
		return "", err
	}

	if returnsRows(query) {
		return queryCSV(ctx, db, query, args...)
	}
	return execTag(ctx, db, query, args...)
}

func (r *SQLRunner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for dsn, db := range r.dbs {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(r.dbs, dsn)
	}
	return firstErr
}

// pool opens the DSN's pool on first use. Opening holds the lock, so a DSN never gets two pools.
func (r *SQLRunner) pool(ctx context.Context, dsn string) (*sql.DB, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if db, ok := r.dbs[dsn]; ok {
		return db, nil
	}
	db, err := openPool(ctx, dsn, r.opts)
	if err != nil {
		return nil, fmt.Errorf("sql runner: %w", err)
	}
	r.dbs[dsn] = db
	return db, nil
}

func openPool(ctx context.Context, dsn string, opts PoolOptions) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	db.SetMaxOpenConns(opts.MaxOpen)
	db.SetMaxIdleConns(opts.MaxIdle)
	db.SetConnMaxIdleTime(opts.IdleTime)
	db.SetConnMaxLifetime(opts.Lifetime)

	pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return db, nil
}

// returnsRows reports whether statement yields a result set: queries, CTEs and any
// INSERT/UPDATE carrying a RETURNING clause.
func returnsRows(statement string) bool {
	words := strings.Fields(strings.ToUpper(statement))
	if len(words) == 0 {
		return false
	}
	switch words[0] {
	case "SELECT", "WITH":
		return true
	}
	return slices.Contains(words[1:], "RETURNING")
}

func queryCSV(ctx context.Context, db *sql.DB, query string, args ...any) (string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return "", err
	}
	encoders := make([]cellEncoder, len(types))
	for i, ct := range types {
		encoders[i] = encoderFor(ct.DatabaseTypeName())
	}

	var b strings.Builder
	writer := csv.NewWriter(&b)
	values := make([]any, len(types))
	targets := make([]any, len(types))
	for i := range values {
		targets[i] = &values[i]
	}
	record := make([]string, len(types))

	for rows.Next() {
		if err := rows.Scan(targets...); err != nil {
			return "", err
		}
		for i, v := range values {
			record[i] = encoders[i](v)
		}
		if err := writer.Write(record); err != nil {
			return "", err
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	writer.Flush()
	return b.String(), writer.Error()
}

func execTag(ctx context.Context, db *sql.DB, query string, args ...any) (string, error) {
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return "", err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return "", err
	}

	verb, _, _ := strings.Cut(query, " ")
	verb = strings.ToUpper(strings.TrimSpace(verb))
	if verb == "INSERT" {
		return "INSERT 0 " + strconv.FormatInt(affected, 10), nil
	}
	return verb + " " + strconv.FormatInt(affected, 10), nil
}

// cellEncoder renders one scanned value in the textual form the repository parsers read.
type cellEncoder func(any) string

// encoderFor picks the encoding for the mission and record columns: timestamps in UTC
// RFC 3339, is_realtime as true/false, epoch seconds without exponent, jsonb verbatim.
func encoderFor(databaseType string) cellEncoder {
	switch strings.ToUpper(databaseType) {
	case "TIMESTAMPTZ", "TIMESTAMP":
		return encodeTimestamp
	case "BOOL":
		return encodeBool
	case "NUMERIC", "FLOAT8", "FLOAT4":
		return encodeNumber
	default:
		return encodeAny
	}
}

func encodeTimestamp(value any) string {
	if t, ok := value.(time.Time); ok {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return encodeAny(value)
}

func encodeBool(value any) string {
	if b, ok := value.(bool); ok {
		return strconv.FormatBool(b)
	}
	return encodeAny(value)
}

func encodeNumber(value any) string {
	if f, ok := value.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return encodeAny(value)
}

func encodeAny(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}

var _ CommandRunner = (*SQLRunner)(nil)
