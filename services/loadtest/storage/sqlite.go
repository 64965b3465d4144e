package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/iulianpascalau/api-loadtest/services/loadtest/common"
	_ "github.com/mattn/go-sqlite3"
	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("storage")

// ErrRunNotFound signals that the requested run is not stored
var ErrRunNotFound = errors.New("run not found")

// RunSummary is the short form of a stored run
type RunSummary struct {
	RunID       string    `json:"runId"`
	Target      string    `json:"target"`
	StartedAt   time.Time `json:"startedAt"`
	FinishedAt  time.Time `json:"finishedAt"`
	Passed      bool      `json:"passed"`
	NumCases    int       `json:"numCases"`
	NumFailures int       `json:"numFailures"`
}

// sqliteStorage is the sqlite implementation of the run history store
type sqliteStorage struct {
	db      *sql.DB
	maxRuns int
}

// NewSQLiteStorage creates the database and its schema. maxRuns bounds the number of retained runs, 0 means unbounded
func NewSQLiteStorage(dbPath string, maxRuns int) (*sqliteStorage, error) {
	err := prepareDirectories(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create initial empty DB file: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps ":memory:" databases shared across calls
	db.SetMaxOpenConns(1)

	err = createSchema(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &sqliteStorage{
		db:      db,
		maxRuns: maxRuns,
	}, nil
}

func prepareDirectories(dbPath string) error {
	return os.MkdirAll(filepath.Dir(dbPath), os.ModePerm)
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id      TEXT    NOT NULL PRIMARY KEY,
		target      TEXT    NOT NULL,
		started_at  INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		passed      INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS case_results (
		run_id          TEXT    NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
		position        INTEGER NOT NULL,
		name            TEXT    NOT NULL,
		passed          INTEGER NOT NULL,
		duration_ns     INTEGER NOT NULL,
		has_aggregate   INTEGER NOT NULL DEFAULT 0,
		average_ns      INTEGER NOT NULL DEFAULT 0,
		peak_ns         INTEGER NOT NULL DEFAULT 0,
		num_requests    INTEGER NOT NULL DEFAULT 0,
		num_failed      INTEGER NOT NULL DEFAULT 0,
		has_resource    INTEGER NOT NULL DEFAULT 0,
		average_cpu     REAL    NOT NULL DEFAULT 0,
		peak_heap_bytes INTEGER NOT NULL DEFAULT 0,
		num_samples     INTEGER NOT NULL DEFAULT 0,
		failures        TEXT    NOT NULL DEFAULT '[]'
	);

	CREATE INDEX IF NOT EXISTS idx_case_results_run_id ON case_results(run_id);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// SaveRunReport stores the report with all its cases and trims the history to the configured number of runs
func (s *sqliteStorage) SaveRunReport(ctx context.Context, report *common.RunReport) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, target, started_at, finished_at, passed)
		VALUES (?, ?, ?, ?, ?)
	`, report.RunID, report.Target, report.StartedAt.UnixNano(), report.FinishedAt.UnixNano(), report.Passed())
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for i, c := range report.Cases {
		err = insertCase(ctx, tx, report.RunID, i, c)
		if err != nil {
			return err
		}
	}

	if s.maxRuns > 0 {
		_, err = tx.ExecContext(ctx, `
			DELETE FROM runs
			WHERE run_id NOT IN (
				SELECT run_id FROM runs
				ORDER BY started_at DESC
				LIMIT ?
			)
		`, s.maxRuns)
		if err != nil {
			return fmt.Errorf("failed to trim run history: %w", err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return err
	}

	log.Debug("stored run report", "run", report.RunID, "cases", len(report.Cases))

	return nil
}

func insertCase(ctx context.Context, tx *sql.Tx, runID string, position int, c common.CaseResult) error {
	failures := c.Failures
	if failures == nil {
		failures = make([]string, 0)
	}
	failuresJSON, err := json.Marshal(failures)
	if err != nil {
		return fmt.Errorf("failed to marshal case failures: %w", err)
	}

	aggregate := common.AggregateResult{}
	if c.Aggregate != nil {
		aggregate = *c.Aggregate
	}
	resource := common.ResourceAggregate{}
	if c.Resource != nil {
		resource = *c.Resource
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO case_results (
			run_id, position, name, passed, duration_ns,
			has_aggregate, average_ns, peak_ns, num_requests, num_failed,
			has_resource, average_cpu, peak_heap_bytes, num_samples, failures
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, position, c.Name, c.Passed, int64(c.Duration),
		c.Aggregate != nil, int64(aggregate.Average), int64(aggregate.Peak), aggregate.Count, aggregate.Failures,
		c.Resource != nil, resource.AverageCPULoad, int64(resource.PeakHeapBytes), resource.Count, string(failuresJSON))
	if err != nil {
		return fmt.Errorf("failed to insert case %s: %w", c.Name, err)
	}

	return nil
}

// GetRecentRuns returns at most limit runs, newest first
func (s *sqliteStorage) GetRecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.run_id, r.target, r.started_at, r.finished_at, r.passed,
			COUNT(c.name), COALESCE(SUM(CASE WHEN c.passed = 0 THEN 1 ELSE 0 END), 0)
		FROM runs r
		LEFT JOIN case_results c ON c.run_id = r.run_id
		GROUP BY r.run_id
		ORDER BY r.started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	results := make([]RunSummary, 0)
	for rows.Next() {
		var summary RunSummary
		var startedAt, finishedAt int64

		err = rows.Scan(&summary.RunID, &summary.Target, &startedAt, &finishedAt, &summary.Passed,
			&summary.NumCases, &summary.NumFailures)
		if err != nil {
			return nil, err
		}

		summary.StartedAt = time.Unix(0, startedAt)
		summary.FinishedAt = time.Unix(0, finishedAt)
		results = append(results, summary)
	}

	return results, rows.Err()
}

// GetRunReport rebuilds a stored run report
func (s *sqliteStorage) GetRunReport(ctx context.Context, runID string) (*common.RunReport, error) {
	report := &common.RunReport{}
	var startedAt, finishedAt int64

	err := s.db.QueryRowContext(ctx, "SELECT run_id, target, started_at, finished_at FROM runs WHERE run_id = ?", runID).
		Scan(&report.RunID, &report.Target, &startedAt, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	report.StartedAt = time.Unix(0, startedAt)
	report.FinishedAt = time.Unix(0, finishedAt)

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, passed, duration_ns,
			has_aggregate, average_ns, peak_ns, num_requests, num_failed,
			has_resource, average_cpu, peak_heap_bytes, num_samples, failures
		FROM case_results
		WHERE run_id = ?
		ORDER BY position
	`, runID)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		c, errScan := scanCase(rows)
		if errScan != nil {
			return nil, errScan
		}

		report.Cases = append(report.Cases, c)
	}

	return report, rows.Err()
}

func scanCase(rows *sql.Rows) (common.CaseResult, error) {
	var c common.CaseResult
	var durationNs, averageNs, peakNs, peakHeap int64
	var hasAggregate, hasResource bool
	var aggregate common.AggregateResult
	var resource common.ResourceAggregate
	var failuresJSON string

	err := rows.Scan(&c.Name, &c.Passed, &durationNs,
		&hasAggregate, &averageNs, &peakNs, &aggregate.Count, &aggregate.Failures,
		&hasResource, &resource.AverageCPULoad, &peakHeap, &resource.Count, &failuresJSON)
	if err != nil {
		return c, err
	}

	c.Duration = time.Duration(durationNs)
	if hasAggregate {
		aggregate.Average = time.Duration(averageNs)
		aggregate.Peak = time.Duration(peakNs)
		c.Aggregate = &aggregate
	}
	if hasResource {
		resource.PeakHeapBytes = uint64(peakHeap)
		c.Resource = &resource
	}

	err = json.Unmarshal([]byte(failuresJSON), &c.Failures)
	if err != nil {
		return c, fmt.Errorf("failed to decode case failures: %w", err)
	}
	if len(c.Failures) == 0 {
		c.Failures = nil
	}

	return c, nil
}

// Close closes the database
func (s *sqliteStorage) Close() error {
	return s.db.Close()
}

// IsInterfaceNil returns true if the value under the interface is nil
func (s *sqliteStorage) IsInterfaceNil() bool {
	return s == nil
}
