package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/iulianpascalau/api-loadtest/services/loadtest/common"
	"github.com/stretchr/testify/require"
)

func createReport(runID string, startedAt time.Time) *common.RunReport {
	return &common.RunReport{
		RunID:      runID,
		Target:     "http://127.0.0.1:3000",
		StartedAt:  startedAt,
		FinishedAt: startedAt.Add(time.Minute),
		Cases: []common.CaseResult{
			{
				Name:   "login-sequential",
				Passed: true,
				Aggregate: &common.AggregateResult{
					Average: 120 * time.Millisecond,
					Peak:    400 * time.Millisecond,
					Count:   1000,
				},
				Duration: 2 * time.Minute,
			},
			{
				Name:     "invalid-auth",
				Passed:   false,
				Failures: []string{"endpoint invalid-auth average latency 150ms exceeded the threshold of 100ms"},
				Aggregate: &common.AggregateResult{
					Average: 150 * time.Millisecond,
					Peak:    150 * time.Millisecond,
					Count:   1,
				},
				Duration: 150 * time.Millisecond,
			},
			{
				Name:   "resource-usage",
				Passed: true,
				Resource: &common.ResourceAggregate{
					AverageCPULoad: 1.25,
					PeakHeapBytes:  64 * 1024 * 1024,
					Count:          30,
				},
				Duration: 30 * time.Second,
			},
		},
	}
}

func TestSQLiteStorage_SaveAndGet(t *testing.T) {
	s, err := NewSQLiteStorage(":memory:", 0)
	require.NoError(t, err)
	require.False(t, s.IsInterfaceNil())
	defer func() {
		_ = s.Close()
	}()

	ctx := context.Background()
	startedAt := time.Unix(1700000000, 0)
	report := createReport("run-1", startedAt)

	err = s.SaveRunReport(ctx, report)
	require.NoError(t, err)

	// duplicated run IDs are rejected
	err = s.SaveRunReport(ctx, report)
	require.Error(t, err)

	stored, err := s.GetRunReport(ctx, "run-1")
	require.NoError(t, err)
	require.Equal(t, report.RunID, stored.RunID)
	require.Equal(t, report.Target, stored.Target)
	require.True(t, report.StartedAt.Equal(stored.StartedAt))
	require.True(t, report.FinishedAt.Equal(stored.FinishedAt))
	require.Equal(t, report.Cases, stored.Cases)

	runs, err := s.GetRecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, "run-1", runs[0].RunID)
	require.False(t, runs[0].Passed)
	require.Equal(t, 3, runs[0].NumCases)
	require.Equal(t, 1, runs[0].NumFailures)

	_, err = s.GetRunReport(ctx, "missing")
	require.Equal(t, ErrRunNotFound, err)
}

func TestSQLiteStorage_TrimsHistory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "db", "runs.db")
	s, err := NewSQLiteStorage(dbPath, 3)
	require.NoError(t, err)
	defer func() {
		_ = s.Close()
	}()

	ctx := context.Background()
	startedAt := time.Unix(1700000000, 0)
	for i := 0; i < 5; i++ {
		err = s.SaveRunReport(ctx, createReport(fmt.Sprintf("run-%d", i), startedAt.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
	}

	runs, err := s.GetRecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	require.Equal(t, "run-4", runs[0].RunID)
	require.Equal(t, "run-3", runs[1].RunID)
	require.Equal(t, "run-2", runs[2].RunID)

	_, err = s.GetRunReport(ctx, "run-0")
	require.Equal(t, ErrRunNotFound, err)
}
