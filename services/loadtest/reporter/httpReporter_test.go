package reporter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/iulianpascalau/api-loadtest/services/loadtest/common"
	"github.com/stretchr/testify/require"
)

func createReport() *common.RunReport {
	return &common.RunReport{
		RunID:  "run-1",
		Target: "http://127.0.0.1:3000",
		Cases: []common.CaseResult{
			{
				Name:   "login-sequential",
				Passed: true,
				Aggregate: &common.AggregateResult{
					Average: 123 * time.Millisecond,
					Peak:    456 * time.Millisecond,
					Count:   1000,
				},
			},
			{
				Name:   "resource-usage",
				Passed: false,
				Resource: &common.ResourceAggregate{
					AverageCPULoad: 1.5,
					PeakHeapBytes:  32 * 1024 * 1024,
				},
			},
		},
	}
}

func TestNewHTTPReporter(t *testing.T) {
	t.Parallel()

	rep, err := NewHTTPReporter("", "key", "loadtest", time.Second)
	require.Nil(t, rep)
	require.True(t, rep.IsInterfaceNil())
	require.Error(t, err)

	rep, err = NewHTTPReporter("http://127.0.0.1/api/report", "key", "", time.Second)
	require.Nil(t, rep)
	require.Error(t, err)

	rep, err = NewHTTPReporter("http://127.0.0.1/api/report", "key", "loadtest", time.Second)
	require.NotNil(t, rep)
	require.False(t, rep.IsInterfaceNil())
	require.NoError(t, err)
}

func TestHTTPReporter_Report(t *testing.T) {
	var receivedBody string
	var receivedAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		receivedAuth = r.Header.Get("X-Api-Key")

		buf := new(strings.Builder)
		_, _ = io.Copy(buf, r.Body)
		receivedBody = buf.String()

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	rep, err := NewHTTPReporter(server.URL, "secret123", "LoadTestX", 2*time.Second)
	require.NoError(t, err)

	err = rep.Report(context.Background(), createReport())
	require.NoError(t, err)

	require.Equal(t, "secret123", receivedAuth)

	payload := ReportPayload{}
	require.NoError(t, json.Unmarshal([]byte(receivedBody), &payload))
	require.Equal(t, "true", payload.Metrics["LoadTestX.Active"].Value)
	require.Equal(t, 1, payload.Metrics["LoadTestX.Active"].NumAggregation)
	require.Equal(t, "false", payload.Metrics["LoadTestX.passed"].Value)
	require.Equal(t, "1", payload.Metrics["LoadTestX.failedCases"].Value)
	require.Equal(t, "true", payload.Metrics["LoadTestX.login-sequential.passed"].Value)
	require.Equal(t, "123", payload.Metrics["LoadTestX.login-sequential.averageMs"].Value)
	require.Equal(t, "456", payload.Metrics["LoadTestX.login-sequential.peakMs"].Value)
	require.Equal(t, "1000", payload.Metrics["LoadTestX.login-sequential.requests"].Value)
	require.Equal(t, "1.50", payload.Metrics["LoadTestX.resource-usage.averageCpuLoad"].Value)
	require.Equal(t, "32", payload.Metrics["LoadTestX.resource-usage.peakHeapMB"].Value)
	require.Equal(t, "uint64", payload.Metrics["LoadTestX.resource-usage.peakHeapMB"].Type)
}

func TestHTTPReporter_ReportRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	rep, _ := NewHTTPReporter(server.URL, "wrong", "loadtest", 2*time.Second)
	err := rep.Report(context.Background(), createReport())
	require.Error(t, err)
	require.Contains(t, err.Error(), "401")
}
