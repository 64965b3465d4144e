package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/iulianpascalau/api-loadtest/services/loadtest/common"
	logger "github.com/multiversx/mx-chain-logger-go"
)

const activeHeartbeatName = "Active"
const separator = "."
const numAggregation = 100

var log = logger.GetOrCreate("reporter")

// ReportPayload is the payload accepted by the metrics aggregation service
type ReportPayload struct {
	Metrics map[string]MetricPayload `json:"metrics"`
}

// MetricPayload defines a recorded metric value
type MetricPayload struct {
	Value          string `json:"value"`
	Type           string `json:"type"`
	NumAggregation int    `json:"numAggregation"`
}

type httpReporter struct {
	endpoint string
	apiKey   string
	name     string
	client   *http.Client
}

// NewHTTPReporter creates a new reporter that pushes run outcomes to the configured endpoint
func NewHTTPReporter(endpoint, apiKey, name string, timeout time.Duration) (*httpReporter, error) {
	if len(endpoint) == 0 {
		return nil, errors.New("empty report endpoint")
	}
	if len(name) == 0 {
		return nil, errors.New("empty report name")
	}

	return &httpReporter{
		endpoint: endpoint,
		apiKey:   apiKey,
		name:     name,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Report converts every case of the run into metrics and sends them in one request
func (r *httpReporter) Report(ctx context.Context, report *common.RunReport) error {
	payload := r.createPayload(report)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal report payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create report request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("network error sending report: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server rejected report with status code: %d", resp.StatusCode)
	}

	log.Debug("successfully sent run report", "endpoint", r.endpoint, "metrics_count", len(payload.Metrics))

	return nil
}

func (r *httpReporter) createPayload(report *common.RunReport) ReportPayload {
	payload := ReportPayload{
		Metrics: make(map[string]MetricPayload),
	}

	r.add(payload, "passed", "bool", strconv.FormatBool(report.Passed()))
	r.add(payload, "failedCases", "uint64", strconv.Itoa(report.NumFailed()))

	for _, c := range report.Cases {
		r.add(payload, c.Name+separator+"passed", "bool", strconv.FormatBool(c.Passed))
		if c.Aggregate != nil {
			r.add(payload, c.Name+separator+"averageMs", "uint64", strconv.FormatInt(c.Aggregate.Average.Milliseconds(), 10))
			r.add(payload, c.Name+separator+"peakMs", "uint64", strconv.FormatInt(c.Aggregate.Peak.Milliseconds(), 10))
			r.add(payload, c.Name+separator+"requests", "uint64", strconv.Itoa(c.Aggregate.Count))
		}
		if c.Resource != nil {
			r.add(payload, c.Name+separator+"averageCpuLoad", "string", strconv.FormatFloat(c.Resource.AverageCPULoad, 'f', 2, 64))
			r.add(payload, c.Name+separator+"peakHeapMB", "uint64", strconv.FormatUint(uint64(c.Resource.PeakHeapMB()), 10))
		}
	}

	// heartbeat, recorded only once per run
	payload.Metrics[r.name+separator+activeHeartbeatName] = MetricPayload{
		Value:          "true",
		Type:           "bool",
		NumAggregation: 1,
	}

	return payload
}

func (r *httpReporter) add(payload ReportPayload, name string, metricType string, value string) {
	payload.Metrics[r.name+separator+name] = MetricPayload{
		Value:          value,
		Type:           metricType,
		NumAggregation: numAggregation,
	}
}

// IsInterfaceNil returns true if the value under the interface is nil
func (r *httpReporter) IsInterfaceNil() bool {
	return r == nil
}
