package common

import (
	"time"
)

// EndpointTarget defines a single request shape issued against the target API
type EndpointTarget struct {
	Name             string
	Method           string
	Path             string
	Query            map[string]string
	Headers          map[string]string
	Body             func() interface{}
	ExpectedStatuses []int
}

// Accepts returns true if the status code is in the accepted set of the endpoint
func (et EndpointTarget) Accepts(statusCode int) bool {
	for _, expected := range et.ExpectedStatuses {
		if expected == statusCode {
			return true
		}
	}

	return false
}

// TimingSample holds the outcome of one outgoing request
type TimingSample struct {
	StartedAt  time.Time
	Elapsed    time.Duration
	StatusCode int
	Err        error
}

// Completed returns true if a response was received
func (ts TimingSample) Completed() bool {
	return ts.Err == nil
}

// Response is a fully read target response together with its timing
type Response struct {
	Sample TimingSample
	Body   []byte
}

// AggregateResult is the latency aggregate of a case
type AggregateResult struct {
	Average  time.Duration `json:"average"`
	Peak     time.Duration `json:"peak"`
	Count    int           `json:"count"`
	Failures int           `json:"failures"`
}

// ResourceSample is a single host resource observation
type ResourceSample struct {
	CPULoad1Min   float64
	HeapUsedBytes uint64
	SampledAt     time.Time
}

// ResourceAggregate is the aggregate of a monitoring window
type ResourceAggregate struct {
	AverageCPULoad float64 `json:"averageCpuLoad"`
	PeakHeapBytes  uint64  `json:"peakHeapBytes"`
	Count          int     `json:"count"`
}

// PeakHeapMB returns the peak heap usage in megabytes
func (ra ResourceAggregate) PeakHeapMB() float64 {
	return float64(ra.PeakHeapBytes) / 1024 / 1024
}

// CaseResult is the outcome of a single test case
type CaseResult struct {
	Name      string             `json:"name"`
	Passed    bool               `json:"passed"`
	Aggregate *AggregateResult   `json:"aggregate,omitempty"`
	Resource  *ResourceAggregate `json:"resource,omitempty"`
	Failures  []string           `json:"failures,omitempty"`
	Duration  time.Duration      `json:"duration"`
}

// RunReport is the outcome of a full harness run
type RunReport struct {
	RunID      string       `json:"runId"`
	Target     string       `json:"target"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt"`
	Cases      []CaseResult `json:"cases"`
}

// Passed returns true if every case of the run passed
func (rr *RunReport) Passed() bool {
	for _, c := range rr.Cases {
		if !c.Passed {
			return false
		}
	}

	return true
}

// NumFailed returns the number of failed cases
func (rr *RunReport) NumFailed() int {
	numFailed := 0
	for _, c := range rr.Cases {
		if !c.Passed {
			numFailed++
		}
	}

	return numFailed
}
