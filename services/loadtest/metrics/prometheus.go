package metrics

import (
	"net/http"
	"strconv"

	"github.com/iulianpascalau/api-loadtest/services/loadtest/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const failedStatusLabel = "error"

// harnessMetrics holds the collectors fed by the requester, the resource monitor and the suite
type harnessMetrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	cpuLoad         prometheus.Gauge
	heapBytes       prometheus.Gauge
	caseAverage     *prometheus.GaugeVec
	casePassed      *prometheus.GaugeVec
}

// NewHarnessMetrics creates the collectors and registers them on a dedicated registry
func NewHarnessMetrics() *harnessMetrics {
	hm := &harnessMetrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loadtest_requests_total",
				Help: "Total number of requests issued against the target",
			},
			[]string{"endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "loadtest_request_duration_seconds",
				Help:    "Target request duration in seconds, from dispatch until the body was read",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		cpuLoad: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "loadtest_host_load1",
				Help: "Last sampled 1 minute host load average",
			},
		),
		heapBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "loadtest_heap_used_bytes",
				Help: "Last sampled heap in use of the harness process",
			},
		),
		caseAverage: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "loadtest_case_average_latency_seconds",
				Help: "Average latency of the last execution of a case",
			},
			[]string{"case"},
		),
		casePassed: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "loadtest_case_passed",
				Help: "1 if the last execution of a case passed, 0 otherwise",
			},
			[]string{"case"},
		),
	}

	hm.registry.MustRegister(
		hm.requestsTotal,
		hm.requestDuration,
		hm.cpuLoad,
		hm.heapBytes,
		hm.caseAverage,
		hm.casePassed,
	)

	return hm
}

// ObserveRequest records a request outcome
func (hm *harnessMetrics) ObserveRequest(endpoint string, sample common.TimingSample) {
	if !sample.Completed() {
		hm.requestsTotal.WithLabelValues(endpoint, failedStatusLabel).Inc()
		return
	}

	hm.requestsTotal.WithLabelValues(endpoint, strconv.Itoa(sample.StatusCode)).Inc()
	hm.requestDuration.WithLabelValues(endpoint).Observe(sample.Elapsed.Seconds())
}

// ObserveResources records the last resource sample
func (hm *harnessMetrics) ObserveResources(sample common.ResourceSample) {
	hm.cpuLoad.Set(sample.CPULoad1Min)
	hm.heapBytes.Set(float64(sample.HeapUsedBytes))
}

// ObserveCase records the outcome of a case
func (hm *harnessMetrics) ObserveCase(result common.CaseResult) {
	passed := 0.0
	if result.Passed {
		passed = 1
	}
	hm.casePassed.WithLabelValues(result.Name).Set(passed)

	if result.Aggregate != nil {
		hm.caseAverage.WithLabelValues(result.Name).Set(result.Aggregate.Average.Seconds())
	}
}

// Handler returns the HTTP handler exposing the registry
func (hm *harnessMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(hm.registry, promhttp.HandlerOpts{})
}

// IsInterfaceNil returns true if the value under the interface is nil
func (hm *harnessMetrics) IsInterfaceNil() bool {
	return hm == nil
}
