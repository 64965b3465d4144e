package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// ReadinessConfig defines how the target's readiness endpoint is polled before any case runs
type ReadinessConfig struct {
	Path             string `toml:"Path"`
	Attempts         uint32 `toml:"Attempts"`
	IntervalInMillis uint32 `toml:"IntervalInMillis"`
}

// Interval returns the spacing between two readiness attempts
func (c ReadinessConfig) Interval() time.Duration {
	return time.Duration(c.IntervalInMillis) * time.Millisecond
}

// SequentialCaseConfig defines a case issuing requests one at a time
type SequentialCaseConfig struct {
	Enabled                   bool   `toml:"Enabled"`
	Iterations                int    `toml:"Iterations"`
	MaxAverageLatencyInMillis uint32 `toml:"MaxAverageLatencyInMillis"`
}

// MaxAverageLatency returns the mean latency ceiling
func (c SequentialCaseConfig) MaxAverageLatency() time.Duration {
	return time.Duration(c.MaxAverageLatencyInMillis) * time.Millisecond
}

// BatchedCaseConfig defines a case dispatching virtual users in jointly awaited batches
type BatchedCaseConfig struct {
	Enabled                     bool   `toml:"Enabled"`
	VirtualUsers                int    `toml:"VirtualUsers"`
	BatchSize                   int    `toml:"BatchSize"`
	PauseBetweenBatchesInMillis uint32 `toml:"PauseBetweenBatchesInMillis"`
	MaxAverageLatencyInMillis   uint32 `toml:"MaxAverageLatencyInMillis"`
}

// PauseBetweenBatches returns the wait applied after each batch settles
func (c BatchedCaseConfig) PauseBetweenBatches() time.Duration {
	return time.Duration(c.PauseBetweenBatchesInMillis) * time.Millisecond
}

// MaxAverageLatency returns the mean latency ceiling
func (c BatchedCaseConfig) MaxAverageLatency() time.Duration {
	return time.Duration(c.MaxAverageLatencyInMillis) * time.Millisecond
}

// SustainedCaseConfig defines a case bounded by wall-clock duration instead of iteration count
type SustainedCaseConfig struct {
	Enabled                   bool   `toml:"Enabled"`
	BatchWidth                int    `toml:"BatchWidth"`
	DurationInSeconds         uint32 `toml:"DurationInSeconds"`
	MaxAverageLatencyInMillis uint32 `toml:"MaxAverageLatencyInMillis"`
}

// Duration returns the wall-clock bound of the case
func (c SustainedCaseConfig) Duration() time.Duration {
	return time.Duration(c.DurationInSeconds) * time.Second
}

// MaxAverageLatency returns the mean latency ceiling
func (c SustainedCaseConfig) MaxAverageLatency() time.Duration {
	return time.Duration(c.MaxAverageLatencyInMillis) * time.Millisecond
}

// SingleCaseConfig defines a single request case, usually an error path
type SingleCaseConfig struct {
	Enabled            bool   `toml:"Enabled"`
	MaxLatencyInMillis uint32 `toml:"MaxLatencyInMillis"`
}

// MaxLatency returns the latency ceiling of the single request
func (c SingleCaseConfig) MaxLatency() time.Duration {
	return time.Duration(c.MaxLatencyInMillis) * time.Millisecond
}

// ResourceCaseConfig defines the host resource sampling window
type ResourceCaseConfig struct {
	Enabled                bool    `toml:"Enabled"`
	SampleIntervalInMillis uint32  `toml:"SampleIntervalInMillis"`
	WindowInSeconds        uint32  `toml:"WindowInSeconds"`
	MaxAverageCPULoad      float64 `toml:"MaxAverageCPULoad"`
	MaxPeakHeapInMB        float64 `toml:"MaxPeakHeapInMB"`
}

// SampleInterval returns the sampling period
func (c ResourceCaseConfig) SampleInterval() time.Duration {
	return time.Duration(c.SampleIntervalInMillis) * time.Millisecond
}

// Window returns the monitoring window
func (c ResourceCaseConfig) Window() time.Duration {
	return time.Duration(c.WindowInSeconds) * time.Second
}

// CasesConfig groups the configuration of every case the suite knows about
type CasesConfig struct {
	LoginSequential    SequentialCaseConfig `toml:"LoginSequential"`
	LoginConcurrent    BatchedCaseConfig    `toml:"LoginConcurrent"`
	LoginSustained     SustainedCaseConfig  `toml:"LoginSustained"`
	InvalidLogin       SingleCaseConfig     `toml:"InvalidLogin"`
	InvalidAuth        SingleCaseConfig     `toml:"InvalidAuth"`
	ValidAuth          SingleCaseConfig     `toml:"ValidAuth"`
	FeedbackConcurrent BatchedCaseConfig    `toml:"FeedbackConcurrent"`
	ResourceUsage      ResourceCaseConfig   `toml:"ResourceUsage"`
}

// MockConfig defines the stand-in target API started with the mock-target flag
type MockConfig struct {
	ListenAddress     string  `toml:"ListenAddress"`
	RequestsPerSecond float64 `toml:"RequestsPerSecond"`
	Burst             int     `toml:"Burst"`
	TokenTTLInSeconds uint32  `toml:"TokenTTLInSeconds"`
}

// Config maps to the config.toml file for the load test harness
type Config struct {
	TargetURL               string          `toml:"TargetURL"`
	RequestTimeoutInSeconds uint32          `toml:"RequestTimeoutInSeconds"`
	RunTimeoutInMinutes     uint32          `toml:"RunTimeoutInMinutes"`
	GracePeriodInMillis     uint32          `toml:"GracePeriodInMillis"`
	ResultsDatabasePath     string          `toml:"ResultsDatabasePath"`
	ReportEndpoint          string          `toml:"ReportEndpoint"`
	ReportName              string          `toml:"ReportName"`
	ReportTimeoutInSeconds  uint32          `toml:"ReportTimeoutInSeconds"`
	MetricsListenAddress    string          `toml:"MetricsListenAddress"`
	Readiness               ReadinessConfig `toml:"Readiness"`
	Cases                   CasesConfig     `toml:"Cases"`
	Mock                    MockConfig      `toml:"Mock"`
}

// RequestTimeout returns the per request timeout enforced by the HTTP client
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutInSeconds) * time.Second
}

// RunTimeout returns the wall-clock ceiling of a whole run
func (c Config) RunTimeout() time.Duration {
	return time.Duration(c.RunTimeoutInMinutes) * time.Minute
}

// GracePeriod returns the wait applied after the last case
func (c Config) GracePeriod() time.Duration {
	return time.Duration(c.GracePeriodInMillis) * time.Millisecond
}

// ReportTimeout returns the timeout used when pushing a run report
func (c Config) ReportTimeout() time.Duration {
	return time.Duration(c.ReportTimeoutInSeconds) * time.Second
}

// DefaultConfig returns the configuration matching the reference deployment thresholds
func DefaultConfig() Config {
	return Config{
		TargetURL:               "http://127.0.0.1:3000",
		RequestTimeoutInSeconds: 30,
		RunTimeoutInMinutes:     30,
		GracePeriodInMillis:     1000,
		ReportName:              "loadtest",
		ReportTimeoutInSeconds:  10,
		Readiness: ReadinessConfig{
			Path:             "/status",
			Attempts:         5,
			IntervalInMillis: 1000,
		},
		Cases: CasesConfig{
			LoginSequential: SequentialCaseConfig{
				Enabled:                   true,
				Iterations:                1000,
				MaxAverageLatencyInMillis: 500,
			},
			LoginConcurrent: BatchedCaseConfig{
				Enabled:                   true,
				VirtualUsers:              1000,
				BatchSize:                 50,
				MaxAverageLatencyInMillis: 1000,
			},
			LoginSustained: SustainedCaseConfig{
				Enabled:                   true,
				BatchWidth:                10,
				DurationInSeconds:         300,
				MaxAverageLatencyInMillis: 1000,
			},
			InvalidLogin: SingleCaseConfig{
				Enabled:            true,
				MaxLatencyInMillis: 200,
			},
			InvalidAuth: SingleCaseConfig{
				Enabled:            true,
				MaxLatencyInMillis: 100,
			},
			ValidAuth: SingleCaseConfig{
				Enabled:            true,
				MaxLatencyInMillis: 1000,
			},
			FeedbackConcurrent: BatchedCaseConfig{
				Enabled:                     true,
				VirtualUsers:                1000,
				BatchSize:                   50,
				PauseBetweenBatchesInMillis: 1000,
				MaxAverageLatencyInMillis:   2000,
			},
			ResourceUsage: ResourceCaseConfig{
				Enabled:                true,
				SampleIntervalInMillis: 1000,
				WindowInSeconds:        30,
				MaxAverageCPULoad:      80,
				MaxPeakHeapInMB:        1024,
			},
		},
		Mock: MockConfig{
			ListenAddress:     "127.0.0.1:3000",
			RequestsPerSecond: 500,
			Burst:             100,
			TokenTTLInSeconds: 3600,
		},
	}
}

// LoadConfig parses a TOML file on top of the default configuration. Keys missing from the file keep their defaults
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", filepath, err)
	}

	cfg := DefaultConfig()
	err = toml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the values the harness can not run without
func (c Config) Validate() error {
	if len(c.TargetURL) == 0 {
		return errEmptyTargetURL
	}
	if c.Readiness.Attempts == 0 {
		return fmt.Errorf("%w: Readiness.Attempts", errInvalidValue)
	}
	if c.Cases.LoginSequential.Enabled && c.Cases.LoginSequential.Iterations <= 0 {
		return fmt.Errorf("%w: Cases.LoginSequential.Iterations", errInvalidValue)
	}
	err := c.Cases.LoginConcurrent.validate("LoginConcurrent")
	if err != nil {
		return err
	}
	err = c.Cases.FeedbackConcurrent.validate("FeedbackConcurrent")
	if err != nil {
		return err
	}
	if c.Cases.LoginSustained.Enabled && c.Cases.LoginSustained.BatchWidth <= 0 {
		return fmt.Errorf("%w: Cases.LoginSustained.BatchWidth", errInvalidValue)
	}
	if c.Cases.LoginSustained.Enabled && c.Cases.LoginSustained.DurationInSeconds == 0 {
		return fmt.Errorf("%w: Cases.LoginSustained.DurationInSeconds", errInvalidValue)
	}
	if c.Cases.ResourceUsage.Enabled && c.Cases.ResourceUsage.SampleIntervalInMillis == 0 {
		return fmt.Errorf("%w: Cases.ResourceUsage.SampleIntervalInMillis", errInvalidValue)
	}
	if c.Cases.ResourceUsage.Enabled && c.Cases.ResourceUsage.WindowInSeconds == 0 {
		return fmt.Errorf("%w: Cases.ResourceUsage.WindowInSeconds", errInvalidValue)
	}

	return nil
}

func (c BatchedCaseConfig) validate(name string) error {
	if !c.Enabled {
		return nil
	}
	if c.VirtualUsers <= 0 {
		return fmt.Errorf("%w: Cases.%s.VirtualUsers", errInvalidValue, name)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: Cases.%s.BatchSize", errInvalidValue, name)
	}

	return nil
}
