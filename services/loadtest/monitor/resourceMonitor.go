package monitor

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/iulianpascalau/api-loadtest/commonGo"
	"github.com/iulianpascalau/api-loadtest/services/loadtest/common"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
	"github.com/shirou/gopsutil/v4/load"
)

var log = logger.GetOrCreate("monitor")

// ArgsResourceMonitor defines the arguments needed to create a new resource monitor.
// LoadAverage and HeapUsage default to the host load average and the process heap in use
type ArgsResourceMonitor struct {
	Period      time.Duration
	LoadAverage func(ctx context.Context) (float64, error)
	HeapUsage   func() uint64
	Observer    ResourceObserver
}

type resourceMonitor struct {
	period      time.Duration
	loadAverage func(ctx context.Context) (float64, error)
	heapUsage   func() uint64
	observer    ResourceObserver
}

// NewResourceMonitor creates a new resource monitor
func NewResourceMonitor(args ArgsResourceMonitor) (*resourceMonitor, error) {
	if args.Period <= 0 {
		return nil, errInvalidPeriod
	}

	rm := &resourceMonitor{
		period:      args.Period,
		loadAverage: args.LoadAverage,
		heapUsage:   args.HeapUsage,
		observer:    args.Observer,
	}
	if rm.loadAverage == nil {
		rm.loadAverage = hostLoadAverage
	}
	if rm.heapUsage == nil {
		rm.heapUsage = processHeapInUse
	}

	return rm, nil
}

func hostLoadAverage(ctx context.Context) (float64, error) {
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return 0, err
	}

	return avg.Load1, nil
}

func processHeapInUse() uint64 {
	stats := runtime.MemStats{}
	runtime.ReadMemStats(&stats)

	return stats.HeapAlloc
}

// SamplingHandle is returned by Start and owns the sampling go routine
type SamplingHandle struct {
	task    *commonGo.PeriodicTask
	mut     sync.Mutex
	samples []common.ResourceSample
}

// Stop halts the sampling and returns the ordered samples collected so far. Safe to call multiple times
func (h *SamplingHandle) Stop() []common.ResourceSample {
	h.task.Stop()

	h.mut.Lock()
	defer h.mut.Unlock()

	samples := make([]common.ResourceSample, len(h.samples))
	copy(samples, h.samples)

	return samples
}

// Start begins sampling every period on its own go routine
func (rm *resourceMonitor) Start(ctx context.Context) *SamplingHandle {
	handle := &SamplingHandle{}
	handle.task = commonGo.StartPeriodicTask(ctx, func(ctx context.Context) {
		sample := rm.sample(ctx)

		handle.mut.Lock()
		handle.samples = append(handle.samples, sample)
		handle.mut.Unlock()

		if !check.IfNil(rm.observer) {
			rm.observer.ObserveResources(sample)
		}
	}, rm.period)

	return handle
}

func (rm *resourceMonitor) sample(ctx context.Context) common.ResourceSample {
	cpuLoad, err := rm.loadAverage(ctx)
	if err != nil {
		log.Debug("failed to read the load average", "error", err)
	}

	return common.ResourceSample{
		CPULoad1Min:   cpuLoad,
		HeapUsedBytes: rm.heapUsage(),
		SampledAt:     time.Now(),
	}
}

// Monitor samples for the whole window and returns the collected samples. The sampler is always stopped before
// returning, also when the context ends before the window does
func (rm *resourceMonitor) Monitor(ctx context.Context, window time.Duration) ([]common.ResourceSample, error) {
	handle := rm.Start(ctx)
	defer handle.Stop()

	timer := time.NewTimer(window)
	defer timer.Stop()

	select {
	case <-timer.C:
		return handle.Stop(), nil
	case <-ctx.Done():
		return handle.Stop(), ctx.Err()
	}
}

// IsInterfaceNil returns true if the value under the interface is nil
func (rm *resourceMonitor) IsInterfaceNil() bool {
	return rm == nil
}
