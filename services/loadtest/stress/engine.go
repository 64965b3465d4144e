package stress

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iulianpascalau/api-loadtest/services/loadtest/common"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("stress")

// Result holds every sample of an operation in dispatch order
type Result struct {
	Samples     []common.TimingSample
	Interrupted error
}

// Aggregate returns the latency aggregate of the result
func (r *Result) Aggregate() common.AggregateResult {
	return common.Aggregate(r.Samples)
}

// stressEngine issues the load patterns against the target
type stressEngine struct {
	requester Requester
}

// NewStressEngine creates a new engine instance
func NewStressEngine(requester Requester) (*stressEngine, error) {
	if check.IfNil(requester) {
		return nil, errNilRequester
	}

	return &stressEngine{
		requester: requester,
	}, nil
}

// RunSequential issues n requests one at a time
func (e *stressEngine) RunSequential(ctx context.Context, target common.EndpointTarget, n int) *Result {
	result := &Result{
		Samples: make([]common.TimingSample, 0, n),
	}

	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			result.Interrupted = ctx.Err()
			break
		}

		resp := e.requester.Do(ctx, target)
		result.Samples = append(result.Samples, resp.Sample)
	}

	log.Debug("sequential run done", "endpoint", target.Name, "requests", len(result.Samples))

	return result
}

// RunBatched dispatches numUsers virtual users in ceil(numUsers/batchSize) batches. All the requests of a batch are
// in flight at the same time and the next batch starts only after the whole batch settled and the pause elapsed
func (e *stressEngine) RunBatched(ctx context.Context, target common.EndpointTarget, numUsers int, batchSize int, pause time.Duration) *Result {
	result := &Result{
		Samples: make([]common.TimingSample, 0, numUsers),
	}
	if batchSize <= 0 || numUsers <= 0 {
		return result
	}

	numBatches := (numUsers + batchSize - 1) / batchSize
	for i := 0; i < numBatches; i++ {
		if ctx.Err() != nil {
			result.Interrupted = ctx.Err()
			break
		}

		width := batchSize
		remaining := numUsers - i*batchSize
		if remaining < width {
			width = remaining
		}

		result.Samples = append(result.Samples, e.dispatchBatch(ctx, target, width)...)
		log.Trace("batch settled", "endpoint", target.Name, "batch", i+1, "of", numBatches, "width", width)

		if pause <= 0 || i == numBatches-1 {
			continue
		}

		select {
		case <-ctx.Done():
		case <-time.After(pause):
		}
	}

	log.Debug("batched run done", "endpoint", target.Name, "requests", len(result.Samples), "batch size", batchSize)

	return result
}

// RunSustained dispatches batches of the provided width until the duration elapses. The duration is checked
// before every batch, a dispatched batch is always awaited
func (e *stressEngine) RunSustained(ctx context.Context, target common.EndpointTarget, width int, duration time.Duration) *Result {
	result := &Result{}
	if width <= 0 {
		return result
	}

	start := time.Now()
	numBatches := 0
	for time.Since(start) < duration {
		if ctx.Err() != nil {
			result.Interrupted = ctx.Err()
			break
		}

		result.Samples = append(result.Samples, e.dispatchBatch(ctx, target, width)...)
		numBatches++
	}

	log.Debug("sustained run done", "endpoint", target.Name, "requests", len(result.Samples),
		"batches", numBatches, "elapsed", time.Since(start))

	return result
}

// RunSingle issues exactly one request
func (e *stressEngine) RunSingle(ctx context.Context, target common.EndpointTarget) *Result {
	resp := e.requester.Do(ctx, target)

	return &Result{
		Samples: []common.TimingSample{resp.Sample},
	}
}

func (e *stressEngine) dispatchBatch(ctx context.Context, target common.EndpointTarget, width int) []common.TimingSample {
	batch := make([]common.TimingSample, width)

	var wg sync.WaitGroup
	wg.Add(width)
	for i := 0; i < width; i++ {
		go func(slot int) {
			defer wg.Done()

			batch[slot] = e.requester.Do(ctx, target).Sample
		}(i)
	}
	wg.Wait()

	return batch
}

// Evaluate checks every sample status against the target's accepted set and the mean latency of the
// completed samples against the provided ceiling. A zero ceiling disables the latency check
func Evaluate(target common.EndpointTarget, result *Result, maxAverage time.Duration) []error {
	errs := make([]error, 0)
	if result.Interrupted != nil {
		errs = append(errs, &errInterrupted{cause: result.Interrupted})
	}

	unexpected := make(map[int]int)
	var failed *errRequestsFailed
	for _, s := range result.Samples {
		if !s.Completed() {
			if failed == nil {
				failed = &errRequestsFailed{endpoint: target.Name, first: s.Err}
			}
			failed.count++
			continue
		}
		if !target.Accepts(s.StatusCode) {
			unexpected[s.StatusCode]++
		}
	}
	if failed != nil {
		errs = append(errs, failed)
	}

	statuses := make([]int, 0, len(unexpected))
	for status := range unexpected {
		statuses = append(statuses, status)
	}
	sort.Ints(statuses)
	for _, status := range statuses {
		errs = append(errs, &errUnexpectedStatus{
			endpoint: target.Name,
			status:   status,
			expected: target.ExpectedStatuses,
			count:    unexpected[status],
		})
	}

	aggregate := result.Aggregate()
	if aggregate.Count == 0 {
		return append(errs, errNoSamples)
	}
	if maxAverage > 0 && aggregate.Average >= maxAverage {
		errs = append(errs, &errThresholdExceeded{
			endpoint: target.Name,
			actual:   aggregate.Average,
			limit:    maxAverage,
		})
	}

	return errs
}

// IsInterfaceNil returns true if the value under the interface is nil
func (e *stressEngine) IsInterfaceNil() bool {
	return e == nil
}
