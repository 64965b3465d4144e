package suite

import (
	"context"
	"time"

	"github.com/iulianpascalau/api-loadtest/services/loadtest/common"
	"github.com/iulianpascalau/api-loadtest/services/loadtest/stress"
)

// Requester defines the component able to issue a request against the target
type Requester interface {
	Do(ctx context.Context, target common.EndpointTarget) common.Response
	IsInterfaceNil() bool
}

// ReadinessWaiter blocks until the target answers or the retry budget is exhausted
type ReadinessWaiter interface {
	WaitForReady(ctx context.Context) error
	IsInterfaceNil() bool
}

// StressEngine defines the load patterns a case can use
type StressEngine interface {
	RunSequential(ctx context.Context, target common.EndpointTarget, n int) *stress.Result
	RunBatched(ctx context.Context, target common.EndpointTarget, numUsers int, batchSize int, pause time.Duration) *stress.Result
	RunSustained(ctx context.Context, target common.EndpointTarget, width int, duration time.Duration) *stress.Result
	RunSingle(ctx context.Context, target common.EndpointTarget) *stress.Result
	IsInterfaceNil() bool
}

// ResourceMonitor samples host resources for a window
type ResourceMonitor interface {
	Monitor(ctx context.Context, window time.Duration) ([]common.ResourceSample, error)
	IsInterfaceNil() bool
}

// CaseObserver is notified after every executed case
type CaseObserver interface {
	ObserveCase(result common.CaseResult)
	IsInterfaceNil() bool
}
