package readiness

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/iulianpascalau/api-loadtest/services/loadtest/common"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
)

const statusEndpointName = "status"

var log = logger.GetOrCreate("readiness")

// ArgsReadinessWaiter defines the arguments needed to create a new readiness waiter
type ArgsReadinessWaiter struct {
	Requester Requester
	Path      string
	Attempts  uint32
	Interval  time.Duration
}

type readinessWaiter struct {
	requester Requester
	target    common.EndpointTarget
	attempts  uint32
	interval  time.Duration
}

// NewReadinessWaiter creates a new readiness waiter
func NewReadinessWaiter(args ArgsReadinessWaiter) (*readinessWaiter, error) {
	if check.IfNil(args.Requester) {
		return nil, errNilRequester
	}
	if args.Attempts == 0 {
		return nil, errInvalidAttempts
	}

	return &readinessWaiter{
		requester: args.Requester,
		target: common.EndpointTarget{
			Name:   statusEndpointName,
			Method: http.MethodGet,
			Path:   args.Path,
		},
		attempts: args.Attempts,
		interval: args.Interval,
	}, nil
}

// WaitForReady polls the status endpoint until the target answers. Any HTTP response counts as ready, only
// transport failures consume the retry budget. Returns ErrServerNotReady once the budget is exhausted
func (rw *readinessWaiter) WaitForReady(ctx context.Context) error {
	var lastErr error
	for attempt := uint32(1); attempt <= rw.attempts; attempt++ {
		resp := rw.requester.Do(ctx, rw.target)
		if resp.Sample.Completed() {
			log.Debug("target is ready", "attempt", attempt, "status", resp.Sample.StatusCode)
			return nil
		}

		lastErr = resp.Sample.Err
		log.Debug("target not ready", "attempt", attempt, "max attempts", rw.attempts, "error", lastErr)
		if attempt == rw.attempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s", ErrServerNotReady, ctx.Err().Error())
		case <-time.After(rw.interval):
		}
	}

	return fmt.Errorf("%w after %d attempts: %v", ErrServerNotReady, rw.attempts, lastErr)
}

// IsInterfaceNil returns true if the value under the interface is nil
func (rw *readinessWaiter) IsInterfaceNil() bool {
	return rw == nil
}
