package stress

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iulianpascalau/api-loadtest/services/loadtest/common"
	"github.com/iulianpascalau/api-loadtest/services/loadtest/testsCommon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var loginTarget = common.EndpointTarget{
	Name:             "login",
	Method:           http.MethodGet,
	Path:             "/login/",
	ExpectedStatuses: []int{http.StatusOK, http.StatusTooManyRequests},
}

func okResponse(elapsed time.Duration) common.Response {
	return common.Response{
		Sample: common.TimingSample{
			StartedAt:  time.Now(),
			Elapsed:    elapsed,
			StatusCode: http.StatusOK,
		},
	}
}

func TestNewStressEngine(t *testing.T) {
	t.Parallel()

	t.Run("nil requester should error", func(t *testing.T) {
		engine, err := NewStressEngine(nil)

		assert.Nil(t, engine)
		assert.True(t, engine.IsInterfaceNil())
		assert.Equal(t, errNilRequester, err)
	})
	t.Run("should work", func(t *testing.T) {
		engine, err := NewStressEngine(&testsCommon.RequesterStub{})

		assert.NotNil(t, engine)
		assert.False(t, engine.IsInterfaceNil())
		assert.Nil(t, err)
	})
}

func TestStressEngine_RunSequential(t *testing.T) {
	t.Parallel()

	t.Run("requests are issued one at a time", func(t *testing.T) {
		t.Parallel()

		inFlight := int32(0)
		maxInFlight := int32(0)
		engine, _ := NewStressEngine(&testsCommon.RequesterStub{
			DoHandler: func(ctx context.Context, target common.EndpointTarget) common.Response {
				current := atomic.AddInt32(&inFlight, 1)
				if current > atomic.LoadInt32(&maxInFlight) {
					atomic.StoreInt32(&maxInFlight, current)
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inFlight, -1)

				return okResponse(10 * time.Millisecond)
			},
		})

		result := engine.RunSequential(context.Background(), loginTarget, 20)
		require.Len(t, result.Samples, 20)
		assert.Nil(t, result.Interrupted)
		assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight))
		assert.Equal(t, 10*time.Millisecond, result.Aggregate().Average)
		assert.Empty(t, Evaluate(loginTarget, result, 500*time.Millisecond))
	})
	t.Run("cancelled context interrupts the run", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		numCalls := 0
		engine, _ := NewStressEngine(&testsCommon.RequesterStub{
			DoHandler: func(ctx context.Context, target common.EndpointTarget) common.Response {
				numCalls++
				if numCalls == 3 {
					cancel()
				}
				return okResponse(time.Millisecond)
			},
		})

		result := engine.RunSequential(ctx, loginTarget, 10)
		assert.Len(t, result.Samples, 3)
		assert.ErrorIs(t, result.Interrupted, context.Canceled)

		errs := Evaluate(loginTarget, result, time.Second)
		require.Len(t, errs, 1)
		assert.ErrorIs(t, errs[0], context.Canceled)
	})
}

func TestStressEngine_RunBatched(t *testing.T) {
	t.Parallel()

	t.Run("batches are awaited before the next one starts", func(t *testing.T) {
		t.Parallel()

		var mut sync.Mutex
		inFlight := 0
		maxInFlight := 0
		engine, _ := NewStressEngine(&testsCommon.RequesterStub{
			DoHandler: func(ctx context.Context, target common.EndpointTarget) common.Response {
				mut.Lock()
				inFlight++
				if inFlight > maxInFlight {
					maxInFlight = inFlight
				}
				mut.Unlock()

				time.Sleep(20 * time.Millisecond)

				mut.Lock()
				inFlight--
				mut.Unlock()

				return okResponse(20 * time.Millisecond)
			},
		})

		result := engine.RunBatched(context.Background(), loginTarget, 23, 5, 0)
		assert.Len(t, result.Samples, 23)
		assert.Equal(t, 5, maxInFlight)
		assert.Empty(t, Evaluate(loginTarget, result, time.Second))
	})
	t.Run("last batch holds the remainder", func(t *testing.T) {
		t.Parallel()

		numCalls := int32(0)
		engine, _ := NewStressEngine(&testsCommon.RequesterStub{
			DoHandler: func(ctx context.Context, target common.EndpointTarget) common.Response {
				atomic.AddInt32(&numCalls, 1)
				return okResponse(time.Millisecond)
			},
		})

		result := engine.RunBatched(context.Background(), loginTarget, 1000, 50, 0)
		assert.Len(t, result.Samples, 1000)
		assert.Equal(t, int32(1000), atomic.LoadInt32(&numCalls))

		result = engine.RunBatched(context.Background(), loginTarget, 7, 50, 0)
		assert.Len(t, result.Samples, 7)
	})
	t.Run("pause is applied between batches", func(t *testing.T) {
		t.Parallel()

		engine, _ := NewStressEngine(&testsCommon.RequesterStub{})

		start := time.Now()
		result := engine.RunBatched(context.Background(), loginTarget, 6, 2, 30*time.Millisecond)
		elapsed := time.Since(start)

		assert.Len(t, result.Samples, 6)
		// 3 batches, 2 pauses
		assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
	})
	t.Run("invalid sizes yield an empty result", func(t *testing.T) {
		t.Parallel()

		engine, _ := NewStressEngine(&testsCommon.RequesterStub{})

		result := engine.RunBatched(context.Background(), loginTarget, 10, 0, 0)
		assert.Empty(t, result.Samples)

		errs := Evaluate(loginTarget, result, time.Second)
		require.Len(t, errs, 1)
		assert.Equal(t, errNoSamples, errs[0])
	})
}

func TestStressEngine_RunSustained(t *testing.T) {
	t.Parallel()

	numCalls := int32(0)
	engine, _ := NewStressEngine(&testsCommon.RequesterStub{
		DoHandler: func(ctx context.Context, target common.EndpointTarget) common.Response {
			atomic.AddInt32(&numCalls, 1)
			time.Sleep(10 * time.Millisecond)
			return okResponse(10 * time.Millisecond)
		},
	})

	start := time.Now()
	result := engine.RunSustained(context.Background(), loginTarget, 10, 100*time.Millisecond)
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.True(t, len(result.Samples) >= 10)
	assert.Equal(t, 0, len(result.Samples)%10)
	assert.Equal(t, int32(len(result.Samples)), atomic.LoadInt32(&numCalls))
	assert.Empty(t, Evaluate(loginTarget, result, time.Second))
}

func TestStressEngine_RunSingle(t *testing.T) {
	t.Parallel()

	invalidAuth := common.EndpointTarget{
		Name:             "invalid-auth",
		Path:             "/auth/",
		Headers:          map[string]string{"Authorization": "invalid_token"},
		ExpectedStatuses: []int{http.StatusForbidden},
	}
	engine, _ := NewStressEngine(&testsCommon.RequesterStub{
		DoHandler: func(ctx context.Context, target common.EndpointTarget) common.Response {
			assert.Equal(t, "invalid_token", target.Headers["Authorization"])
			return common.Response{Sample: common.TimingSample{StatusCode: http.StatusForbidden, Elapsed: 5 * time.Millisecond}}
		},
	})

	result := engine.RunSingle(context.Background(), invalidAuth)
	require.Len(t, result.Samples, 1)
	assert.Empty(t, Evaluate(invalidAuth, result, 100*time.Millisecond))
	assert.Len(t, Evaluate(invalidAuth, result, 5*time.Millisecond), 1)
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	result := &Result{
		Samples: []common.TimingSample{
			{StatusCode: http.StatusOK, Elapsed: 400 * time.Millisecond},
			{StatusCode: http.StatusInternalServerError, Elapsed: 600 * time.Millisecond},
			{StatusCode: http.StatusInternalServerError, Elapsed: 600 * time.Millisecond},
			{StatusCode: http.StatusForbidden, Elapsed: 600 * time.Millisecond},
			{Err: errors.New("connection reset"), Elapsed: time.Second},
		},
	}

	errs := Evaluate(loginTarget, result, 500*time.Millisecond)
	require.Len(t, errs, 4)

	failed := &errRequestsFailed{}
	require.True(t, errors.As(errs[0], &failed))
	assert.Equal(t, 1, failed.count)
	assert.Contains(t, errs[0].Error(), "connection reset")

	unexpected := &errUnexpectedStatus{}
	require.True(t, errors.As(errs[1], &unexpected))
	assert.Equal(t, http.StatusForbidden, unexpected.status)
	require.True(t, errors.As(errs[2], &unexpected))
	assert.Equal(t, http.StatusInternalServerError, unexpected.status)
	assert.Equal(t, 2, unexpected.count)

	exceeded := &errThresholdExceeded{}
	require.True(t, errors.As(errs[3], &exceeded))
	assert.Equal(t, 550*time.Millisecond, exceeded.actual)

	assert.Len(t, Evaluate(loginTarget, result, 0), 3)
}
