package testsCommon

import (
	"context"
	"time"

	"github.com/iulianpascalau/api-loadtest/services/loadtest/common"
)

// ResourceMonitorStub -
type ResourceMonitorStub struct {
	MonitorHandler func(ctx context.Context, window time.Duration) ([]common.ResourceSample, error)
}

// Monitor -
func (stub *ResourceMonitorStub) Monitor(ctx context.Context, window time.Duration) ([]common.ResourceSample, error) {
	if stub.MonitorHandler != nil {
		return stub.MonitorHandler(ctx, window)
	}

	return []common.ResourceSample{
		{
			CPULoad1Min:   0.5,
			HeapUsedBytes: 1024 * 1024,
			SampledAt:     time.Now(),
		},
	}, nil
}

// IsInterfaceNil -
func (stub *ResourceMonitorStub) IsInterfaceNil() bool {
	return stub == nil
}
