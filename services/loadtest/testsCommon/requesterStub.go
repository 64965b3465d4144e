package testsCommon

import (
	"context"
	"net/http"
	"time"

	"github.com/iulianpascalau/api-loadtest/services/loadtest/common"
)

// RequesterStub -
type RequesterStub struct {
	DoHandler func(ctx context.Context, target common.EndpointTarget) common.Response
}

// Do -
func (stub *RequesterStub) Do(ctx context.Context, target common.EndpointTarget) common.Response {
	if stub.DoHandler != nil {
		return stub.DoHandler(ctx, target)
	}

	return common.Response{
		Sample: common.TimingSample{
			StartedAt:  time.Now(),
			StatusCode: http.StatusOK,
		},
	}
}

// IsInterfaceNil -
func (stub *RequesterStub) IsInterfaceNil() bool {
	return stub == nil
}
