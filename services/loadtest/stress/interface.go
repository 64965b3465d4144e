package stress

import (
	"context"

	"github.com/iulianpascalau/api-loadtest/services/loadtest/common"
)

// Requester defines the component able to issue a request against the target
type Requester interface {
	// Do issues one request and returns its timing sample and body. It never retries.
	Do(ctx context.Context, target common.EndpointTarget) common.Response

	IsInterfaceNil() bool
}
