package readiness

import (
	"context"

	"github.com/iulianpascalau/api-loadtest/services/loadtest/common"
)

// Requester defines the component able to issue a request against the target
type Requester interface {
	Do(ctx context.Context, target common.EndpointTarget) common.Response
	IsInterfaceNil() bool
}
