package client

import "github.com/iulianpascalau/api-loadtest/services/loadtest/common"

// RequestObserver is notified after every request the requester issues
type RequestObserver interface {
	ObserveRequest(endpoint string, sample common.TimingSample)
	IsInterfaceNil() bool
}
