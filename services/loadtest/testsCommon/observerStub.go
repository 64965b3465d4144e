package testsCommon

import (
	"sync"

	"github.com/iulianpascalau/api-loadtest/services/loadtest/common"
)

// ObserverStub -
type ObserverStub struct {
	mut                   sync.Mutex
	ObserveRequestHandler func(endpoint string, sample common.TimingSample)
	observed              map[string]int
}

// ObserveRequest -
func (stub *ObserverStub) ObserveRequest(endpoint string, sample common.TimingSample) {
	stub.mut.Lock()
	if stub.observed == nil {
		stub.observed = make(map[string]int)
	}
	stub.observed[endpoint]++
	stub.mut.Unlock()

	if stub.ObserveRequestHandler != nil {
		stub.ObserveRequestHandler(endpoint, sample)
	}
}

// NumObserved -
func (stub *ObserverStub) NumObserved(endpoint string) int {
	stub.mut.Lock()
	defer stub.mut.Unlock()

	return stub.observed[endpoint]
}

// IsInterfaceNil -
func (stub *ObserverStub) IsInterfaceNil() bool {
	return stub == nil
}
