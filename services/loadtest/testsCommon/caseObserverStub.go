package testsCommon

import (
	"sync"

	"github.com/iulianpascalau/api-loadtest/services/loadtest/common"
)

// CaseObserverStub -
type CaseObserverStub struct {
	mut   sync.Mutex
	Cases []common.CaseResult
}

// ObserveCase -
func (stub *CaseObserverStub) ObserveCase(result common.CaseResult) {
	stub.mut.Lock()
	stub.Cases = append(stub.Cases, result)
	stub.mut.Unlock()
}

// NumCases -
func (stub *CaseObserverStub) NumCases() int {
	stub.mut.Lock()
	defer stub.mut.Unlock()

	return len(stub.Cases)
}

// IsInterfaceNil -
func (stub *CaseObserverStub) IsInterfaceNil() bool {
	return stub == nil
}
