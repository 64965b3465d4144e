package testsCommon

import "context"

// ReadinessWaiterStub -
type ReadinessWaiterStub struct {
	WaitForReadyHandler func(ctx context.Context) error
}

// WaitForReady -
func (stub *ReadinessWaiterStub) WaitForReady(ctx context.Context) error {
	if stub.WaitForReadyHandler != nil {
		return stub.WaitForReadyHandler(ctx)
	}

	return nil
}

// IsInterfaceNil -
func (stub *ReadinessWaiterStub) IsInterfaceNil() bool {
	return stub == nil
}
