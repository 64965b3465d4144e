package suite

import (
	"errors"
	"fmt"
)

var errNilRequester = errors.New("nil requester")
var errNilReadinessWaiter = errors.New("nil readiness waiter")
var errNilStressEngine = errors.New("nil stress engine")
var errNilResourceMonitor = errors.New("nil resource monitor")
var errEmptyCredentials = errors.New("empty login credentials")
var errNoResourceSamples = errors.New("no resource sample collected")

// ErrSetupFailed signals that the fixture could not be created
var ErrSetupFailed = errors.New("setup failed")

type errResourceCeiling struct {
	resource string
	actual   float64
	limit    float64
}

func (e *errResourceCeiling) Error() string {
	return fmt.Sprintf("%s %.2f exceeded the ceiling of %.2f", e.resource, e.actual, e.limit)
}

type errCasePanicked struct {
	value interface{}
}

func (e *errCasePanicked) Error() string {
	return fmt.Sprintf("case panicked: %v", e.value)
}
