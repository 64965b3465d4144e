package stress

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var errNilRequester = errors.New("nil requester")
var errNoSamples = errors.New("no request completed")

type errUnexpectedStatus struct {
	endpoint string
	status   int
	expected []int
	count    int
}

func (e *errUnexpectedStatus) Error() string {
	return fmt.Sprintf("endpoint %s answered %d time(s) with unexpected status %d (%s), expected one of %v",
		e.endpoint, e.count, e.status, http.StatusText(e.status), e.expected)
}

type errRequestsFailed struct {
	endpoint string
	count    int
	first    error
}

func (e *errRequestsFailed) Error() string {
	return fmt.Sprintf("%d request(s) to endpoint %s failed, first error: %v", e.count, e.endpoint, e.first)
}

func (e *errRequestsFailed) Unwrap() error {
	return e.first
}

type errThresholdExceeded struct {
	endpoint string
	actual   time.Duration
	limit    time.Duration
}

func (e *errThresholdExceeded) Error() string {
	return fmt.Sprintf("endpoint %s average latency %v exceeded the threshold of %v", e.endpoint, e.actual, e.limit)
}

type errInterrupted struct {
	cause error
}

func (e *errInterrupted) Error() string {
	return "operation interrupted: " + e.cause.Error()
}

func (e *errInterrupted) Unwrap() error {
	return e.cause
}
