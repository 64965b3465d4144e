package readiness

import "errors"

// ErrServerNotReady signals that the target did not answer within the retry budget
var ErrServerNotReady = errors.New("server not ready")

var errNilRequester = errors.New("nil requester")
var errInvalidAttempts = errors.New("invalid number of attempts")
