package monitor

import "errors"

var errInvalidPeriod = errors.New("invalid sampling period")
