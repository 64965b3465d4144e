package client

import "errors"

var errEmptyBaseURL = errors.New("empty base URL")
var errInvalidTimeout = errors.New("invalid request timeout")

type errMarshalBody string

func (e errMarshalBody) Error() string {
	return "failed to marshal request body for endpoint: " + string(e)
}
