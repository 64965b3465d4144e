package config

import "errors"

var errEmptyTargetURL = errors.New("empty TargetURL")
var errInvalidValue = errors.New("invalid config value")
