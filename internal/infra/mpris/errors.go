package mpris

import "github.com/cockroachdb/errors"

var errUnsupported = errors.New("not supported")
