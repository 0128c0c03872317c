package report

import "errors"

// ErrUnknownFormat is returned for an unsupported report format
var ErrUnknownFormat = errors.New("unknown report format")
