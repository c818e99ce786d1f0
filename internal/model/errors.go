package model

import "errors"

// ErrCancelled is the sentinel returned by stages interrupted by
// cancellation. Partial outputs accompanying it are marked cancelled and
// must not feed downstream stages.
var ErrCancelled = errors.New("run cancelled")
