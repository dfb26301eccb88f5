package ports

import "errors"

// ErrAlreadyCancelled is returned by SchedulingProvider.CancelEvent when the
// event was cancelled before this request reached the provider.
var ErrAlreadyCancelled = errors.New("event already cancelled")
