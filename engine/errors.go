package engine

import "errors"

// ErrResolveFailed is returned when the engine cannot produce an IP from the
// records observed: R6 in the classification table, or an A-query whose
// answer contains neither an A record nor an SOA record. ErrResolveFailed
// may be wrapped and must be tested for with errors.Is.
var ErrResolveFailed = errors.New("resolve failed")

// ErrOverrun is returned when a single top-level Resolve call would require
// more than 100 transport sends. ErrOverrun may be wrapped and must be
// tested for with errors.Is.
var ErrOverrun = errors.New("overrun: request budget exceeded")
