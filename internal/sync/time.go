package sync

import "time"

// NowNano returns the current time as unix nanoseconds, the timestamp unit
// used throughout Entry and the conflicts table. A named wrapper (rather
// than calling time.Now().UnixNano() at each call site) gives tests a single
// seam to fake if a future change needs deterministic timestamps.
func NowNano() int64 { return time.Now().UnixNano() }
