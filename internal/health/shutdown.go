package health

import "sync/atomic"

var ready atomic.Bool

func init() {
	ready.Store(true)
}

// SetReady flips the readiness gate. Flip it off at the start of graceful
// shutdown so load balancers drain the instance before connections close.
func SetReady(v bool) {
	ready.Store(v)
}

// IsReady reports the readiness gate state.
func IsReady() bool {
	return ready.Load()
}
