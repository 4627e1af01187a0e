package ksync

import "sync"

// AtomicBool is a mutex-guarded boolean. The kernel context uses one
// for loggedOut (spec §4.4 "when a logged_out flag becomes true, the
// scheduler frees all deques and exits") since that flag is read by the
// scheduler goroutine and written by the logout builtin running as an
// arbitrary task goroutine.
type AtomicBool struct {
	mutex sync.Mutex
	state bool
}

// NewAtomicBool returns an AtomicBool initialized to initialState.
func NewAtomicBool(initialState bool) *AtomicBool {
	return &AtomicBool{state: initialState}
}

// Get reads the current value.
func (a *AtomicBool) Get() bool {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.state
}

// Set stores newState and returns it.
func (a *AtomicBool) Set(newState bool) bool {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.state = newState
	return a.state
}
