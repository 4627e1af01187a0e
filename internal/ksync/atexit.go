package ksync

import (
	"os"
	"sync"
)

var (
	atExitMu    sync.Mutex
	atExitFuncs []func()
)

// AtExit registers fn to run on process termination, in reverse
// registration order. cmd/pennos uses this to unmount (and so msync)
// the FAT volume and close the kernel log on exit. Raw terminal mode
// is not restored here: the line editor defers rawterm.Restore itself.
func AtExit(fn func()) {
	if fn == nil {
		panic("AtExit called with nil func")
	}
	once := &sync.Once{}
	atExitMu.Lock()
	atExitFuncs = append(atExitFuncs, func() { once.Do(fn) })
	atExitMu.Unlock()
}

// RunAtExitFuncs runs every registered AtExit function, most recently
// registered first.
func RunAtExitFuncs() {
	atExitMu.Lock()
	fns := atExitFuncs
	atExitMu.Unlock()
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}

// Exit runs every registered AtExit function then terminates the
// process with code. Must be used instead of os.Exit directly so
// cleanup is never skipped.
func Exit(code int) {
	defer os.Exit(code)
	RunAtExitFuncs()
}
