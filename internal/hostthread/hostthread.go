// Package hostthread gives the page manager a stable, equality-comparable
// thread identity and an "exit current thread" primitive, the two pieces
// of the §6 host-system contract that the threading layer (not this
// module) is responsible for. It is adapted from tinfo.Tnote_t's notion of
// "the current thread's note" — biscuit keeps that note in a runtime-level
// per-g pointer (runtime.Gptr/Setgptr), a hook only its patched runtime
// exposes. A userspace program instead gets a stable identity by locking
// the goroutine to its OS thread and asking the kernel for its tid.
package hostthread

import (
	"runtime"

	"github.com/mrinalghosh/thread-local-storage/internal/vmsys"
)

// ID identifies a thread. Two goroutines that have each called Lock share
// no ID; the same goroutine's ID is stable only after Lock has returned.
type ID = int32

// Lock pins the calling goroutine to its current OS thread and returns its
// identity. Every exported tls operation requires the caller to have
// locked itself, exactly as pthread-based callers implicitly have a fixed
// pthread_self() value.
func Lock() ID {
	vmsys.LockThread()
	return Current()
}

// Current returns the calling goroutine's thread identity. Meaningless
// unless the goroutine has already called Lock.
func Current() ID {
	return vmsys.Gettid()
}

// Exit terminates the calling thread via the host's normal thread-exit
// path. Only the calling goroutine/OS thread is affected; the process
// continues running with its other threads intact, mirroring
// pthread_exit(NULL) in the original implementation.
func Exit() {
	runtime.UnlockOSThread()
	runtime.Goexit()
}
