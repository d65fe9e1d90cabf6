// Package diag holds the page manager's counters, its catastrophic-failure
// abort path, and its offline reporting/profiling. Adapted from
// stats.Counter_t / stats.Stats2String (biscuit/src/stats/stats.go): plain
// atomically-updated counters plus a printer, extended with
// golang.org/x/text for locale-aware formatting and github.com/google/pprof
// for a pprof-format census of live pages.
package diag

import (
	"fmt"
	"os"
	"sync/atomic"
)

// Counter is an atomic event counter, the same shape as stats.Counter_t
// but always active — this module has no debug-build-only toggle, since
// the counts themselves are cheap and are the only window into COW/fault
// behaviour a caller gets.
type Counter int64

func (c *Counter) Inc() {
	atomic.AddInt64((*int64)(c), 1)
}

func (c *Counter) Add(n int64) {
	atomic.AddInt64((*int64)(c), n)
}

func (c *Counter) Load() int64 {
	return atomic.LoadInt64((*int64)(c))
}

// Counters tracks every library-visible event spec.md's components can
// produce.
type Counters struct {
	Creates  Counter
	Destroys Counter
	Clones   Counter
	Reads    Counter
	Writes   Counter
	Cows     Counter
	Faults   Counter
}

// Global is the process-wide counter set every package in this module
// reports into. A package-level singleton mirrors stats.go's package-level
// counters; there is exactly one page manager per process by construction
// (spec.md has no notion of multiple independent page managers).
var Global = &Counters{}

// Abort prints a diagnostic to stderr and terminates the process. Used
// exclusively for catastrophic host failures (mmap/mprotect/munmap
// returning an error): spec.md §7 treats these as broken invariants that
// cannot be recovered from, never retried, never logged through a
// structured channel.
func Abort(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "tls: fatal: "+format+"\n", args...)
	os.Exit(2)
}
