// Package fault implements the Fault Router: the mechanism that
// distinguishes "a thread illegally touched an LSA page directly" from
// "an ordinary program fault" and terminates only the offending thread.
//
// The original implementation installs a sigaction(SIGSEGV/SIGBUS,
// SA_SIGINFO) handler once (original_source/tls.c's tls_init) that scans
// the Registry for the faulting page's address and either pthread_exits
// the current thread or reinstates the default handlers and re-raises.
// Go gives user code no portable way to install that handler and recover
// the faulting address (see SPEC_FULL.md §4.E); debug.SetPanicOnFault is
// the documented mechanism for converting exactly this class of fault
// into something recoverable, at the cost of losing the address. Router
// discriminates on thread ownership instead — see Guard's doc comment.
package fault

import (
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/mrinalghosh/thread-local-storage/internal/diag"
	"github.com/mrinalghosh/thread-local-storage/internal/hostthread"
	"github.com/mrinalghosh/thread-local-storage/internal/registry"
)

// Install arms the calling goroutine's fault conversion. Must be called
// once per thread before Guard can do anything useful; tls.CurrentThread
// calls it for every goroutine that joins the library, standing in for
// tls_init's one-time sigaction install.
func Install() {
	debug.SetPanicOnFault(true)
}

// Guard is deferred by every thread that participates in this library. On
// an ordinary return it does nothing. On a recovered fault, it consults
// reg: if the current thread owns a live LSA, the fault is attributed to
// that LSA's protected pages (the only memory this library ever protects
// on that thread's behalf) and the thread is terminated via
// hostthread.Exit — the Go-native "terminate thread, not process." If the
// current thread owns no LSA, the fault cannot be an LSA-protection
// violation, so it is re-panicked, reproducing "reinstate default
// handlers and re-raise" for an ordinary fault.
func Guard(reg *registry.Table) {
	r := recover()
	if r == nil {
		return
	}
	if !isMemoryFault(r) {
		panic(r)
	}

	tid := hostthread.Current()
	if reg.Exists(tid) {
		diag.Global.Faults.Inc()
		hostthread.Exit()
		return
	}
	panic(r)
}

func isMemoryFault(r any) bool {
	err, ok := r.(runtime.Error)
	if !ok {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "invalid memory address") ||
		strings.Contains(msg, "nil pointer dereference") ||
		strings.Contains(msg, "misaligned")
}
