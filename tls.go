// Package tls implements a thread-local storage library: each
// participating thread gets a private, page-backed Local Storage Area
// (LSA) that only this package's Read/Write may touch. Any thread that
// dereferences its own or another thread's LSA memory directly is
// terminated; cloning an LSA shares its pages copy-on-write.
//
// The five operations below are the library's entire public surface,
// matching the original C ABI's int 0/-1 contract (see SPEC_FULL.md §6)
// rather than returning a Go error, since that contract — not Go error
// idiom — is what this module reimplements.
package tls

import (
	"sync"

	"github.com/mrinalghosh/thread-local-storage/internal/budget"
	"github.com/mrinalghosh/thread-local-storage/internal/descriptor"
	"github.com/mrinalghosh/thread-local-storage/internal/diag"
	"github.com/mrinalghosh/thread-local-storage/internal/fault"
	"github.com/mrinalghosh/thread-local-storage/internal/hostthread"
	"github.com/mrinalghosh/thread-local-storage/internal/registry"
	"github.com/mrinalghosh/thread-local-storage/internal/vmsys"
)

// ThreadID identifies a thread, for passing to Clone.
type ThreadID = hostthread.ID

const ok = 0
const fail = -1

var (
	once   sync.Once
	global *registry.Table
	budgt  *budget.Budget
)

// bootstrap performs the one-time global setup tls_init does in the
// original: build the Registry and the resource budget. Mirrors the
// "initialized" guard in original_source/tls.c. It does not arm the Fault
// Router: SetPanicOnFault is per-goroutine, not global, so CurrentThread
// arms it on every call instead — a cheap, idempotent call.
func bootstrap() {
	once.Do(func() {
		global = registry.New()
		budgt = budget.New()
	})
}

// CurrentThread locks the calling goroutine to its OS thread (if it has
// not already done so) and arms its Fault Router, returning its thread
// id. Callers that want to hand their id to another thread for Clone, or
// that want to exercise the library from multiple goroutines, call this
// once per goroutine before any other operation.
func CurrentThread() ThreadID {
	bootstrap()
	tid := hostthread.Lock()
	fault.Install()
	return tid
}

// Guard must be deferred by every goroutine that calls into this package,
// immediately after CurrentThread. It recovers a direct-touch fault on
// this thread's own LSA pages and terminates the thread; any other panic
// propagates unchanged. See internal/fault's package doc for why Go
// cannot give this the exact "which page" answer the original
// si_addr-based handler has.
func Guard() {
	bootstrap()
	r := recover()
	if r == nil {
		return
	}
	// recover only sees a panic when called directly by the deferred
	// function, so fault.Guard is itself deferred and handed the value
	// through a fresh panic.
	defer fault.Guard(global)
	panic(r)
}

// Create allocates a size-byte LSA for the current thread. Returns 0 on
// success, -1 if size is zero or the current thread already owns an LSA.
func Create(size uint32) int {
	bootstrap()
	tid := hostthread.Current()
	if size == 0 || global.Exists(tid) {
		return fail
	}

	d, err := descriptor.Create(tid, size)
	if err != nil {
		diag.Abort("tls_create: %v", err)
	}
	if err := d.Protect(); err != nil {
		diag.Abort("tls_create: %v", err)
	}

	global.Insert(tid, d)
	budgt.LSAs.Take(1)
	budgt.Pages.Take(int64(d.PageCount))
	diag.Global.Creates.Inc()
	return ok
}

// Write copies length bytes from buffer into the current thread's LSA
// starting at offset, forking a private copy of any page that is
// currently shared with another thread's LSA before mutating it. Returns
// 0 on success, -1 if the current thread has no LSA or the range is out
// of bounds; no bytes are written on failure.
func Write(offset, length uint32, buffer []byte) int {
	tid := hostthread.Current()
	d, ok2 := global.Fetch(tid)
	if !ok2 || uint64(offset)+uint64(length) > uint64(d.Size) {
		return fail
	}

	if err := d.Unprotect(); err != nil {
		diag.Abort("tls_write: %v", err)
	}
	defer func() {
		if err := d.Protect(); err != nil {
			diag.Abort("tls_write: %v", err)
		}
	}()

	pageSize := uint32(vmsys.PageSize)
	for i := uint32(0); i < length; i++ {
		idx := offset + i
		pn := idx / pageSize
		poff := idx % pageSize

		cowed, err := d.CowPage(int(pn))
		if err != nil {
			diag.Abort("tls_write: cow: %v", err)
		}
		if cowed {
			diag.Global.Cows.Inc()
		}

		d.Pages[pn].Bytes()[poff] = buffer[i]
	}

	diag.Global.Writes.Inc()
	return ok
}

// Read copies length bytes from the current thread's LSA starting at
// offset into buffer. Returns 0 on success, -1 if the current thread has
// no LSA or the range is out of bounds.
func Read(offset, length uint32, buffer []byte) int {
	tid := hostthread.Current()
	d, ok2 := global.Fetch(tid)
	if !ok2 || uint64(offset)+uint64(length) > uint64(d.Size) {
		return fail
	}

	if err := d.Unprotect(); err != nil {
		diag.Abort("tls_read: %v", err)
	}
	defer func() {
		if err := d.Protect(); err != nil {
			diag.Abort("tls_read: %v", err)
		}
	}()

	pageSize := uint32(vmsys.PageSize)
	for i := uint32(0); i < length; i++ {
		idx := offset + i
		pn := idx / pageSize
		poff := idx % pageSize
		buffer[i] = d.Pages[pn].Bytes()[poff]
	}

	diag.Global.Reads.Inc()
	return ok
}

// Destroy releases the current thread's LSA. Returns 0 on success, -1 if
// the current thread has no LSA.
func Destroy() int {
	tid := hostthread.Current()
	d, ok2 := global.Fetch(tid)
	if !ok2 {
		return fail
	}

	if err := d.Destroy(); err != nil {
		diag.Abort("tls_destroy: %v", err)
	}
	global.Remove(tid)
	budgt.LSAs.Give(1)
	budgt.Pages.Give(int64(d.PageCount))
	diag.Global.Destroys.Inc()
	return ok
}

// Clone gives the current thread a new LSA that shares target's pages
// copy-on-write. Returns 0 on success, -1 if target owns no LSA, the
// current thread already owns one, or target is the current thread
// (rejected unconditionally, see SPEC_FULL.md §9).
func Clone(target ThreadID) int {
	tid := hostthread.Current()
	if tid == target {
		return fail
	}

	src, srcOk := global.Fetch(target)
	if !srcOk || global.Exists(tid) {
		return fail
	}

	d := descriptor.Clone(tid, src)
	global.Insert(tid, d)
	budgt.LSAs.Take(1)
	budgt.Pages.Take(int64(d.PageCount))
	diag.Global.Clones.Inc()
	return ok
}

// Stats returns a human-readable snapshot of the library's counters and
// resource budget, for diagnostics and tests.
func Stats() string {
	bootstrap()
	return diag.Report(budgt)
}
