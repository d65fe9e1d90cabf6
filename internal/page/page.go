// Package page implements the Page Object & refcount protocol: a
// reference-counted wrapper around one backing page mapping, shared
// between LSAs by copy-on-write clone and torn down when its last
// reference disappears. Adapted from mem.Physmem_t's Refup/Refdown atomic
// refcount pattern; the physical-frame table and per-CPU free lists that
// pattern serves in a bare-metal kernel have no role here, since mmap and
// munmap already allocate and release pages for us.
package page

import (
	"sync/atomic"

	"github.com/mrinalghosh/thread-local-storage/internal/access"
	"github.com/mrinalghosh/thread-local-storage/internal/vmsys"
)

// Object is one page's worth of backing storage, shared by every LSA
// slot that points at it.
type Object struct {
	addr     uintptr
	refCount int32
}

// New allocates a fresh, protection-none page with refcount 1.
func New() (*Object, error) {
	addr, err := vmsys.MapPage()
	if err != nil {
		return nil, err
	}
	return &Object{addr: addr, refCount: 1}, nil
}

// Addr returns the page's base address. It never changes after
// construction.
func (o *Object) Addr() uintptr {
	return o.addr
}

// RefCount returns the current reference count.
func (o *Object) RefCount() int32 {
	return atomic.LoadInt32(&o.refCount)
}

// Incref adds one reference, taken when a clone shares this page.
func (o *Object) Incref() {
	if n := atomic.AddInt32(&o.refCount, 1); n <= 1 {
		panic("page: incref of unreferenced object")
	}
}

// Decref removes one reference. When the count reaches zero the backing
// mapping is unmapped and the Object must not be used again. The
// increment/decrement pairing is strict: every Incref (including the
// initial 1 from New) has exactly one matching Decref.
func (o *Object) Decref() error {
	n := atomic.AddInt32(&o.refCount, -1)
	if n < 0 {
		panic("page: decref below zero")
	}
	if n == 0 {
		return vmsys.Unmap(o.addr)
	}
	return nil
}

// Bytes returns the page's contents as a byte slice. Only valid while the
// page is unprotected (read+write) via access.Unprotect.
func (o *Object) Bytes() []byte {
	return vmsys.Bytes(o.addr)
}

// CopyFrom duplicates src's current contents into o, used when forking a
// private copy during copy-on-write. Both pages must already be
// unprotected by the caller.
func (o *Object) CopyFrom(src *Object) {
	copy(o.Bytes(), src.Bytes())
}

// ProtectNone protects a single page, used when a writer donates a page
// back to its sharers after forking a private copy (the "other sharers
// still cannot touch it casually" step of tls_write's COW path).
func (o *Object) ProtectNone() error {
	return access.ProtectOne(o.addr)
}
