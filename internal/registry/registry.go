// Package registry implements the Global Registry: a process-wide mapping
// from thread identity to LSA Descriptor. It must be safe to consult from
// the Fault Router's recovered-panic path and support O(1) average lookup.
//
// Adapted from hashtable.Hashtable_t (biscuit/src/hashtable/hashtable.go):
// fixed bucket count, separate chaining, a per-bucket sync.RWMutex
// guarding Insert/Remove, and a lock-free Fetch that walks the chain using
// sync/atomic pointer loads so a concurrent Insert/Remove never hands it a
// partially-built node. See SPEC_FULL.md §4.A for why the original's
// async-signal-safety concern does not transfer to this port.
package registry

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/mrinalghosh/thread-local-storage/internal/descriptor"
	"github.com/mrinalghosh/thread-local-storage/internal/hostthread"
)

// Buckets is the compile-time bucket count spec.md §4.A fixes at 32.
const Buckets = 32

type elem struct {
	tid  hostthread.ID
	desc *descriptor.Descriptor
	next *elem
}

type bucket struct {
	sync.RWMutex
	first *elem
}

// Table is the Global Registry.
type Table struct {
	buckets [Buckets]*bucket
}

// New returns an empty, ready-to-use Registry.
func New() *Table {
	t := &Table{}
	for i := range t.buckets {
		t.buckets[i] = &bucket{}
	}
	return t
}

func hashTid(tid hostthread.ID) uint32 {
	h := fnv.New32a()
	var b [4]byte
	b[0] = byte(tid)
	b[1] = byte(tid >> 8)
	b[2] = byte(tid >> 16)
	b[3] = byte(tid >> 24)
	h.Write(b[:])
	return h.Sum32()
}

func (t *Table) bucketFor(tid hostthread.ID) *bucket {
	return t.buckets[hashTid(tid)%Buckets]
}

// Exists reports whether tid currently owns a live LSA.
func (t *Table) Exists(tid hostthread.ID) bool {
	_, ok := t.Fetch(tid)
	return ok
}

// Fetch returns tid's LSA Descriptor. The returned handle is stable until
// the next Remove(tid).
func (t *Table) Fetch(tid hostthread.ID) (*descriptor.Descriptor, bool) {
	b := t.bucketFor(tid)
	for e := loadNext(&b.first); e != nil; e = loadNext(&e.next) {
		if e.tid == tid {
			return e.desc, true
		}
	}
	return nil, false
}

// Insert adds tid -> desc. The caller guarantees no prior entry exists for
// tid.
func (t *Table) Insert(tid hostthread.ID, desc *descriptor.Descriptor) {
	b := t.bucketFor(tid)
	b.Lock()
	defer b.Unlock()
	n := &elem{tid: tid, desc: desc, next: b.first}
	storeNext(&b.first, n)
}

// Remove deletes tid's entry. A no-op if the entry is absent.
func (t *Table) Remove(tid hostthread.ID) {
	b := t.bucketFor(tid)
	b.Lock()
	defer b.Unlock()

	var prev *elem
	for e := b.first; e != nil; e = e.next {
		if e.tid == tid {
			if prev == nil {
				storeNext(&b.first, e.next)
			} else {
				storeNext(&prev.next, e.next)
			}
			return
		}
		prev = e
	}
}

// Entry pairs a thread id with its live Descriptor, returned by Elems.
type Entry struct {
	Tid  hostthread.ID
	Desc *descriptor.Descriptor
}

// Elems returns every live (tid, Descriptor) pair, grounded on
// hashtable.Hashtable_t's Elems/Pair_t. Used by internal/diag to build a
// census of every live page; not on any hot path.
func (t *Table) Elems() []Entry {
	out := make([]Entry, 0)
	for i := range t.buckets {
		b := t.buckets[i]
		b.RLock()
		for e := b.first; e != nil; e = e.next {
			out = append(out, Entry{Tid: e.tid, Desc: e.desc})
		}
		b.RUnlock()
	}
	return out
}

// OwnsAddress scans every live Descriptor's every Page Object looking for
// one whose address equals addr, the literal registry-scan primitive
// spec.md §4.E describes. The Fault Router does not call it (see
// SPEC_FULL.md §4.E); it is kept and tested standalone since a host that
// can supply a real faulting address should use it directly.
func (t *Table) OwnsAddress(addr uintptr) bool {
	for i := range t.buckets {
		b := t.buckets[i]
		b.RLock()
		for e := b.first; e != nil; e = e.next {
			for _, p := range e.desc.Pages {
				if p.Addr() == addr {
					b.RUnlock()
					return true
				}
			}
		}
		b.RUnlock()
	}
	return false
}

// Without an explicit memory model this is hard to prove correct in
// general, but LoadPointer/StorePointer give Fetch a consistent view of the
// chain without taking the bucket lock, matching the teacher's scheme.
func loadNext(p **elem) *elem {
	ptr := (*unsafe.Pointer)(unsafe.Pointer(p))
	return (*elem)(atomic.LoadPointer(ptr))
}

func storeNext(p **elem, n *elem) {
	ptr := (*unsafe.Pointer)(unsafe.Pointer(p))
	atomic.StorePointer(ptr, unsafe.Pointer(n))
}
