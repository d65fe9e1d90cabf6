// Package descriptor implements the LSA Descriptor & Page Table: the
// per-thread record of an LSA's size and its ordered page objects. Pure
// data, constructed by Create (fresh pages) or Clone (shared pages), and
// mutated only by the owning thread's Write calls.
package descriptor

import (
	"github.com/mrinalghosh/thread-local-storage/internal/access"
	"github.com/mrinalghosh/thread-local-storage/internal/hostthread"
	"github.com/mrinalghosh/thread-local-storage/internal/page"
	"github.com/mrinalghosh/thread-local-storage/internal/util"
	"github.com/mrinalghosh/thread-local-storage/internal/vmsys"
)

// Descriptor is one thread's Local Storage Area.
type Descriptor struct {
	Owner     hostthread.ID
	Size      uint32
	PageCount int
	Pages     []*page.Object
}

// Create allocates a fresh Descriptor of size bytes, each of its pages
// backed by a brand-new, refcount-1 mapping.
func Create(owner hostthread.ID, size uint32) (*Descriptor, error) {
	n := util.PageCount(size, uint32(vmsys.PageSize))
	d := &Descriptor{Owner: owner, Size: size, PageCount: n, Pages: make([]*page.Object, n)}
	for i := 0; i < n; i++ {
		p, err := page.New()
		if err != nil {
			// unwind what we've allocated so far before surfacing the
			// catastrophic failure to the caller.
			for j := 0; j < i; j++ {
				_ = d.Pages[j].Decref()
			}
			return nil, err
		}
		d.Pages[i] = p
	}
	return d, nil
}

// Clone builds a new Descriptor for owner that shares every page of src,
// bumping each shared Page Object's refcount. Page contents are not
// copied — only the references are, which is what makes clone cheap and
// is what copy-on-write exists to undo lazily on the first write.
func Clone(owner hostthread.ID, src *Descriptor) *Descriptor {
	pages := make([]*page.Object, src.PageCount)
	copy(pages, src.Pages)
	for _, p := range pages {
		p.Incref()
	}
	return &Descriptor{Owner: owner, Size: src.Size, PageCount: src.PageCount, Pages: pages}
}

// Addrs returns the base address of every page in the descriptor, the
// unit the access-control subsystem brackets a read/write with.
func (d *Descriptor) Addrs() []uintptr {
	addrs := make([]uintptr, len(d.Pages))
	for i, p := range d.Pages {
		addrs[i] = p.Addr()
	}
	return addrs
}

// Unprotect and Protect bracket every page in the descriptor, unconditionally
// — see internal/access's package doc for why reads pay the same cost as
// writes.
func (d *Descriptor) Unprotect() error {
	return access.Unprotect(d.Addrs())
}

func (d *Descriptor) Protect() error {
	return access.Protect(d.Addrs())
}

// CowPage ensures page index i is privately owned (refcount 1) by d,
// forking a private copy of its current contents if it is currently
// shared. The caller must already have unprotected d's pages (the donor
// page p must be readable for the copy) via Unprotect. Returns whether a
// fork happened.
func (d *Descriptor) CowPage(i int) (bool, error) {
	p := d.Pages[i]
	if p.RefCount() <= 1 {
		return false, nil
	}

	cp, err := page.New()
	if err != nil {
		return false, err
	}
	if err := access.UnprotectOne(cp.Addr()); err != nil {
		return false, err
	}
	cp.CopyFrom(p)
	d.Pages[i] = cp

	if err := p.Decref(); err != nil {
		return true, err
	}
	// The donor is still reachable from at least one other descriptor
	// (its refcount was > 1 before this decrement); re-protect it so that
	// sharer cannot touch it outside its own bracket the instant this
	// write finishes.
	if err := p.ProtectNone(); err != nil {
		return true, err
	}
	return true, nil
}

// Destroy releases every page reference the descriptor holds. Pages whose
// refcount reaches zero are unmapped; pages still shared by another
// descriptor are left alone beyond the decrement.
func (d *Descriptor) Destroy() error {
	var first error
	for _, p := range d.Pages {
		if err := p.Decref(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
