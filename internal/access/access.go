// Package access implements the Access-Control subsystem: it brackets
// every sanctioned read/write with an unprotect/protect pair around the
// full set of pages belonging to the LSA being touched. The bracket is
// unconditional — even reads unprotect and re-protect — because
// protection is granular to a whole page and this library refuses to
// distinguish a read-only page from a read-write one; after a
// copy-on-write fork, a previously shared page must become inaccessible
// to the non-writing side the moment the writer finishes, and the blanket
// bracket makes that automatic.
//
// Adapted from Vm_t.Lock_pmap/Unlock_pmap's lock-around-the-access-window
// shape in biscuit/src/vm/as.go.
package access

import "github.com/mrinalghosh/thread-local-storage/internal/vmsys"

// Unprotect grants read+write access to every page address in addrs. It
// stops and returns an error at the first failure, leaving earlier pages
// in addrs unprotected — a mid-bracket failure is a catastrophic host
// failure the caller aborts the process over, not a condition it tries to
// unwind.
func Unprotect(addrs []uintptr) error {
	for _, a := range addrs {
		if err := vmsys.ProtectRW(a); err != nil {
			return err
		}
	}
	return nil
}

// Protect removes access to every page address in addrs.
func Protect(addrs []uintptr) error {
	for _, a := range addrs {
		if err := vmsys.ProtectNone(a); err != nil {
			return err
		}
	}
	return nil
}

// UnprotectOne and ProtectOne bracket a single page, used by the
// copy-on-write path (internal/descriptor's CowPage, and internal/page's
// ProtectNone for the donor) when a writer forks a private copy out of a
// shared page and must re-protect the donor on its own.
func UnprotectOne(addr uintptr) error {
	return vmsys.ProtectRW(addr)
}

func ProtectOne(addr uintptr) error {
	return vmsys.ProtectNone(addr)
}
