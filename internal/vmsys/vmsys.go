// Package vmsys wraps the host virtual-memory primitives the page manager
// is built on: anonymous private page mappings, per-page protection, and
// thread identity. This is the only package in the module that talks to
// the kernel directly; everything above it works in terms of Page objects
// and byte ranges.
package vmsys

import (
	"fmt"
	"os"
	"runtime"

	"golang.org/x/sys/unix"
)

// PageSize is queried once at process start, mirroring tls_init's
// getpagesize() call in the original implementation.
var PageSize = os.Getpagesize()

// MapPage creates a fresh, page-sized, anonymous private mapping with no
// access permissions. Callers upgrade permissions explicitly via ProtectRW
// before touching the memory.
func MapPage() (addr uintptr, err error) {
	b, err := unix.Mmap(-1, 0, PageSize, unix.PROT_NONE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return 0, fmt.Errorf("mmap: %w", err)
	}
	return sliceAddr(b), nil
}

// Unmap releases a page-sized mapping previously returned by MapPage.
func Unmap(addr uintptr) error {
	b := addrSlice(addr, PageSize)
	if err := unix.Munmap(b); err != nil {
		return fmt.Errorf("munmap: %w", err)
	}
	return nil
}

// ProtectNone removes all access to the page at addr. Any subsequent
// read/write from any thread raises SIGSEGV.
func ProtectNone(addr uintptr) error {
	return protect(addr, unix.PROT_NONE)
}

// ProtectRW grants read+write access to the page at addr.
func ProtectRW(addr uintptr) error {
	return protect(addr, unix.PROT_READ|unix.PROT_WRITE)
}

func protect(addr uintptr, prot int) error {
	b := addrSlice(addr, PageSize)
	if err := unix.Mprotect(b, prot); err != nil {
		return fmt.Errorf("mprotect: %w", err)
	}
	return nil
}

// Bytes returns a byte slice viewing the page-sized mapping at addr. The
// caller must have already called ProtectRW; reading or writing through
// this slice while the page is protected is exactly the "direct touch"
// the Fault Router exists to catch.
func Bytes(addr uintptr) []byte {
	return addrSlice(addr, PageSize)
}

// Gettid returns the calling goroutine's kernel thread id. The goroutine
// must have called runtime.LockOSThread first, or the returned id is not
// stable across subsequent calls.
func Gettid() int32 {
	return int32(unix.Gettid())
}

// LockThread pins the calling goroutine to its current OS thread for the
// remainder of its lifetime, giving it a stable identity for the registry.
// It is the Go-native equivalent of the implicit 1:1 thread model pthreads
// gives the C original.
func LockThread() {
	runtime.LockOSThread()
}
