package vmsys

import "testing"

func TestMapProtectUnmap(t *testing.T) {
	addr, err := MapPage()
	if err != nil {
		t.Fatalf("MapPage() error = %v", err)
	}
	if addr == 0 {
		t.Fatalf("MapPage() returned a zero address")
	}

	if err := ProtectRW(addr); err != nil {
		t.Fatalf("ProtectRW() error = %v", err)
	}
	b := Bytes(addr)
	if len(b) != PageSize {
		t.Errorf("Bytes() length = %d, want %d", len(b), PageSize)
	}
	b[0] = 7
	if b[0] != 7 {
		t.Errorf("write through RW page did not stick")
	}

	if err := ProtectNone(addr); err != nil {
		t.Fatalf("ProtectNone() error = %v", err)
	}
	if err := Unmap(addr); err != nil {
		t.Fatalf("Unmap() error = %v", err)
	}
}

func TestGettidStable(t *testing.T) {
	LockThread()
	a := Gettid()
	b := Gettid()
	if a != b {
		t.Errorf("Gettid() not stable after LockThread: got %d then %d", a, b)
	}
	if a <= 0 {
		t.Errorf("Gettid() = %d, want a positive tid", a)
	}
}
