package descriptor

import (
	"testing"

	"github.com/mrinalghosh/thread-local-storage/internal/vmsys"
)

func TestCreateSizesPages(t *testing.T) {
	tests := []struct {
		name string
		size uint32
		want int
	}{
		{"one byte", 1, 1},
		{"exact page", uint32(vmsys.PageSize), 1},
		{"one over a page", uint32(vmsys.PageSize) + 1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Create(1, tt.size)
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			defer d.Destroy()
			if d.PageCount != tt.want {
				t.Errorf("PageCount = %d, want %d", d.PageCount, tt.want)
			}
			if len(d.Pages) != tt.want {
				t.Errorf("len(Pages) = %d, want %d", len(d.Pages), tt.want)
			}
			for _, p := range d.Pages {
				if p.RefCount() != 1 {
					t.Errorf("fresh page RefCount() = %d, want 1", p.RefCount())
				}
			}
		})
	}
}

func TestCloneSharesPages(t *testing.T) {
	src, err := Create(1, uint32(vmsys.PageSize)*2)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer src.Destroy()

	clone := Clone(2, src)
	defer clone.Destroy()

	if clone.PageCount != src.PageCount {
		t.Fatalf("clone.PageCount = %d, want %d", clone.PageCount, src.PageCount)
	}
	for i := range src.Pages {
		if clone.Pages[i] != src.Pages[i] {
			t.Errorf("page %d: clone does not share the source's Page Object", i)
		}
		if got := src.Pages[i].RefCount(); got != 2 {
			t.Errorf("page %d: RefCount() after Clone = %d, want 2", i, got)
		}
	}
}

func TestCowPageForksOnlyWhenShared(t *testing.T) {
	src, err := Create(1, uint32(vmsys.PageSize))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer src.Destroy()

	// Not shared yet: CowPage must be a no-op.
	if err := src.Unprotect(); err != nil {
		t.Fatalf("Unprotect() error = %v", err)
	}
	cowed, err := src.CowPage(0)
	if err != nil {
		t.Fatalf("CowPage() error = %v", err)
	}
	if cowed {
		t.Errorf("CowPage() forked an unshared page")
	}

	clone := Clone(2, src)
	defer clone.Destroy()

	original := src.Pages[0]
	for i := range original.Bytes() {
		original.Bytes()[i] = 0xAB
	}

	if err := clone.Unprotect(); err != nil {
		t.Fatalf("clone.Unprotect() error = %v", err)
	}
	cowed, err = clone.CowPage(0)
	if err != nil {
		t.Fatalf("CowPage() error = %v", err)
	}
	if !cowed {
		t.Errorf("CowPage() did not fork a shared page")
	}
	if clone.Pages[0] == original {
		t.Errorf("CowPage() did not replace the shared page with a private copy")
	}
	if clone.Pages[0].Bytes()[0] != 0xAB {
		t.Errorf("forked page did not inherit the donor's contents")
	}
	if got := original.RefCount(); got != 1 {
		t.Errorf("donor RefCount() after fork = %d, want 1", got)
	}
}

func TestDestroyReleasesAllPages(t *testing.T) {
	d, err := Create(1, uint32(vmsys.PageSize)*2)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	pages := d.Pages
	if err := d.Destroy(); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	for i, p := range pages {
		if got := p.RefCount(); got != 0 {
			t.Errorf("page %d RefCount() after Destroy = %d, want 0", i, got)
		}
	}
}
