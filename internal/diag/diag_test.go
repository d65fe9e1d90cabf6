package diag

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mrinalghosh/thread-local-storage/internal/budget"
	"github.com/mrinalghosh/thread-local-storage/internal/registry"
)

func TestCounterIncAddLoad(t *testing.T) {
	var c Counter
	c.Inc()
	c.Add(4)
	if got := c.Load(); got != 5 {
		t.Errorf("Load() = %d, want 5", got)
	}
}

func TestReportIncludesGroupedCounters(t *testing.T) {
	Global.Creates.Add(1234567)
	defer Global.Creates.Add(-1234567)

	out := Report(budget.New())
	if !strings.Contains(out, "1,234,567") {
		t.Errorf("Report() = %q, want a grouped-digit creates count", out)
	}
}

func TestWriteProfileEmptyRegistry(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteProfile(&buf, registry.New()); err != nil {
		t.Fatalf("WriteProfile() error = %v", err)
	}
	if buf.Len() == 0 {
		t.Errorf("WriteProfile() wrote no bytes for an empty registry")
	}
}
