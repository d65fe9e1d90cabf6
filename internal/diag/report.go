package diag

import (
	"fmt"
	"io"

	"github.com/google/pprof/profile"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/mrinalghosh/thread-local-storage/internal/budget"
	"github.com/mrinalghosh/thread-local-storage/internal/registry"
)

// Report renders the global counters and the budget's current standing as
// a human-readable, grouped-digit string, e.g. "creates: 1,024". Adapted
// from stats.Stats2String's reflective field walk, replaced here with
// explicit fields since Counters is small and fixed, and golang.org/x/text
// for the digit grouping a raw strconv.FormatInt wouldn't give us.
func Report(b *budget.Budget) string {
	p := message.NewPrinter(language.English)
	return p.Sprintf(
		"creates: %d  destroys: %d  clones: %d  reads: %d  writes: %d  cows: %d  faults: %d  lsas: %d/%d  pages: %d/%d\n",
		Global.Creates.Load(), Global.Destroys.Load(), Global.Clones.Load(),
		Global.Reads.Load(), Global.Writes.Load(), Global.Cows.Load(), Global.Faults.Load(),
		b.LSAs.Held(), b.LSAs.Ceiling(), b.Pages.Held(), b.Pages.Ceiling(),
	)
}

// WriteProfile writes a pprof-format census of every live Page Object in
// reg to w: one sample per page, labelled by its owning thread and slot
// index, valued by its current refcount. Intended for offline inspection
// of COW sharing and leak suspicion, not for production serving — this is
// a diagnostic dump, not a sampling profiler.
func WriteProfile(w io.Writer, reg *registry.Table) error {
	p := &profile.Profile{
		SampleType: []*profile.ValueType{{Type: "refcount", Unit: "count"}},
		PeriodType: &profile.ValueType{Type: "census", Unit: "count"},
		Period:     1,
	}

	var nextID uint64
	id := func() uint64 {
		nextID++
		return nextID
	}

	for _, pr := range reg.Elems() {
		for i, pg := range pr.Desc.Pages {
			fn := &profile.Function{
				ID:   id(),
				Name: fmt.Sprintf("thread %d / page %d", pr.Tid, i),
			}
			loc := &profile.Location{
				ID:   id(),
				Line: []profile.Line{{Function: fn, Line: int64(i)}},
			}
			p.Function = append(p.Function, fn)
			p.Location = append(p.Location, loc)
			p.Sample = append(p.Sample, &profile.Sample{
				Location: []*profile.Location{loc},
				Value:    []int64{int64(pg.RefCount())},
			})
		}
	}

	return p.Write(w)
}
