// Package budget tracks soft, observation-only resource ceilings: how
// many LSAs and pages are currently live against a configured limit.
// Adapted from limits.Sysatomic_t's Given/Taken atomic-ceiling pattern
// (biscuit/src/limits/limits.go). Unlike the teacher's Syslimit, which
// gates whether the kernel grants a resource, this budget never refuses
// an allocation on its own — spec.md §7 pins down the five operations'
// exact failure conditions, and resource exhaustion is not one of them.
// It exists purely to feed internal/diag's reporting.
package budget

import "sync/atomic"

// Default ceilings, generous enough that a well-behaved program never
// approaches them; they exist so a leak shows up in a report long before
// it becomes a production incident.
const (
	DefaultMaxLSAs  = 1 << 16
	DefaultMaxPages = 1 << 20
)

// Counter is an atomically-updated count against a ceiling.
type Counter struct {
	ceiling int64
	held    int64
}

// NewCounter returns a Counter with the given ceiling.
func NewCounter(ceiling int64) *Counter {
	return &Counter{ceiling: ceiling}
}

// Take records n units taken and reports whether the ceiling was
// exceeded. Callers that only want observability ignore the bool.
func (c *Counter) Take(n int64) (withinCeiling bool) {
	v := atomic.AddInt64(&c.held, n)
	return v <= c.ceiling
}

// Give returns n units.
func (c *Counter) Give(n int64) {
	atomic.AddInt64(&c.held, -n)
}

// Held returns the current count.
func (c *Counter) Held() int64 {
	return atomic.LoadInt64(&c.held)
}

// Ceiling returns the configured ceiling.
func (c *Counter) Ceiling() int64 {
	return c.ceiling
}

// Budget groups the two counters the page manager reports on.
type Budget struct {
	LSAs  *Counter
	Pages *Counter
}

// New returns a Budget with the default ceilings.
func New() *Budget {
	return &Budget{
		LSAs:  NewCounter(DefaultMaxLSAs),
		Pages: NewCounter(DefaultMaxPages),
	}
}
