package phase

import (
	"math/rand/v2"
	"sort"
)

// A Table is the runtime selection state of a phase: the lower bound of every
// pattern's range in the cumulative probability space. The ranges
// [Start(i), Start(i)+Probability) tile [0, Total()).
//
// A table never changes after Prepare returns, so any number of workers may
// call Select concurrently.
type Table struct {
	phase  *Phase
	starts []uint64
	total  uint64
}

// Prepare computes the selection table of a phase. It is called once each
// time the phase is activated, before any worker selects from it.
func Prepare(p *Phase) *Table {
	t := &Table{
		phase:  p,
		starts: make([]uint64, len(p.Patterns)),
	}

	for i, pat := range p.Patterns {
		t.starts[i] = t.total
		t.total += pat.Probability
	}

	return t
}

// Phase returns the phase the table was prepared from.
func (t *Table) Phase() *Phase {
	return t.phase
}

// Total returns the sum of all the pattern weights.
func (t *Table) Total() uint64 {
	return t.total
}

// Start returns the lower bound of the i-th pattern's range.
func (t *Table) Start(i int) uint64 {
	return t.starts[i]
}

// Selectable tells whether Select can be called.
func (t *Table) Selectable() bool {
	return t.total > 0
}

// Select draws a pattern index with a probability proportional to its
// weight. It panics if the table is not selectable.
func (t *Table) Select(rng *rand.Rand) int {
	if t.total == 0 {
		panic("phase " + t.phase.Name + " has no selectable pattern")
	}

	r := rng.Uint64N(t.total)

	// The first range that starts after r is one past the range holding r.
	// Zero-weight patterns share their start with the next pattern and are
	// skipped this way.
	i := sort.Search(len(t.starts), func(i int) bool {
		return t.starts[i] > r
	})

	return i - 1
}
