package tracing

import (
	"sort"
	"sync"

	"github.com/sarchlab/masim/pattern"
)

// RegionCount is the number of traced accesses to a region in one mode.
type RegionCount struct {
	Region string
	Mode   pattern.RWMode
	Count  uint64
}

// CountTracer counts the accesses to each region, per access mode.
type CountTracer struct {
	lock   sync.Mutex
	counts map[string]map[pattern.RWMode]uint64
}

// NewCountTracer creates a new CountTracer.
func NewCountTracer() *CountTracer {
	return &CountTracer{
		counts: make(map[string]map[pattern.RWMode]uint64),
	}
}

// Trace counts the access.
func (t *CountTracer) Trace(a Access) {
	t.lock.Lock()
	defer t.lock.Unlock()

	byMode, ok := t.counts[a.Region]
	if !ok {
		byMode = make(map[pattern.RWMode]uint64)
		t.counts[a.Region] = byMode
	}

	byMode[a.Mode]++
}

// Count returns the number of accesses to the region in the given mode.
func (t *CountTracer) Count(region string, mode pattern.RWMode) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.counts[region][mode]
}

// Counts returns all the counts, sorted by region name and mode.
func (t *CountTracer) Counts() []RegionCount {
	t.lock.Lock()
	defer t.lock.Unlock()

	var counts []RegionCount
	for region, byMode := range t.counts {
		for mode, n := range byMode {
			counts = append(counts, RegionCount{region, mode, n})
		}
	}

	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Region != counts[j].Region {
			return counts[i].Region < counts[j].Region
		}

		return counts[i].Mode < counts[j].Mode
	})

	return counts
}
