// Package tracing records the individual memory accesses of a simulation.
package tracing

import (
	"sync"

	"github.com/sarchlab/masim/pattern"
)

// An Access is one traced memory operation.
type Access struct {
	PhaseIndex int
	Thread     int
	Pattern    int
	Region     string
	Offset     uint64
	Mode       pattern.RWMode
	Read       byte
	Written    byte
}

// A Tracer receives accesses. Workers call Trace concurrently.
type Tracer interface {
	Trace(a Access)
}

// AccessFilter decides whether an access is traced.
type AccessFilter func(a Access) bool

// EveryNth keeps one access out of n of each thread, starting with the
// first one.
func EveryNth(n uint64) AccessFilter {
	if n <= 1 {
		return func(Access) bool { return true }
	}

	var (
		lock   sync.Mutex
		counts []uint64
	)

	return func(a Access) bool {
		lock.Lock()
		defer lock.Unlock()

		for len(counts) <= a.Thread {
			counts = append(counts, 0)
		}

		keep := counts[a.Thread]%n == 0
		counts[a.Thread]++

		return keep
	}
}
