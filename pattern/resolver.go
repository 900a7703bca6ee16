package pattern

import (
	"math/rand/v2"

	"github.com/pkg/errors"
)

// ErrThreadLimitExceeded is raised when a thread index or a thread count goes
// beyond the configured number of lanes.
var ErrThreadLimitExceeded = errors.New("thread limit exceeded")

// lane is the runtime state of one worker thread for one pattern. Only the
// owning worker reads or writes it.
type lane struct {
	last    uint64
	started bool

	// keeps each lane on its own cache line
	_ [48]byte
}

// A Resolver holds the per-thread runtime state of a pattern and computes the
// offsets each thread accesses.
type Resolver struct {
	pattern *Pattern
	lanes   []lane
}

// NewResolver creates a resolver with one lane for each of numThreads
// threads.
func NewResolver(p *Pattern, numThreads int) *Resolver {
	if numThreads < 0 {
		numThreads = 0
	}

	return &Resolver{
		pattern: p,
		lanes:   make([]lane, numThreads),
	}
}

// Pattern returns the pattern being resolved.
func (r *Resolver) Pattern() *Pattern {
	return r.pattern
}

// NumLanes returns the number of threads the resolver can serve.
func (r *Resolver) NumLanes() int {
	return len(r.lanes)
}

// NextOffset returns the offset that the given thread accesses next. Random
// patterns draw from rng, sequential patterns continue from the thread's
// previous offset, starting at 0.
//
// Passing a thread index outside the resolver's lanes is a programming error
// and panics with ErrThreadLimitExceeded.
func (r *Resolver) NextOffset(thread int, rng *rand.Rand) uint64 {
	r.threadMustBeInRange(thread)

	subSize := r.pattern.Region.SubSize()

	if r.pattern.RandomAccess {
		return rng.Uint64N(subSize)
	}

	l := &r.lanes[thread]
	if !l.started {
		l.started = true
		l.last = 0

		return 0
	}

	l.last = (l.last + r.pattern.Stride%subSize) % subSize

	return l.last
}

func (r *Resolver) threadMustBeInRange(thread int) {
	if thread < 0 || thread >= len(r.lanes) {
		panic(errors.Wrapf(ErrThreadLimitExceeded,
			"thread %d, pattern %s has %d lanes",
			thread, r.pattern, len(r.lanes)))
	}
}

// Access is the record of one memory operation.
type Access struct {
	Offset  uint64
	Mode    RWMode
	Read    byte
	Written byte
}

// Access resolves the next offset of the thread and performs the pattern's
// memory operation there. Reads happen before writes.
func (r *Resolver) Access(
	thread int,
	rng *rand.Rand,
	payload Payload,
) Access {
	offset := r.NextOffset(thread, rng)
	reg := r.pattern.Region

	a := Access{Offset: offset, Mode: r.pattern.RWMode}

	switch r.pattern.RWMode {
	case ReadOnly:
		a.Read = reg.Load(offset)
	case WriteOnly:
		var prior byte
		if payload.Policy == PayloadPrior {
			prior = reg.Load(offset)
		}

		a.Written = payload.value(offset, prior)
		reg.Store(offset, a.Written)
	case ReadWrite:
		a.Read = reg.Load(offset)
		a.Written = payload.value(offset, a.Read)
		reg.Store(offset, a.Written)
	}

	return a
}
