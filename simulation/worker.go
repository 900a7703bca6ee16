package simulation

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/pkg/errors"
	"github.com/sarchlab/masim/pattern"
	"github.com/sarchlab/masim/phase"
	"github.com/sarchlab/masim/sim"
	"go.uber.org/atomic"
)

// deadlineCheckInterval is the number of accesses a worker performs between
// two clock reads.
const deadlineCheckInterval = 256

// activePhase is what the workers share while a phase runs. Nothing in it is
// written during the phase.
type activePhase struct {
	index     int
	table     *phase.Table
	resolvers []*pattern.Resolver
	payload   pattern.Payload
	sim       *Simulation
	traced    bool
}

// A worker is one simulated thread. It lives for the whole run and keeps its
// random number generator across phases.
type worker struct {
	thread   int
	rng      *rand.Rand
	accesses atomic.Uint64

	// keeps the loaded bytes alive
	sink byte
}

func newWorker(thread int, seed uint64) *worker {
	return &worker{
		thread: thread,
		rng:    rand.New(rand.NewPCG(seed, uint64(thread))),
	}
}

func (w *worker) reset() {
	w.accesses.Store(0)
}

func (w *worker) runPhase(
	p *activePhase,
	deadline time.Time,
) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoveredError(w.thread, r)
		}
	}()

	if !p.table.Selectable() {
		time.Sleep(time.Until(deadline))
		return nil
	}

	for time.Now().Before(deadline) {
		for range deadlineCheckInterval {
			w.step(p)
		}
	}

	return nil
}

func (w *worker) step(p *activePhase) {
	i := p.table.Select(w.rng)
	a := p.resolvers[i].Access(w.thread, w.rng, p.payload)
	w.sink ^= a.Read
	w.accesses.Inc()

	if !p.traced {
		return
	}

	p.sim.InvokeHook(sim.HookCtx{
		Domain: p.sim,
		Pos:    HookPosAccess,
		Item:   p.resolvers[i].Pattern(),
		Detail: AccessDetail{
			PhaseIndex: p.index,
			Thread:     w.thread,
			Pattern:    i,
			Access:     a,
		},
	})
}

func recoveredError(thread int, r any) error {
	if err, ok := r.(error); ok {
		return errors.Wrapf(err, "worker %d", thread)
	}

	return errors.Errorf("worker %d: %s", thread, fmt.Sprint(r))
}
