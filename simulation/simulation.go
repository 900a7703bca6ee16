// Package simulation runs phases of weighted memory access patterns on
// concurrent workers.
package simulation

import (
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/sarchlab/masim/datarecording"
	"github.com/sarchlab/masim/pattern"
	"github.com/sarchlab/masim/phase"
	"github.com/sarchlab/masim/sim"
	"golang.org/x/sync/errgroup"
)

// ErrThreadLimitExceeded is returned by Run when a phase asks for more worker
// threads than the simulation allows.
var ErrThreadLimitExceeded = pattern.ErrThreadLimitExceeded

// HookPosPhaseStart is invoked before the workers of a phase start. The item
// is the *phase.Phase and the detail is a PhaseStart.
var HookPosPhaseStart = &sim.HookPos{Name: "PhaseStart"}

// HookPosPhaseEnd is invoked after all the workers of a phase have joined.
// The item is the *phase.Phase and the detail is a PhaseReport.
var HookPosPhaseEnd = &sim.HookPos{Name: "PhaseEnd"}

// HookPosAccess is invoked by a worker after each memory access. The item is
// the *pattern.Pattern and the detail is an AccessDetail. Only hooks that
// implement AccessObserver receive it, since it slows the workers down
// considerably.
var HookPosAccess = &sim.HookPos{Name: "Access"}

// AccessObserver is implemented by hooks that want to see every access.
type AccessObserver interface {
	sim.Hook
	ObservesAccesses() bool
}

// PhaseStart is the detail of HookPosPhaseStart.
type PhaseStart struct {
	Index    int
	Threads  int
	Deadline time.Time
}

// AccessDetail is the detail of HookPosAccess.
type AccessDetail struct {
	PhaseIndex int
	Thread     int
	Pattern    int
	Access     pattern.Access
}

// A Simulation drives worker threads through an ordered list of phases.
type Simulation struct {
	sim.HookableBase

	id         string
	numThreads int
	maxThreads int
	seed       uint64
	payload    pattern.Payload
	logger     log.Logger

	dataRecorder datarecording.DataRecorder
	ownsRecorder bool
	execRecorder *datarecording.ExecRecorder

	workers   []*worker
	resolvers [][]*pattern.Resolver

	statusLock sync.Mutex
	phases     []*phase.Phase
	reports    []PhaseReport
	current    int
	startTime  time.Time
	phaseStart time.Time
	running    bool
}

// ID returns the unique identifier of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// NumThreads returns the default number of worker threads per phase.
func (s *Simulation) NumThreads() int {
	return s.numThreads
}

// MaxThreads returns the upper bound of worker threads per phase.
func (s *Simulation) MaxThreads() int {
	return s.maxThreads
}

// GetDataRecorder returns the data recorder used in the simulation, if any.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// ThreadsOf returns the number of worker threads the phase runs with.
func (s *Simulation) ThreadsOf(p *phase.Phase) int {
	if p.NumThreads > 0 {
		return p.NumThreads
	}

	return s.numThreads
}

// Validate checks that the phases can be run, without running them.
func (s *Simulation) Validate(phases []*phase.Phase) error {
	for _, p := range phases {
		threads := s.ThreadsOf(p)
		if threads < 1 {
			return errors.Wrapf(pattern.ErrConfig,
				"phase %s: %d threads", p.Name, threads)
		}

		if threads > s.maxThreads {
			return errors.Wrapf(ErrThreadLimitExceeded,
				"phase %s: %d threads, at most %d allowed",
				p.Name, threads, s.maxThreads)
		}

		err := p.Validate()
		if err != nil {
			return err
		}
	}

	return nil
}

// Run executes the phases in order. Each phase runs for its duration on its
// worker threads, and all the workers join before the next phase starts.
// Configuration problems are reported before any phase executes.
func (s *Simulation) Run(phases []*phase.Phase) (*Report, error) {
	err := s.Validate(phases)
	if err != nil {
		return nil, err
	}

	s.prepare(phases)

	level.Info(s.logger).Log(
		"msg", "simulation started",
		"run_id", s.id,
		"phases", len(phases),
		"workers", len(s.workers))

	report := &Report{RunID: s.id}
	for i, p := range phases {
		pr, err := s.runPhase(i, p)
		if err != nil {
			s.finish()
			return nil, err
		}

		report.Phases = append(report.Phases, pr)
	}

	report.Elapsed = s.finish()

	level.Info(s.logger).Log(
		"msg", "simulation finished",
		"run_id", s.id,
		"elapsed", report.Elapsed,
		"accesses", report.TotalAccesses())

	return report, nil
}

func (s *Simulation) prepare(phases []*phase.Phase) {
	lanes := 0
	s.resolvers = make([][]*pattern.Resolver, len(phases))

	for i, p := range phases {
		threads := s.ThreadsOf(p)
		if threads > lanes {
			lanes = threads
		}

		s.resolvers[i] = make([]*pattern.Resolver, len(p.Patterns))
		for j, pat := range p.Patterns {
			s.resolvers[i][j] = pattern.NewResolver(pat, threads)
		}
	}

	s.workers = make([]*worker, lanes)
	for i := range s.workers {
		s.workers[i] = newWorker(i, s.seed)
	}

	s.startRecording()

	s.statusLock.Lock()
	s.phases = phases
	s.reports = nil
	s.current = -1
	s.startTime = time.Now()
	s.running = true
	s.statusLock.Unlock()
}

func (s *Simulation) runPhase(index int, p *phase.Phase) (PhaseReport, error) {
	threads := s.ThreadsOf(p)
	table := phase.Prepare(p)
	active := &activePhase{
		index:     index,
		table:     table,
		resolvers: s.resolvers[index],
		payload:   s.payload,
		sim:       s,
		traced:    s.hasAccessHooks(),
	}
	workers := s.workers[:threads]

	for _, w := range workers {
		w.reset()
	}

	start := time.Now()
	deadline := start.Add(p.Duration)

	s.statusLock.Lock()
	s.current = index
	s.phaseStart = start
	s.statusLock.Unlock()

	s.InvokeHook(sim.HookCtx{
		Domain: s,
		Pos:    HookPosPhaseStart,
		Item:   p,
		Detail: PhaseStart{Index: index, Threads: threads, Deadline: deadline},
	})

	var g errgroup.Group
	for _, w := range workers {
		g.Go(func() error {
			return w.runPhase(active, deadline)
		})
	}

	err := g.Wait()
	if err != nil {
		return PhaseReport{}, errors.Wrapf(err, "phase %s", p.Name)
	}

	pr := PhaseReport{
		Index:    index,
		Name:     p.Name,
		Threads:  threads,
		Duration: p.Duration,
		Elapsed:  time.Since(start),
		Accesses: make([]uint64, threads),
	}
	for i, w := range workers {
		pr.Accesses[i] = w.accesses.Load()
	}

	s.statusLock.Lock()
	s.reports = append(s.reports, pr)
	s.statusLock.Unlock()

	s.recordPhase(pr)

	s.InvokeHook(sim.HookCtx{
		Domain: s,
		Pos:    HookPosPhaseEnd,
		Item:   p,
		Detail: pr,
	})

	return pr, nil
}

func (s *Simulation) hasAccessHooks() bool {
	for _, h := range s.Hooks() {
		o, ok := h.(AccessObserver)
		if ok && o.ObservesAccesses() {
			return true
		}
	}

	return false
}

func (s *Simulation) finish() time.Duration {
	s.statusLock.Lock()
	s.running = false
	s.current = -1
	elapsed := time.Since(s.startTime)
	s.statusLock.Unlock()

	s.endRecording()

	return elapsed
}

// Terminate releases the resources held by the simulation.
func (s *Simulation) Terminate() {
	if s.dataRecorder != nil && s.ownsRecorder {
		err := s.dataRecorder.Close()
		if err != nil {
			level.Error(s.logger).Log("msg", "cannot close data recorder",
				"err", err)
		}
	}
}
