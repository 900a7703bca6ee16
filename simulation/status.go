package simulation

import "time"

// PhaseState tells how far a phase has gone.
type PhaseState string

// The states of a phase.
const (
	PhasePending PhaseState = "pending"
	PhaseRunning PhaseState = "running"
	PhaseDone    PhaseState = "done"
)

// PhaseStatus is a snapshot of one phase of the current or the last run.
type PhaseStatus struct {
	Index    int           `json:"index"`
	Name     string        `json:"name"`
	State    PhaseState    `json:"state"`
	Threads  int           `json:"threads"`
	Duration time.Duration `json:"duration_ns"`
	Elapsed  time.Duration `json:"elapsed_ns"`
	Accesses uint64        `json:"accesses"`
}

// Running tells whether Run is in progress.
func (s *Simulation) Running() bool {
	s.statusLock.Lock()
	defer s.statusLock.Unlock()

	return s.running
}

// Now returns the time since the current run started.
func (s *Simulation) Now() time.Duration {
	s.statusLock.Lock()
	defer s.statusLock.Unlock()

	if s.startTime.IsZero() {
		return 0
	}

	return time.Since(s.startTime)
}

// CurrentPhase returns the index of the running phase, or -1 if no phase is
// running.
func (s *Simulation) CurrentPhase() int {
	s.statusLock.Lock()
	defer s.statusLock.Unlock()

	if !s.running {
		return -1
	}

	return s.current
}

// Status returns a snapshot of every phase of the current or the last run.
// The access counts of the running phase are live.
func (s *Simulation) Status() []PhaseStatus {
	s.statusLock.Lock()
	defer s.statusLock.Unlock()

	status := make([]PhaseStatus, len(s.phases))
	for i, p := range s.phases {
		status[i] = PhaseStatus{
			Index:    i,
			Name:     p.Name,
			State:    PhasePending,
			Threads:  s.ThreadsOf(p),
			Duration: p.Duration,
		}

		switch {
		case i < len(s.reports):
			status[i].State = PhaseDone
			status[i].Elapsed = s.reports[i].Elapsed
			status[i].Accesses = s.reports[i].TotalAccesses()
		case s.running && i == s.current:
			status[i].State = PhaseRunning
			status[i].Elapsed = time.Since(s.phaseStart)
			status[i].Accesses = s.liveAccesses(status[i].Threads)
		}
	}

	return status
}

func (s *Simulation) liveAccesses(threads int) uint64 {
	var total uint64
	for _, w := range s.workers[:threads] {
		total += w.accesses.Load()
	}

	return total
}
