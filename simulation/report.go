package simulation

import "time"

// PhaseReport is the outcome of one executed phase.
type PhaseReport struct {
	Index    int
	Name     string
	Threads  int
	Duration time.Duration
	Elapsed  time.Duration

	// Accesses holds the number of accesses made by each thread.
	Accesses []uint64
}

// TotalAccesses sums the accesses of all the threads.
func (r PhaseReport) TotalAccesses() uint64 {
	var total uint64
	for _, n := range r.Accesses {
		total += n
	}

	return total
}

// AccessRate returns the number of accesses per second.
func (r PhaseReport) AccessRate() float64 {
	if r.Elapsed <= 0 {
		return 0
	}

	return float64(r.TotalAccesses()) / r.Elapsed.Seconds()
}

// Report is the outcome of a run.
type Report struct {
	RunID   string
	Phases  []PhaseReport
	Elapsed time.Duration
}

// TotalAccesses sums the accesses of all the phases.
func (r *Report) TotalAccesses() uint64 {
	var total uint64
	for _, p := range r.Phases {
		total += p.TotalAccesses()
	}

	return total
}
