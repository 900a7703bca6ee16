package simulation

import (
	"strconv"

	"github.com/sarchlab/masim/datarecording"
)

// PhaseSummaryTable and ThreadAccessesTable are the tables a simulation
// writes its results into.
const (
	PhaseSummaryTable   = "phase_summary"
	ThreadAccessesTable = "thread_accesses"
)

// PhaseSummary is the recorded outcome of one phase.
type PhaseSummary struct {
	RunID      string
	PhaseIndex int
	Phase      string
	Threads    int
	DurationMS int64
	ElapsedMS  int64
	Accesses   uint64
}

// ThreadAccesses is the number of accesses one thread made in one phase.
type ThreadAccesses struct {
	RunID      string
	PhaseIndex int
	Phase      string
	Thread     int
	Accesses   uint64
}

func (s *Simulation) startRecording() {
	if s.dataRecorder == nil {
		return
	}

	s.dataRecorder.CreateTable(PhaseSummaryTable, PhaseSummary{})
	s.dataRecorder.CreateTable(ThreadAccessesTable, ThreadAccesses{})

	s.execRecorder = datarecording.NewExecRecorder(s.dataRecorder)
	s.execRecorder.Start()
	s.execRecorder.Add("Run ID", s.id)
	s.execRecorder.Add("Seed", strconv.FormatUint(s.seed, 10))
	s.execRecorder.Add("Max Threads", strconv.Itoa(s.maxThreads))
	s.execRecorder.Add("Payload", s.payload.String())
}

func (s *Simulation) recordPhase(r PhaseReport) {
	if s.dataRecorder == nil {
		return
	}

	s.dataRecorder.InsertData(PhaseSummaryTable, PhaseSummary{
		RunID:      s.id,
		PhaseIndex: r.Index,
		Phase:      r.Name,
		Threads:    r.Threads,
		DurationMS: r.Duration.Milliseconds(),
		ElapsedMS:  r.Elapsed.Milliseconds(),
		Accesses:   r.TotalAccesses(),
	})

	for thread, n := range r.Accesses {
		s.dataRecorder.InsertData(ThreadAccessesTable, ThreadAccesses{
			RunID:      s.id,
			PhaseIndex: r.Index,
			Phase:      r.Name,
			Thread:     thread,
			Accesses:   n,
		})
	}

	s.dataRecorder.Flush()
}

func (s *Simulation) endRecording() {
	if s.execRecorder == nil {
		return
	}

	s.execRecorder.End()
	s.execRecorder = nil
}
