package simulation

import (
	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/sarchlab/masim/phase"
	"github.com/sarchlab/masim/sim"
)

// PhaseLogger is a hook that logs the start and the end of every phase.
type PhaseLogger struct {
	logger log.Logger
}

// NewPhaseLogger creates a PhaseLogger that writes to logger.
func NewPhaseLogger(logger log.Logger) *PhaseLogger {
	return &PhaseLogger{logger: logger}
}

// Func logs phase boundaries and ignores everything else.
func (l *PhaseLogger) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case HookPosPhaseStart:
		p := ctx.Item.(*phase.Phase)
		start := ctx.Detail.(PhaseStart)
		level.Info(l.logger).Log(
			"msg", "phase started",
			"phase", p.Name,
			"index", start.Index,
			"threads", start.Threads,
			"duration", p.Duration,
			"patterns", len(p.Patterns))
	case HookPosPhaseEnd:
		r := ctx.Detail.(PhaseReport)
		level.Info(l.logger).Log(
			"msg", "phase finished",
			"phase", r.Name,
			"index", r.Index,
			"elapsed", r.Elapsed,
			"accesses", humanize.Comma(int64(r.TotalAccesses())),
			"rate", humanize.SIWithDigits(r.AccessRate(), 2, "access/s"))
	}
}
