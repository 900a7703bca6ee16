package tracing

import (
	"fmt"
	"reflect"

	"github.com/sarchlab/masim/pattern"
	"github.com/sarchlab/masim/sim"
	"github.com/sarchlab/masim/simulation"
)

// CollectTrace lets the tracer receive the accesses of a simulation. Accesses
// that the filter rejects are dropped; a nil filter keeps everything.
func CollectTrace(domain sim.Hookable, tracer Tracer, filter AccessFilter) {
	for _, hook := range domain.Hooks() {
		hook, ok := hook.(*traceHook)
		if ok && hook.t == tracer {
			panic(fmt.Sprintf(
				"domain already has tracer %s", reflect.TypeOf(tracer)))
		}
	}

	h := &traceHook{t: tracer, filter: filter}
	domain.AcceptHook(h)
}

// A traceHook is a hook that forwards accesses to a tracer.
type traceHook struct {
	t      Tracer
	filter AccessFilter
}

// ObservesAccesses makes the simulation report every access to the hook.
func (h *traceHook) ObservesAccesses() bool {
	return true
}

// Func calls the tracer when an access is reported.
func (h *traceHook) Func(ctx sim.HookCtx) {
	if ctx.Pos != simulation.HookPosAccess {
		return
	}

	p := ctx.Item.(*pattern.Pattern)
	d := ctx.Detail.(simulation.AccessDetail)

	a := Access{
		PhaseIndex: d.PhaseIndex,
		Thread:     d.Thread,
		Pattern:    d.Pattern,
		Region:     p.Region.Name(),
		Offset:     d.Access.Offset,
		Mode:       d.Access.Mode,
		Read:       d.Access.Read,
		Written:    d.Access.Written,
	}

	if h.filter != nil && !h.filter(a) {
		return
	}

	h.t.Trace(a)
}
