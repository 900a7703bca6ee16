// Package phase defines the timed units of a simulation and the weighted
// selection of access patterns inside them.
package phase

import (
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/sarchlab/masim/pattern"
)

// A Phase is a named, timed set of weighted access patterns. A phase owns its
// patterns. A phase without selectable patterns only waits.
type Phase struct {
	Name     string
	Duration time.Duration

	// NumThreads overrides the simulation's thread count for this phase when
	// it is not zero.
	NumThreads int

	Patterns []*pattern.Pattern
}

// Validate checks the phase and all of its patterns.
func (p *Phase) Validate() error {
	if p.Duration < 0 {
		return errors.Wrapf(pattern.ErrConfig,
			"phase %s: negative duration %s", p.Name, p.Duration)
	}

	if p.NumThreads < 0 {
		return errors.Wrapf(pattern.ErrConfig,
			"phase %s: negative thread count %d", p.Name, p.NumThreads)
	}

	weights := make([]uint64, len(p.Patterns))
	for i, pat := range p.Patterns {
		err := pat.Validate()
		if err != nil {
			return errors.Wrapf(err, "phase %s, pattern %d", p.Name, i)
		}

		weights[i] = pat.Probability
	}

	err := CheckWeights(weights)
	if err != nil {
		return errors.Wrapf(err, "phase %s", p.Name)
	}

	return nil
}

// CheckWeights fails if the weights do not sum up to a uint64, in which case
// the selection ranges could not tile the probability space.
func CheckWeights(weights []uint64) error {
	var total uint64
	for i, w := range weights {
		if total > math.MaxUint64-w {
			return errors.Wrapf(pattern.ErrConfig,
				"the weight %d of pattern %d overflows the total weight",
				w, i)
		}

		total += w
	}

	return nil
}

// TotalProbability returns the sum of the pattern weights.
func (p *Phase) TotalProbability() uint64 {
	var total uint64
	for _, pat := range p.Patterns {
		total += pat.Probability
	}

	return total
}
