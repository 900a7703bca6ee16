// Package pattern describes how offsets are picked inside a region and
// performs the reads and writes at those offsets.
package pattern

import (
	"github.com/pkg/errors"
	"github.com/sarchlab/masim/region"
)

// ErrConfig is the error wrapped when a pattern cannot be used.
var ErrConfig = region.ErrConfig

// RWMode is the kind of memory operation a pattern performs.
type RWMode int

// The supported read/write modes.
const (
	ReadOnly RWMode = iota
	WriteOnly
	ReadWrite
)

var rwModeNames = map[RWMode]string{
	ReadOnly:  "ro",
	WriteOnly: "wo",
	ReadWrite: "rw",
}

func (m RWMode) String() string {
	name, ok := rwModeNames[m]
	if !ok {
		return "unknown"
	}

	return name
}

// ParseRWMode converts "ro", "wo", or "rw" to a RWMode.
func ParseRWMode(s string) (RWMode, error) {
	for mode, name := range rwModeNames {
		if name == s {
			return mode, nil
		}
	}

	return 0, errors.Wrapf(ErrConfig, "unknown rw mode %q", s)
}

// A Pattern is the immutable description of one way to touch one region.
// Several patterns, in several phases, may refer to the same region.
type Pattern struct {
	Region *region.Region

	// RandomAccess makes offsets uniformly random inside the region's sub
	// size. Otherwise offsets advance by Stride and wrap around.
	RandomAccess bool
	Stride       uint64

	// Probability is the relative weight of the pattern among the patterns
	// of its phase.
	Probability uint64

	RWMode RWMode
}

// Validate checks that the pattern can be resolved.
func (p *Pattern) Validate() error {
	if p.Region == nil {
		return errors.Wrap(ErrConfig, "pattern is not bound to a region")
	}

	if p.Region.SubSize() == 0 {
		return errors.Wrapf(ErrConfig,
			"pattern refers to zero-length region %s", p.Region.Name())
	}

	if _, ok := rwModeNames[p.RWMode]; !ok {
		return errors.Wrapf(ErrConfig, "invalid rw mode %d", p.RWMode)
	}

	return nil
}

func (p *Pattern) String() string {
	kind := "seq"
	if p.RandomAccess {
		kind = "rnd"
	}

	name := "<nil>"
	if p.Region != nil {
		name = p.Region.Name()
	}

	return name + "/" + kind + "/" + p.RWMode.String()
}
