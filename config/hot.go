package config

import (
	"fmt"
	"math/rand/v2"

	"github.com/pkg/errors"
)

// The defaults of the hot-region experiment.
const (
	DefaultHotRegions    = 100
	DefaultHotRegionSize = Size(1 << 30)
	DefaultHotPhases     = 10
	DefaultHotPhaseMS    = 60_000

	coldHotness     = 1
	hotHotnessBase  = 50
	hotHotnessDelta = 10
	hotStride       = 4096
)

// HotOptions controls the hot-region experiment generator.
type HotOptions struct {
	Regions    int
	RegionSize Size
	Phases     int
	PhaseMS    uint64

	// NumHot is the number of hot regions in each phase.
	NumHot int

	// Dynamic picks a new hot set in every phase instead of keeping the
	// first one.
	Dynamic bool

	// DiffHotness gives the i-th hot region a weight of 50 + 10*i instead
	// of 50.
	DiffHotness bool
}

// DefaultHotOptions returns the options of the original experiment with the
// given number of hot regions.
func DefaultHotOptions(numHot int) HotOptions {
	return HotOptions{
		Regions:    DefaultHotRegions,
		RegionSize: DefaultHotRegionSize,
		Phases:     DefaultHotPhases,
		PhaseMS:    DefaultHotPhaseMS,
		NumHot:     numHot,
	}
}

// GenerateHot creates a workload where a few regions are accessed much more
// often than the others. The first phase writes all the regions; each
// following phase reads them randomly, cold regions with weight 1 and hot
// regions with a larger weight.
func GenerateHot(opts HotOptions, rng *rand.Rand) (*Config, error) {
	if opts.Regions < 1 {
		return nil, errors.Wrapf(ErrSyntax,
			"need at least one region, got %d", opts.Regions)
	}

	if opts.NumHot < 1 || opts.NumHot > opts.Regions {
		return nil, errors.Wrapf(ErrSyntax,
			"number of hot regions must be between 1 and %d, got %d",
			opts.Regions, opts.NumHot)
	}

	cfg := &Config{}
	for i := 0; i < opts.Regions; i++ {
		cfg.Regions = append(cfg.Regions, Region{
			Name: fmt.Sprintf("r%d", i),
			Size: opts.RegionSize,
		})
	}

	initPhase := Phase{Name: "init_phase", TimeMS: opts.PhaseMS}
	for _, r := range cfg.Regions {
		initPhase.Patterns = append(initPhase.Patterns, Pattern{
			Region:      r.Name,
			Random:      true,
			Stride:      hotStride,
			Probability: 1,
			RWMode:      "wo",
		})
	}
	cfg.Phases = append(cfg.Phases, initPhase)

	hot := sampleRegions(rng, opts.Regions, opts.NumHot)
	for i := 0; i < opts.Phases; i++ {
		if opts.Dynamic && i > 0 {
			hot = sampleRegions(rng, opts.Regions, opts.NumHot)
		}

		cfg.Phases = append(cfg.Phases, hotPhase(opts, cfg.Regions, hot, i))
	}

	return cfg, nil
}

func hotPhase(opts HotOptions, regions []Region, hot []int, index int) Phase {
	weights := make(map[int]uint64, len(hot))
	for rank, r := range hot {
		weights[r] = hotHotnessBase
		if opts.DiffHotness {
			weights[r] += uint64(rank) * hotHotnessDelta
		}
	}

	p := Phase{Name: fmt.Sprintf("phase%d", index), TimeMS: opts.PhaseMS}
	for i, r := range regions {
		weight, isHot := weights[i]
		if !isHot {
			weight = coldHotness
		}

		p.Patterns = append(p.Patterns, Pattern{
			Region:      r.Name,
			Random:      true,
			Stride:      hotStride,
			Probability: weight,
			RWMode:      "ro",
		})
	}

	return p
}

// sampleRegions picks n distinct region indexes out of total.
func sampleRegions(rng *rand.Rand, total, n int) []int {
	return rng.Perm(total)[:n]
}
