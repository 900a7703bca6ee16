package config

import (
	"github.com/pkg/errors"
	"github.com/sarchlab/masim/pattern"
	"github.com/sarchlab/masim/phase"
	"github.com/sarchlab/masim/region"
	"github.com/spf13/afero"
)

// Validate checks everything Build would check without allocating the
// regions. Data files are looked up in fs.
func (c *Config) Validate(fs afero.Fs) error {
	checker := region.NewChecker(fs)
	regions := make(map[string]Region, len(c.Regions))
	for _, r := range c.Regions {
		err := checker.Check(r.spec())
		if err != nil {
			return err
		}

		regions[r.Name] = r
	}

	for _, p := range c.Phases {
		weights := make([]uint64, len(p.Patterns))
		for i, pat := range p.Patterns {
			err := validatePattern(regions, pat)
			if err != nil {
				return errors.Wrapf(err, "phase %s, pattern %d", p.Name, i)
			}

			weights[i] = pat.Probability
		}

		err := phase.CheckWeights(weights)
		if err != nil {
			return errors.Wrapf(err, "phase %s", p.Name)
		}
	}

	return nil
}

func validatePattern(regions map[string]Region, pat Pattern) error {
	r, found := regions[pat.Region]
	if !found {
		return errors.Wrapf(region.ErrUnknownRegion, "region %s", pat.Region)
	}

	if r.Size == 0 {
		return errors.Wrapf(pattern.ErrConfig,
			"pattern refers to zero-length region %s", r.Name)
	}

	if pat.RWMode != "" {
		_, err := pattern.ParseRWMode(pat.RWMode)
		if err != nil {
			return err
		}
	}

	return nil
}
