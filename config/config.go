// Package config reads and writes workload descriptions: the memory regions
// to allocate and the phases to run over them.
package config

import (
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sarchlab/masim/pattern"
	"github.com/sarchlab/masim/phase"
	"github.com/sarchlab/masim/region"
	"github.com/spf13/afero"
)

// ErrSyntax is returned when a config file cannot be parsed.
var ErrSyntax = errors.New("config syntax error")

// Format is the encoding of a config file.
type Format int

// The supported formats.
const (
	FormatText Format = iota
	FormatYAML
)

// FormatOf guesses the format of a config file from its extension. Anything
// that is not YAML is read as text.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatText
	}
}

// Region describes a memory region.
type Region struct {
	Name     string `yaml:"name"`
	Size     Size   `yaml:"size"`
	SubSize  Size   `yaml:"sub_size,omitempty"`
	DataFile string `yaml:"data_file,omitempty"`
}

func (r Region) spec() region.Spec {
	return region.Spec{
		Name:     r.Name,
		Size:     uint64(r.Size),
		SubSize:  uint64(r.SubSize),
		DataFile: r.DataFile,
	}
}

// Pattern describes an access pattern over a region.
type Pattern struct {
	Region      string `yaml:"region"`
	Random      bool   `yaml:"random"`
	Stride      uint64 `yaml:"stride"`
	Probability uint64 `yaml:"probability"`

	// RWMode is "ro", "wo", or "rw". Empty means "wo".
	RWMode string `yaml:"rw_mode,omitempty"`
}

// Phase describes a timed set of patterns.
type Phase struct {
	Name     string    `yaml:"name"`
	TimeMS   uint64    `yaml:"time_ms"`
	Threads  int       `yaml:"threads,omitempty"`
	Patterns []Pattern `yaml:"patterns,omitempty"`
}

// Config is a complete workload. The run options are only available in YAML
// configs; the command line overrides them.
type Config struct {
	Threads int     `yaml:"threads,omitempty"`
	Seed    *uint64 `yaml:"seed,omitempty"`
	Payload string  `yaml:"payload,omitempty"`
	Fill    *uint8  `yaml:"fill,omitempty"`

	Regions []Region `yaml:"regions"`
	Phases  []Phase  `yaml:"phases"`
}

// Load reads a config file from the operating system's file system.
func Load(path string) (*Config, error) {
	return LoadFs(afero.NewOsFs(), path)
}

// LoadFs reads a config file from the given file system.
func LoadFs(fs afero.Fs, path string) (*Config, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open config %s", path)
	}
	defer f.Close()

	cfg, err := Parse(f, FormatOf(path))
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}

	return cfg, nil
}

// Parse decodes a config.
func Parse(r io.Reader, format Format) (*Config, error) {
	switch format {
	case FormatYAML:
		return parseYAML(r)
	default:
		return parseText(r)
	}
}

// Render writes the config in the given format.
func Render(w io.Writer, cfg *Config, format Format) error {
	switch format {
	case FormatYAML:
		return renderYAML(w, cfg)
	default:
		return renderText(w, cfg)
	}
}

// WritePayload returns what write accesses store, starting from the default
// payload.
func (c *Config) WritePayload() (pattern.Payload, error) {
	payload := pattern.DefaultPayload()

	if c.Payload != "" {
		policy, err := pattern.ParsePayloadPolicy(c.Payload)
		if err != nil {
			return payload, err
		}

		payload.Policy = policy
	}

	if c.Fill != nil {
		payload.Fill = *c.Fill
	}

	return payload, nil
}

// Build creates the regions in the registry and returns the phases with
// their patterns bound to the regions.
func (c *Config) Build(registry *region.Registry) ([]*phase.Phase, error) {
	for _, r := range c.Regions {
		_, err := registry.Create(r.spec())
		if err != nil {
			return nil, err
		}
	}

	phases := make([]*phase.Phase, 0, len(c.Phases))
	for _, pc := range c.Phases {
		p, err := pc.build(registry)
		if err != nil {
			return nil, errors.Wrapf(err, "phase %s", pc.Name)
		}

		phases = append(phases, p)
	}

	return phases, nil
}

func (pc Phase) build(registry *region.Registry) (*phase.Phase, error) {
	p := &phase.Phase{
		Name:       pc.Name,
		Duration:   time.Duration(pc.TimeMS) * time.Millisecond,
		NumThreads: pc.Threads,
	}

	for i, pat := range pc.Patterns {
		reg, err := registry.Lookup(pat.Region)
		if err != nil {
			return nil, errors.Wrapf(err, "pattern %d", i)
		}

		mode := pattern.WriteOnly
		if pat.RWMode != "" {
			mode, err = pattern.ParseRWMode(pat.RWMode)
			if err != nil {
				return nil, errors.Wrapf(err, "pattern %d", i)
			}
		}

		p.Patterns = append(p.Patterns, &pattern.Pattern{
			Region:       reg,
			RandomAccess: pat.Random,
			Stride:       pat.Stride,
			Probability:  pat.Probability,
			RWMode:       mode,
		})
	}

	return p, nil
}
