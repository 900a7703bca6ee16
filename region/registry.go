package region

import (
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

var (
	// ErrConfig is returned when a region description is malformed or
	// inconsistent.
	ErrConfig = errors.New("invalid region configuration")

	// ErrUnknownRegion is returned when looking up a region that has not been
	// created.
	ErrUnknownRegion = errors.New("unknown region")
)

// A Registry owns the memory regions of a simulation. Regions must be created
// before the simulation starts; the registry is not safe for concurrent
// mutation.
type Registry struct {
	fs        afero.Fs
	regions   []*Region
	nameIndex map[string]int
}

// NewRegistry creates an empty registry that reads data files from the
// operating system's file system.
func NewRegistry() *Registry {
	return &Registry{
		fs:        afero.NewOsFs(),
		nameIndex: make(map[string]int),
	}
}

// WithFs makes the registry read data files from the given file system.
func (r *Registry) WithFs(fs afero.Fs) *Registry {
	r.fs = fs
	return r
}

// Create allocates a zero-initialized region and, if requested, fills it from
// its data file.
func (r *Registry) Create(spec Spec) (*Region, error) {
	err := r.specMustBeValid(spec)
	if err != nil {
		return nil, err
	}

	subSize := spec.SubSize
	if subSize == 0 {
		subSize = spec.Size
	}

	reg := &Region{
		name:     spec.Name,
		size:     spec.Size,
		subSize:  subSize,
		dataFile: spec.DataFile,
		buf:      make([]byte, spec.Size),
	}

	if spec.DataFile != "" {
		err = r.fill(reg)
		if err != nil {
			return nil, err
		}
	}

	r.regions = append(r.regions, reg)
	r.nameIndex[reg.name] = len(r.regions) - 1

	return reg, nil
}

func (r *Registry) specMustBeValid(spec Spec) error {
	err := spec.Validate()
	if err != nil {
		return err
	}

	if _, found := r.nameIndex[spec.Name]; found {
		return errDuplicated(spec.Name)
	}

	return nil
}

func (r *Registry) fill(reg *Region) error {
	f, err := r.fs.Open(reg.dataFile)
	if err != nil {
		return errDataFile(reg.name, reg.dataFile, err)
	}
	defer f.Close()

	n, err := io.ReadFull(f, reg.buf)
	if err != nil {
		return errShortDataFile(reg.name, reg.dataFile, uint64(n), reg.size)
	}

	return nil
}

// Lookup returns the region with the given name.
func (r *Registry) Lookup(name string) (*Region, error) {
	i, found := r.nameIndex[name]
	if !found {
		return nil, errors.Wrapf(ErrUnknownRegion, "region %s", name)
	}

	return r.regions[i], nil
}

// Regions returns all the regions in the order they were created.
func (r *Registry) Regions() []*Region {
	return r.regions
}

// TotalSize returns the number of bytes allocated by all the regions.
func (r *Registry) TotalSize() uint64 {
	var total uint64
	for _, reg := range r.regions {
		total += reg.size
	}

	return total
}

// Release drops the buffers of all the regions. The registry must not be used
// afterwards.
func (r *Registry) Release() {
	for _, reg := range r.regions {
		reg.buf = nil
	}

	r.regions = nil
	r.nameIndex = make(map[string]int)
}
