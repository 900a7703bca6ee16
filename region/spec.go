package region

import (
	"io/fs"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Spec describes a region to create.
type Spec struct {
	Name string

	// Size is the number of bytes to allocate.
	Size uint64

	// SubSize bounds the offsets patterns may touch. Zero means Size.
	SubSize uint64

	// DataFile, if not empty, names a file whose first Size bytes are copied
	// verbatim into the region.
	DataFile string
}

// Validate checks the parts of the spec that do not depend on other regions
// or on the file system.
func (s Spec) Validate() error {
	if s.Name == "" {
		return errors.Wrap(ErrConfig, "region name is empty")
	}

	if s.SubSize > s.Size {
		return errors.Wrapf(ErrConfig,
			"region %s: sub size %d is larger than size %d",
			s.Name, s.SubSize, s.Size)
	}

	return nil
}

// CheckDataFile checks that the data file, if any, can provide Size bytes.
// Nothing is read.
func (s Spec) CheckDataFile(fsys afero.Fs) error {
	if s.DataFile == "" {
		return nil
	}

	info, err := fsys.Stat(s.DataFile)
	if err != nil {
		return errDataFile(s.Name, s.DataFile, err)
	}

	if uint64(info.Size()) < s.Size {
		return errShortDataFile(s.Name, s.DataFile, uint64(info.Size()), s.Size)
	}

	return nil
}

// A Checker validates a list of specs the way a Registry would create them,
// without allocating anything.
type Checker struct {
	fs    afero.Fs
	names map[string]bool
}

// NewChecker creates a Checker that looks data files up in fs.
func NewChecker(fsys afero.Fs) *Checker {
	return &Checker{
		fs:    fsys,
		names: make(map[string]bool),
	}
}

// Check validates the spec and remembers its name.
func (c *Checker) Check(spec Spec) error {
	err := spec.Validate()
	if err != nil {
		return err
	}

	if c.names[spec.Name] {
		return errDuplicated(spec.Name)
	}

	err = spec.CheckDataFile(c.fs)
	if err != nil {
		return err
	}

	c.names[spec.Name] = true

	return nil
}

func errDuplicated(name string) error {
	return errors.Wrapf(ErrConfig, "region %s already exists", name)
}

func errDataFile(name, file string, err error) error {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		err = pathErr.Err
	}

	return errors.Wrapf(ErrConfig,
		"region %s: cannot open data file %s: %s", name, file, err)
}

func errShortDataFile(name, file string, got, want uint64) error {
	return errors.Wrapf(ErrConfig,
		"region %s: data file %s provides %d of %d bytes",
		name, file, got, want)
}
