package config

import (
	"strconv"
	"strings"

	"github.com/c2h5oh/datasize"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Size is a number of bytes. It is written as a plain byte count or with a
// unit suffix such as "4KB", "4KiB", or "1GB". Units are powers of 1024
// whether or not they are spelled with an "i".
type Size uint64

// ParseSize converts a byte count to a Size.
func ParseSize(s string) (Size, error) {
	s = strings.TrimSpace(s)

	n, err := strconv.ParseUint(s, 10, 64)
	if err == nil {
		return Size(n), nil
	}

	unit := s
	if strings.HasSuffix(strings.ToLower(unit), "ib") {
		unit = strings.ToUpper(unit[:len(unit)-2]) + "B"
	}

	var bs datasize.ByteSize
	err = bs.UnmarshalText([]byte(unit))
	if err != nil {
		return 0, errors.Wrapf(ErrSyntax, "invalid size %q", s)
	}

	return Size(bs.Bytes()), nil
}

func (s Size) String() string {
	return datasize.ByteSize(s).String()
}

// UnmarshalYAML accepts both integers and strings with units.
func (s *Size) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return errors.Wrapf(ErrSyntax, "line %d: size must be a scalar",
			value.Line)
	}

	size, err := ParseSize(value.Value)
	if err != nil {
		return errors.Wrapf(err, "line %d", value.Line)
	}

	*s = size

	return nil
}

// MarshalYAML writes sizes as plain byte counts.
func (s Size) MarshalYAML() (any, error) {
	return uint64(s), nil
}
