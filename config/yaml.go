package config

import (
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

func parseYAML(r io.Reader) (*Config, error) {
	cfg := &Config{}

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	err := dec.Decode(cfg)
	if err == io.EOF {
		return cfg, nil
	}

	if err != nil {
		if errors.Is(err, ErrSyntax) {
			return nil, err
		}

		return nil, errors.Wrap(ErrSyntax, err.Error())
	}

	return cfg, nil
}

func renderYAML(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	err := enc.Encode(cfg)
	if err != nil {
		return errors.Wrap(err, "cannot encode config")
	}

	return enc.Close()
}
