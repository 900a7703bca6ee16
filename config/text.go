package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// noDataFile stands for an absent data file in the text format.
const noDataFile = "-"

type textLine struct {
	number int
	text   string
}

// parseText reads the line-oriented format. Sections are separated by blank
// lines. The first section lists the regions, one per line, as
//
//	name, size[, data_file[, sub_size]]
//
// and every following section is a phase: a name line, a duration line in
// milliseconds, and one line per pattern as
//
//	region, random, stride, probability[, rw_mode]
//
// A '#' starts a comment that runs to the end of the line.
func parseText(r io.Reader) (*Config, error) {
	sections, err := splitSections(r)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if len(sections) == 0 {
		return cfg, nil
	}

	for _, l := range sections[0] {
		reg, err := parseRegionLine(l)
		if err != nil {
			return nil, err
		}

		cfg.Regions = append(cfg.Regions, reg)
	}

	for _, section := range sections[1:] {
		p, err := parsePhaseSection(section)
		if err != nil {
			return nil, err
		}

		cfg.Phases = append(cfg.Phases, p)
	}

	return cfg, nil
}

func splitSections(r io.Reader) ([][]textLine, error) {
	var (
		sections [][]textLine
		current  []textLine
	)

	scanner := bufio.NewScanner(r)
	number := 0
	for scanner.Scan() {
		number++
		raw := scanner.Text()

		if strings.TrimSpace(raw) == "" {
			if len(current) > 0 {
				sections = append(sections, current)
				current = nil
			}

			continue
		}

		text := raw
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		current = append(current, textLine{number: number, text: text})
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "cannot read config")
	}

	if len(current) > 0 {
		sections = append(sections, current)
	}

	return sections, nil
}

func splitFields(l textLine, least, most int) ([]string, error) {
	fields := strings.Split(l.text, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	if len(fields) < least || len(fields) > most {
		return nil, errors.Wrapf(ErrSyntax,
			"line %d: expected %d to %d fields, got %d",
			l.number, least, most, len(fields))
	}

	return fields, nil
}

func parseRegionLine(l textLine) (Region, error) {
	fields, err := splitFields(l, 2, 4)
	if err != nil {
		return Region{}, err
	}

	reg := Region{Name: fields[0]}

	reg.Size, err = ParseSize(fields[1])
	if err != nil {
		return Region{}, errors.Wrapf(err, "line %d", l.number)
	}

	if len(fields) > 2 && fields[2] != noDataFile {
		reg.DataFile = fields[2]
	}

	if len(fields) > 3 {
		reg.SubSize, err = ParseSize(fields[3])
		if err != nil {
			return Region{}, errors.Wrapf(err, "line %d", l.number)
		}
	}

	return reg, nil
}

func parsePhaseSection(section []textLine) (Phase, error) {
	if len(section) < 2 {
		return Phase{}, errors.Wrapf(ErrSyntax,
			"line %d: a phase needs a name and a duration", section[0].number)
	}

	p := Phase{Name: section[0].text}

	var err error
	p.TimeMS, err = strconv.ParseUint(section[1].text, 10, 64)
	if err != nil {
		return Phase{}, errors.Wrapf(ErrSyntax,
			"line %d: invalid duration %q", section[1].number, section[1].text)
	}

	for _, l := range section[2:] {
		pat, err := parsePatternLine(l)
		if err != nil {
			return Phase{}, err
		}

		p.Patterns = append(p.Patterns, pat)
	}

	return p, nil
}

func parsePatternLine(l textLine) (Pattern, error) {
	fields, err := splitFields(l, 4, 5)
	if err != nil {
		return Pattern{}, err
	}

	pat := Pattern{Region: fields[0]}

	switch fields[1] {
	case "0":
	case "1":
		pat.Random = true
	default:
		return Pattern{}, errors.Wrapf(ErrSyntax,
			"line %d: randomness must be 0 or 1, got %q", l.number, fields[1])
	}

	pat.Stride, err = strconv.ParseUint(fields[2], 10, 64)
	if err != nil {
		return Pattern{}, errors.Wrapf(ErrSyntax,
			"line %d: invalid stride %q", l.number, fields[2])
	}

	pat.Probability, err = strconv.ParseUint(fields[3], 10, 64)
	if err != nil {
		return Pattern{}, errors.Wrapf(ErrSyntax,
			"line %d: invalid probability %q", l.number, fields[3])
	}

	if len(fields) > 4 {
		pat.RWMode = fields[4]
	}

	return pat, nil
}

func renderText(w io.Writer, cfg *Config) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "# regions: name, size[, data_file[, sub_size]]")
	for _, r := range cfg.Regions {
		fmt.Fprintf(bw, "%s, %d", r.Name, uint64(r.Size))

		switch {
		case r.SubSize != 0:
			dataFile := r.DataFile
			if dataFile == "" {
				dataFile = noDataFile
			}

			fmt.Fprintf(bw, ", %s, %d", dataFile, uint64(r.SubSize))
		case r.DataFile != "":
			fmt.Fprintf(bw, ", %s", r.DataFile)
		}

		fmt.Fprintln(bw)
	}

	for _, p := range cfg.Phases {
		fmt.Fprintln(bw)
		fmt.Fprintln(bw, "# phase: name, time_ms, then")
		fmt.Fprintln(bw, "# region, random, stride, probability, rw_mode")
		fmt.Fprintln(bw, p.Name)
		fmt.Fprintln(bw, p.TimeMS)

		for _, pat := range p.Patterns {
			random := 0
			if pat.Random {
				random = 1
			}

			mode := pat.RWMode
			if mode == "" {
				mode = "wo"
			}

			fmt.Fprintf(bw, "%s, %d, %d, %d, %s\n",
				pat.Region, random, pat.Stride, pat.Probability, mode)
		}
	}

	return bw.Flush()
}
