// Package ingest parses the two line-oriented input files the simulation
// reads at bootstrap: the intersections file (`<name>:<capacity>`) and the
// trains file (`<train_name>:<i1>,<i2>,...,<ik>`). Deliberately thin,
// logging a warning and skipping rather than failing on a malformed line,
// matching the original prototype's parseFile (original_source/Eric/
// Reading and Parsing FIles/trainFiles.cpp), which also just skips lines
// without a colon.
package ingest

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/railsim/railsim/internal/railsim"
)

// Warner receives a warning message for each skipped line, so the caller
// can route it through whatever Sink/logger it is using. Malformed lines
// are skipped with a warning, never fatal; blank lines are skipped silently.
type Warner interface {
	Warnf(format string, args ...any)
}

// nopWarner discards warnings; useful when a caller doesn't care.
type nopWarner struct{}

func (nopWarner) Warnf(string, ...any) {}

// Intersections reads the intersections file format, one `<name>:<capacity>`
// record per line. Blank lines are skipped silently; malformed lines,
// including a capacity that is not a positive integer, are skipped with a
// warning, never fatal - only NewModel (the validation boundary) raises a
// ConfigError, e.g. for a duplicate intersection name.
func Intersections(r io.Reader, warn Warner) ([]railsim.Intersection, error) {
	if warn == nil {
		warn = nopWarner{}
	}

	var out []railsim.Intersection
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		name, rest, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			warn.Warnf("ingest: intersections line %d: malformed, skipping: %q", lineNo, line)
			continue
		}

		capacity, err := strconv.Atoi(strings.TrimSpace(rest))
		if err != nil || capacity <= 0 {
			warn.Warnf("ingest: intersections line %d: invalid capacity, skipping: %q", lineNo, line)
			continue
		}

		out = append(out, railsim.Intersection{Name: name, Capacity: capacity})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Trains reads the trains file format, one `<train_name>:<i1>,<i2>,...`
// record per line. Blank lines are skipped silently; malformed lines are
// skipped with a warning.
func Trains(r io.Reader, warn Warner) ([]railsim.Train, error) {
	if warn == nil {
		warn = nopWarner{}
	}

	var out []railsim.Train
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		name, rest, ok := strings.Cut(line, ":")
		if !ok || name == "" {
			warn.Warnf("ingest: trains line %d: malformed, skipping: %q", lineNo, line)
			continue
		}

		parts := strings.Split(rest, ",")
		route := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				route = append(route, p)
			}
		}
		if len(route) == 0 {
			warn.Warnf("ingest: trains line %d: empty route, skipping: %q", lineNo, line)
			continue
		}

		out = append(out, railsim.Train{Name: name, Route: route})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
