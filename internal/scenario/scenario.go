// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright 2025 Pete Heist

// Package scenario loads a batch of simulation runs from a YAML file, an
// optional alternative to specifying a single run's parameters on the
// command line.
package scenario

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Run describes one simulation run's parameters, with the same defaults
// and meaning as the positional command-line arguments.
type Run struct {
	Algorithm  string `yaml:"algorithm"`
	Iterations int    `yaml:"iterations"`
	Topology   string `yaml:"topology"`
	BufferSize int64  `yaml:"bufferSize,omitempty"`
	RcvWindow  int64  `yaml:"rcvWindow,omitempty"`
	NumClients int    `yaml:"numClients,omitempty"`
	NumRouters int    `yaml:"numRouters,omitempty"`
}

// File is the top-level shape of a scenario YAML file: a named list of
// runs, executed in order.
type File struct {
	Runs []Run `yaml:"runs"`
}

// Load reads and parses a scenario file from path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading scenario file %s", path)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrapf(err, "parsing scenario file %s", path)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks that every run names a non-empty algorithm, topology and
// a positive iteration count; all other fields fall back to the
// simulator's normal defaults when zero.
func (f *File) Validate() error {
	if len(f.Runs) == 0 {
		return errors.New("scenario file has no runs")
	}
	for i, r := range f.Runs {
		if r.Algorithm == "" {
			return errors.Errorf("run %d: algorithm is required", i)
		}
		if r.Topology == "" {
			return errors.Errorf("run %d: topology is required", i)
		}
		if r.Iterations <= 0 {
			return errors.Errorf("run %d: iterations must be positive", i)
		}
	}
	return nil
}
