// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright 2025 Pete Heist

// Package stats writes the simulator's end-of-run CSV statistics row,
// appending to a file named for the algorithm and topology of the run and
// writing the header only the first time the file is created.
package stats

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"tcpccsim/internal/sim"
)

// Row is one run's worth of statistics, matching the CSV header's column
// order exactly.
type Row struct {
	Iterations   int
	Senders      int
	Routers      int
	Algorithm    string
	Throughput   float64 // MB / RTTs
	RetransRatio float64 // % per MB
	Timeouts     int
}

var header = []string{
	"Number of Iterations",
	"Number of Senders",
	"Number of Routers",
	"Congestion Avoidance Algorithm",
	"Throughput (MB/RTTs)",
	"Retransmission Ratio (% per MB)",
	"Timeouts",
}

// NewRow builds a Row from a run's raw totals.
func NewRow(iterations, senders, routers int, algo string, totals sim.Totals) Row {
	throughput := float64(totals.BytesTransmitted) / 1048576.0 / float64(iterations)
	var ratio float64
	if totals.BytesTransmitted > 0 {
		ratio = 100.0 * float64(totals.BytesRetransmitted) / float64(totals.BytesTransmitted)
	}
	return Row{
		Iterations:   iterations,
		Senders:      senders,
		Routers:      routers,
		Algorithm:    algo,
		Throughput:   throughput,
		RetransRatio: ratio,
		Timeouts:     totals.Timeouts,
	}
}

// FileName returns the statistics file name for the given algorithm and
// topology, e.g. "statisticsRenoDirect.csv".
func FileName(algorithm, topology string) string {
	return fmt.Sprintf("statistics%s%s.csv", algorithm, topology)
}

// Append writes row to the named file, appending a new row and writing the
// header only if the file did not already exist. A write failure here is
// non-fatal to the caller: the console summary is still produced, per the
// error handling design's "Stats file I/O failure" rule.
func Append(path string, row Row) error {
	_, statErr := os.Stat(path)
	exists := statErr == nil

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrapf(err, "opening statistics file %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if !exists {
		if err := w.Write(header); err != nil {
			return errors.Wrap(err, "writing statistics header")
		}
	}
	record := []string{
		fmt.Sprintf("%d", row.Iterations),
		fmt.Sprintf("%d", row.Senders),
		fmt.Sprintf("%d", row.Routers),
		row.Algorithm,
		fmt.Sprintf("%f", row.Throughput),
		fmt.Sprintf("%f", row.RetransRatio),
		fmt.Sprintf("%d", row.Timeouts),
	}
	if err := w.Write(record); err != nil {
		return errors.Wrap(err, "writing statistics row")
	}
	w.Flush()
	return errors.Wrap(w.Error(), "flushing statistics file")
}
