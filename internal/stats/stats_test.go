// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright 2025 Pete Heist

package stats

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tcpccsim/internal/sim"
)

func TestNewRowComputesThroughputAndRatio(t *testing.T) {
	totals := sim.Totals{BytesTransmitted: 1048576, BytesRetransmitted: 10485, Timeouts: 2}
	row := NewRow(10, 1, 1, "Reno", totals)
	if row.Throughput != 0.1 {
		t.Errorf("Throughput = %f, want 0.1", row.Throughput)
	}
	wantRatio := 100.0 * 10485.0 / 1048576.0
	if row.RetransRatio != wantRatio {
		t.Errorf("RetransRatio = %f, want %f", row.RetransRatio, wantRatio)
	}
	if row.Timeouts != 2 {
		t.Errorf("Timeouts = %d, want 2", row.Timeouts)
	}
}

func TestNewRowZeroTransmittedHasZeroRatio(t *testing.T) {
	row := NewRow(10, 1, 1, "Tahoe", sim.Totals{})
	if row.RetransRatio != 0 {
		t.Errorf("RetransRatio = %f, want 0 when nothing was transmitted", row.RetransRatio)
	}
}

func TestFileName(t *testing.T) {
	if got, want := FileName("Reno", "Direct"), "statisticsRenoDirect.csv"; got != want {
		t.Errorf("FileName() = %q, want %q", got, want)
	}
}

func TestAppendWritesHeaderOnlyOnce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "statistics.csv")

	row := NewRow(20, 1, 1, "Tahoe", sim.Totals{BytesTransmitted: 2048})
	if err := Append(path, row); err != nil {
		t.Fatalf("first Append() error = %v", err)
	}
	if err := Append(path, row); err != nil {
		t.Fatalf("second Append() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading statistics file: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3 (header + 2 rows):\n%s", len(lines), data)
	}
	if !strings.HasPrefix(lines[0], "Number of Iterations") {
		t.Errorf("header row = %q", lines[0])
	}
	if strings.Contains(lines[1], "e+") || strings.Contains(lines[2], "e+") {
		t.Errorf("rows contain scientific notation:\n%s\n%s", lines[1], lines[2])
	}
}
