// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright 2025 Pete Heist

package sim

import (
	"fmt"
	"log"
)

// ReportFlags is a bitmask gating which console trace lines are emitted,
// matching the external interface's REPORTING_* constants.
type ReportFlags int

const (
	ReportSimulator ReportFlags = 1 << iota
	ReportLinks
	ReportRouters
	ReportSenders
	ReportReceivers
	ReportRTO
)

// Reporter gates per-component trace lines behind ReportFlags, the same
// role the teacher's node.Logf plays for per-node trace output, widened
// here to a bitmask instead of an always-on log.
type Reporter struct {
	Flags ReportFlags
}

// logf emits a trace line if any of want is set in r.Flags.
func (r Reporter) logf(want ReportFlags, now Tick, format string, a ...any) {
	if r.Flags&want == 0 {
		return
	}
	log.Printf("%d: %s", now, fmt.Sprintf(format, a...))
}

// Simulator logs a REPORTING_SIMULATOR line.
func (r Reporter) Simulator(now Tick, format string, a ...any) { r.logf(ReportSimulator, now, format, a...) }

// Link logs a REPORTING_LINKS line.
func (r Reporter) Link(now Tick, format string, a ...any) { r.logf(ReportLinks, now, format, a...) }

// Router logs a REPORTING_ROUTERS line.
func (r Reporter) Router(now Tick, format string, a ...any) { r.logf(ReportRouters, now, format, a...) }

// Sender logs a REPORTING_SENDERS line.
func (r Reporter) Sender(now Tick, format string, a ...any) { r.logf(ReportSenders, now, format, a...) }

// Receiver logs a REPORTING_RECEIVERS line.
func (r Reporter) Receiver(now Tick, format string, a ...any) { r.logf(ReportReceivers, now, format, a...) }

// RTO logs a REPORTING_RTO line.
func (r Reporter) RTO(now Tick, format string, a ...any) { r.logf(ReportRTO, now, format, a...) }
