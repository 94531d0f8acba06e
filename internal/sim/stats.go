// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package sim

// Totals aggregates counters across every sender in a topology, matching
// the original's per-run (not per-client) statistics aggregation for the
// Cloud topology.
type Totals struct {
	BytesTransmitted   Bytes
	BytesRetransmitted Bytes
	Timeouts           int
}

// Totals sums every sender's counters in the topology.
func (t *Topology) Totals() Totals {
	var agg Totals
	for _, e := range t.Senders {
		agg.BytesTransmitted += e.Sender.BytesTransmitted
		agg.BytesRetransmitted += e.Sender.BytesRetransmitted
		agg.Timeouts += e.Sender.Timeouts
	}
	return agg
}

// PerSender returns each sender's individual counters, in Senders order,
// for per-client console reporting in the Cloud topology.
func (t *Topology) PerSender() []Totals {
	out := make([]Totals, len(t.Senders))
	for i, e := range t.Senders {
		out[i] = Totals{
			BytesTransmitted:   e.Sender.BytesTransmitted,
			BytesRetransmitted: e.Sender.BytesRetransmitted,
			Timeouts:           e.Sender.Timeouts,
		}
	}
	return out
}
