// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package sim

import "testing"

func TestRouterTailDropsOnOverflow(t *testing.T) {
	r := NewRouter("r0", MSS+HeaderLen) // room for exactly one data segment
	sink := &sinkElement{}
	l := NewLink("out", 0.001, 0.001, r, sink)
	r.AddForwardingTableEntry(1, l)

	r.Deliver(Packet{Dest: 1, Seq: 0, Size: MSS})
	if r.Occupancy() != MSS+HeaderLen {
		t.Fatalf("occupancy = %d, want %d", r.Occupancy(), MSS+HeaderLen)
	}
	r.Deliver(Packet{Dest: 1, Seq: Seq(MSS), Size: MSS}) // must overflow and drop
	if r.Dropped != 1 {
		t.Fatalf("Dropped = %d, want 1", r.Dropped)
	}
	if r.Occupancy() != MSS+HeaderLen {
		t.Fatalf("occupancy after drop = %d, want unchanged %d", r.Occupancy(), MSS+HeaderLen)
	}
}

func TestRouterACKsBypassBuffer(t *testing.T) {
	r := NewRouter("r0", 1) // a buffer too small for any data segment
	sink := &sinkElement{}
	l := NewLink("out", 0.001, 0.001, r, sink)
	r.AddForwardingTableEntry(1, l)

	r.Deliver(Packet{Dest: 1, ACK: true, ACKNum: 42})
	if r.Occupancy() != 0 {
		t.Fatalf("occupancy after ACK = %d, want 0", r.Occupancy())
	}
	l.Process(1)
	l.Process(2)
	if len(sink.delivered) != 1 || sink.delivered[0].ACKNum != 42 {
		t.Fatalf("ACK was not forwarded: %+v", sink.delivered)
	}
}

func TestRouterForwardingMissPanics(t *testing.T) {
	r := NewRouter("r0", DefaultBufferSize)
	r.Deliver(Packet{Dest: 99, Seq: 0, Size: MSS})
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on forwarding table miss")
		}
	}()
	r.Process()
}

func TestRouterOnePacketPerLinkPerPhase(t *testing.T) {
	r := NewRouter("r0", DefaultBufferSize)
	sink := &sinkElement{}
	l := NewLink("out", 0.001, 0.001, r, sink)
	r.AddForwardingTableEntry(1, l)

	r.Deliver(Packet{Dest: 1, Seq: 0, Size: MSS})
	r.Deliver(Packet{Dest: 1, Seq: Seq(MSS), Size: MSS})
	r.Process()
	if r.Occupancy() != MSS+HeaderLen {
		t.Fatalf("occupancy after one phase = %d, want %d (one packet left queued)", r.Occupancy(), MSS+HeaderLen)
	}
	r.Process()
	if r.Occupancy() != 0 {
		t.Fatalf("occupancy after second phase = %d, want 0", r.Occupancy())
	}
}
