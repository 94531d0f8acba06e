// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package sim

import "testing"

// TestDirectNoLossUnderAmpleBuffer exercises seed scenario 1: with a buffer
// large enough that nothing is ever dropped, a direct single-router run
// should produce zero timeouts and zero retransmissions, and every sent
// byte should make it to the receiver.
func TestDirectNoLossUnderAmpleBuffer(t *testing.T) {
	topo := NewDirectTopology(Tahoe, 64*1024, DefaultRcvWindow, 1)
	sched := NewScheduler(topo)
	sched.Run(20)

	totals := topo.Totals()
	if totals.Timeouts != 0 {
		t.Errorf("Timeouts = %d, want 0 with an ample buffer", totals.Timeouts)
	}
	if totals.BytesRetransmitted != 0 {
		t.Errorf("BytesRetransmitted = %d, want 0 with an ample buffer", totals.BytesRetransmitted)
	}
	if totals.BytesTransmitted == 0 {
		t.Error("BytesTransmitted = 0, want the sender to have made progress over 20 ticks")
	}
	for _, r := range topo.Routers {
		if r.Dropped != 0 {
			t.Errorf("%s dropped %d packets, want 0", r.Name, r.Dropped)
		}
	}
}

// TestDirectSmallBufferForcesLossAndRecovery exercises seed scenario 2: a
// buffer too small to hold a full flight forces the router to drop, and
// the sender must recover via its algorithm's loss path rather than
// stalling forever.
func TestDirectSmallBufferForcesLossAndRecovery(t *testing.T) {
	for _, algo := range []Algorithm{Tahoe, Reno, NewReno} {
		t.Run(algo.String(), func(t *testing.T) {
			topo := NewDirectTopology(algo, 4*MSS, DefaultRcvWindow, 1)
			sched := NewScheduler(topo)
			sched.Run(200)

			totals := topo.Totals()
			if totals.BytesTransmitted == 0 {
				t.Fatal("BytesTransmitted = 0, sender made no progress")
			}
			if totals.BytesRetransmitted == 0 && totals.Timeouts == 0 {
				t.Error("expected at least one retransmission or timeout under a constrained buffer")
			}
			dropped := 0
			for _, r := range topo.Routers {
				dropped += r.Dropped
			}
			if dropped == 0 {
				t.Error("expected at least one router drop under a constrained buffer")
			}
		})
	}
}

// TestSenderInvariantsHoldThroughoutRun checks the invariants of spec
// section 8 after every tick of a lossy run: flight size never exceeds the
// smaller of cwnd and the advertised window, plus one segment, and
// snd_una <= snd_nxt <= snd_max at
// all times.
func TestSenderInvariantsHoldThroughoutRun(t *testing.T) {
	topo := NewDirectTopology(Reno, 3*MSS, DefaultRcvWindow, 1)
	sched := NewScheduler(topo)
	s := topo.Senders[0].Sender

	for i := 0; i < 300; i++ {
		sched.Run(1)

		win := s.cwnd
		if s.rwnd < win {
			win = s.rwnd
		}
		if s.flightSize > win+MSS {
			t.Fatalf("tick %d: flightSize %d exceeds min(cwnd,rwnd)+MSS = %d", i, s.flightSize, win+MSS)
		}
		if !(s.sndUna <= s.sndNxt && s.sndNxt <= s.sndMax) {
			t.Fatalf("tick %d: snd_una=%d snd_nxt=%d snd_max=%d out of order", i, s.sndUna, s.sndNxt, s.sndMax)
		}
	}
}

// TestCloudTopologyAggregatesAcrossClients exercises seed scenario 5: the
// combined run totals equal the sum of every client's individual counters.
func TestCloudTopologyAggregatesAcrossClients(t *testing.T) {
	topo := NewCloudTopology(NewReno, 6*MSS, DefaultRcvWindow, 4, 1)
	if len(topo.Senders) != 4 || len(topo.Receivers) != 4 {
		t.Fatalf("got %d senders / %d receivers, want 4 / 4", len(topo.Senders), len(topo.Receivers))
	}

	sched := NewScheduler(topo)
	sched.Run(50)

	totals := topo.Totals()
	var sum Totals
	for _, per := range topo.PerSender() {
		sum.BytesTransmitted += per.BytesTransmitted
		sum.BytesRetransmitted += per.BytesRetransmitted
		sum.Timeouts += per.Timeouts
	}
	if sum != totals {
		t.Errorf("per-sender sum %+v != aggregate totals %+v", sum, totals)
	}
}

// TestDirectChainedRoutersDelaysButDoesNotLoseData checks seed scenario 6:
// with an ample buffer at every hop, a longer router chain still delivers
// without loss, even though end-to-end delay grows with chain length.
func TestDirectChainedRoutersDelaysButDoesNotLoseData(t *testing.T) {
	topo := NewDirectTopology(Reno, 64*1024, DefaultRcvWindow, 10)
	if len(topo.Routers) != 10 {
		t.Fatalf("got %d routers, want 10", len(topo.Routers))
	}
	sched := NewScheduler(topo)
	sched.Run(50)

	totals := topo.Totals()
	if totals.BytesRetransmitted != 0 || totals.Timeouts != 0 {
		t.Errorf("chain of ample-buffer routers lost data: retransmitted=%d timeouts=%d",
			totals.BytesRetransmitted, totals.Timeouts)
	}
	for _, r := range topo.Routers {
		if r.Dropped != 0 {
			t.Errorf("%s dropped %d packets despite ample buffer", r.Name, r.Dropped)
		}
	}
}
