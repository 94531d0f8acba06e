// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package sim

import "testing"

// discardLink returns a Link whose far side is a no-op sink, enough for a
// Sender under test to have somewhere to post packets.
func discardLink() (*Link, *sinkElement) {
	sink := &sinkElement{}
	l := NewLink("test", 0.001, 0.001, sink, sink)
	return l, sink
}

type sinkElement struct {
	delivered []Packet
}

func (s *sinkElement) Deliver(pkt Packet) { s.delivered = append(s.delivered, pkt) }

func newTestSender(algo Algorithm) (*Sender, *TimerRegistry) {
	timers := NewTimerRegistry()
	s := NewSender(0, 1, algo, 65536, 0, timers)
	link, sink := discardLink()
	s.SetLink(link, sink)
	return s, timers
}

func ackPacket(ackNum Seq, rwnd Bytes, now Tick) Packet {
	return Packet{ACK: true, ACKNum: ackNum, RWnd: rwnd, Sent: now}
}

func TestSenderSlowStartGrowsExponentially(t *testing.T) {
	s, _ := newTestSender(Reno)
	s.Transmit(1)
	if s.cwnd != MSS {
		t.Fatalf("initial cwnd = %d, want %d", s.cwnd, MSS)
	}
	s.HandleAck(ackPacket(s.sndUna+Seq(MSS), 65536, 2), 2)
	if s.cwnd != 2*MSS {
		t.Fatalf("cwnd after 1 new ACK = %d, want %d", s.cwnd, 2*MSS)
	}
}

func TestSenderTahoeTripleDup(t *testing.T) {
	s, timers := newTestSender(Tahoe)
	s.Transmit(1) // sends seq [0, MSS)
	flightAtLoss := s.flightSize

	s.HandleAck(ackPacket(0, 65536, 2), 2)
	s.HandleAck(ackPacket(0, 65536, 3), 3)
	s.HandleAck(ackPacket(0, 65536, 4), 4) // 3rd dup: fast retransmit

	wantSsthresh := halve(flightAtLoss)
	if s.ssthresh != wantSsthresh {
		t.Errorf("ssthresh = %d, want %d", s.ssthresh, wantSsthresh)
	}
	if s.cwnd != MSS {
		t.Errorf("cwnd = %d, want %d", s.cwnd, MSS)
	}
	if s.mode != slowStart {
		t.Errorf("mode = %v, want slowStart", s.mode)
	}
	if !timers.Armed(s) {
		t.Error("expected RTO timer to remain armed after retransmit")
	}
}

func TestSenderRenoFastRecoveryDeflatesOnNewAck(t *testing.T) {
	s, _ := newTestSender(Reno)
	s.Transmit(1)
	s.HandleAck(ackPacket(0, 65536, 2), 2)
	s.HandleAck(ackPacket(0, 65536, 3), 3)
	s.HandleAck(ackPacket(0, 65536, 4), 4) // enters FastRecovery
	if s.mode != fastRecovery {
		t.Fatalf("mode = %v, want fastRecovery", s.mode)
	}
	inflated := s.cwnd
	s.HandleAck(ackPacket(0, 65536, 5), 5) // one more dup, inflate
	if s.cwnd != inflated+MSS {
		t.Errorf("cwnd after dup in recovery = %d, want %d", s.cwnd, inflated+MSS)
	}
	s.HandleAck(ackPacket(Seq(MSS), 65536, 6), 6) // new ACK: deflate, exit
	if s.mode != congestionAvoidance {
		t.Errorf("mode = %v, want congestionAvoidance", s.mode)
	}
	if s.cwnd != s.ssthresh {
		t.Errorf("cwnd = %d, want ssthresh %d", s.cwnd, s.ssthresh)
	}
}

func TestSenderNewRenoPartialAckStaysInRecovery(t *testing.T) {
	s, _ := newTestSender(NewReno)
	// Widen cwnd before the first Transmit call so two MSS-sized segments
	// go out in the same tick, leaving two outstanding when loss is
	// detected.
	s.cwnd = 2 * MSS
	s.Transmit(1)
	if s.flightSize != 2*MSS {
		t.Fatalf("flightSize = %d, want %d", s.flightSize, 2*MSS)
	}

	s.HandleAck(ackPacket(0, 65536, 2), 2)
	s.HandleAck(ackPacket(0, 65536, 3), 3)
	s.HandleAck(ackPacket(0, 65536, 4), 4) // 3rd dup, recover = snd_max = 2*MSS
	if s.recover != Seq(2*MSS) {
		t.Fatalf("recover = %d, want %d", s.recover, 2*MSS)
	}

	// Partial ACK: covers only the first segment.
	s.HandleAck(ackPacket(Seq(MSS), 65536, 5), 5)
	if s.mode != fastRecovery {
		t.Errorf("mode after partial ACK = %v, want fastRecovery", s.mode)
	}

	// Full ACK: covers through recover.
	s.HandleAck(ackPacket(Seq(2*MSS), 65536, 6), 6)
	if s.mode != congestionAvoidance {
		t.Errorf("mode after full ACK = %v, want congestionAvoidance", s.mode)
	}
	if s.cwnd != s.ssthresh {
		t.Errorf("cwnd after full ACK = %d, want ssthresh %d", s.cwnd, s.ssthresh)
	}
}

func TestSenderRTOResetsToSlowStart(t *testing.T) {
	s, timers := newTestSender(NewReno)
	// Simulate data outstanding without arming the timer via Transmit, so
	// onRTO (normally invoked by TimerRegistry.FireDue after it has
	// already removed the firing entry) can arm the next one itself.
	s.buf = append(s.buf, segment{seq: 0, size: MSS, sent: 1})
	s.flightSize = MSS
	s.sndNxt = Seq(MSS)
	s.sndMax = Seq(MSS)
	flightAtLoss := s.flightSize
	s.mode = fastRecovery // simulate being mid-recovery when the timer fires

	s.onRTO(10)

	if s.cwnd != MSS {
		t.Errorf("cwnd after RTO = %d, want %d", s.cwnd, MSS)
	}
	if want := halve(flightAtLoss); s.ssthresh != want {
		t.Errorf("ssthresh after RTO = %d, want %d", s.ssthresh, want)
	}
	if s.mode != slowStart {
		t.Errorf("mode after RTO = %v, want slowStart", s.mode)
	}
	if s.Timeouts != 1 {
		t.Errorf("Timeouts = %d, want 1", s.Timeouts)
	}
	if !timers.Armed(s) {
		t.Error("expected RTO timer rearmed after firing")
	}
}

func TestSenderKarnsRuleSkipsRetransmittedSamples(t *testing.T) {
	s, _ := newTestSender(Tahoe)
	s.Transmit(1)
	s.retransmit(0, 5) // mark the one outstanding segment as retransmitted
	before := s.srtt
	s.sampleRTT(Seq(MSS), 100)
	if s.srtt != before {
		t.Errorf("srtt changed from a retransmitted segment's ACK: got %d, want unchanged %d", s.srtt, before)
	}
}

func TestSenderEffectiveWindowBoundedByRwnd(t *testing.T) {
	s, _ := newTestSender(Tahoe)
	s.rwnd = MSS / 2
	if w := s.effectiveWindow(); w != MSS/2 {
		t.Errorf("effectiveWindow = %d, want %d", w, MSS/2)
	}
}
