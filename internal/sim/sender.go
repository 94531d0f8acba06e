// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package sim

// mode is the Sender's current congestion-control phase.
type mode int

const (
	slowStart mode = iota
	congestionAvoidance
	fastRecovery
)

// segment is one outstanding, previously-transmitted byte range, kept in
// the retransmission buffer until acknowledged.
type segment struct {
	seq        Seq
	size       Bytes
	sent       Tick
	retransmit bool
}

// Sender is a TCP sender. The three congestion control algorithms differ
// only in their duplicate-ACK and recovery handling, so Sender is a single
// type carrying an Algorithm tag rather than a hierarchy of algorithm
// types; HandleAck and the duplicate-ACK path switch on Algo directly.
type Sender struct {
	Endpoint EndpointID
	Receiver EndpointID
	Algo     Algorithm

	// Data is the total number of payload bytes this sender has to
	// transmit; zero means unbounded (keeps sending for the run).
	Data Seq

	cwnd       Bytes
	ssthresh   Bytes
	flightSize Bytes
	rwnd       Bytes
	sndUna     Seq
	sndNxt     Seq
	sndMax     Seq
	recover    Seq
	dupAcks    int
	mode       mode

	buf []segment

	srtt, rttvar, rto Tick
	rtoSet            bool
	backoff           uint

	timers *TimerRegistry
	link   *Link
	from   NetworkElement

	// Counters, consumed by stats.
	BytesTransmitted   Bytes
	BytesRetransmitted Bytes
	Timeouts           int
}

// NewSender returns a new Sender using the given algorithm, addressing its
// receiver at the given endpoint, with an initial advertised window of
// rwnd and up to dataBytes of payload to send (0 = unbounded).
func NewSender(self, receiver EndpointID, algo Algorithm, rwnd Bytes, dataBytes Seq, timers *TimerRegistry) *Sender {
	return &Sender{
		Endpoint: self,
		Receiver: receiver,
		Algo:     algo,
		Data:     dataBytes,
		cwnd:     MSS,
		ssthresh: DefaultSsthresh,
		rwnd:     rwnd,
		rto:      MaxRTO,
		timers:   timers,
	}
}

// SetLink attaches the link a Sender transmits on and the NetworkElement
// (its owning Endpoint) it transmits as, so retransmissions triggered from
// ACK/timeout handling can be sent without threading a link through every
// call.
func (s *Sender) SetLink(link *Link, from NetworkElement) {
	s.link = link
	s.from = from
}

// CWnd returns the current congestion window, in bytes.
func (s *Sender) CWnd() Bytes { return s.cwnd }

// Ssthresh returns the current slow-start threshold, in bytes.
func (s *Sender) Ssthresh() Bytes { return s.ssthresh }

// FlightSize returns the current unacknowledged byte count.
func (s *Sender) FlightSize() Bytes { return s.flightSize }

// effectiveWindow returns the number of bytes this sender may still put in
// flight this tick.
func (s *Sender) effectiveWindow() Bytes {
	w := s.cwnd
	if s.rwnd < w {
		w = s.rwnd
	}
	w -= s.flightSize
	if w < 0 {
		return 0
	}
	return w
}

// Transmit emits as many MSS-sized segments as the effective window and
// remaining data allow, handing each to the sender's link. It also arms
// the RTO timer if none is running and data is outstanding.
func (s *Sender) Transmit(now Tick) {
	for s.effectiveWindow() >= MSS && s.hasMoreData() {
		size := MSS
		if s.Data > 0 {
			remaining := Bytes(s.Data - s.sndNxt)
			if remaining < size {
				size = remaining
			}
		}
		pkt := Packet{
			Dest: s.Receiver,
			Src:  s.Endpoint,
			Seq:  s.sndNxt,
			Size: size,
			Sent: now,
		}
		s.buf = append(s.buf, segment{seq: s.sndNxt, size: size, sent: now})
		s.flightSize += size
		s.sndNxt = pkt.NextSeq()
		if s.sndNxt > s.sndMax {
			s.sndMax = s.sndNxt
		}
		s.BytesTransmitted += pkt.Len()
		s.link.Send(s.from, pkt)
	}
	if s.flightSize > 0 && !s.timers.Armed(s) {
		s.timers.Arm(s, now+s.rtoInterval())
	}
}

// rtoInterval returns the retransmission timeout currently in effect,
// applying the exponential backoff multiplier accumulated since the last
// good RTT sample, capped at MaxRTO.
func (s *Sender) rtoInterval() Tick {
	v := s.rto
	for i := uint(0); i < s.backoff && v < MaxRTO; i++ {
		v *= 2
	}
	if v > MaxRTO {
		return MaxRTO
	}
	return v
}

// hasMoreData reports whether the sender has unsent payload remaining.
func (s *Sender) hasMoreData() bool {
	return s.Data == 0 || Seq(s.sndNxt) < s.Data
}

// HandleAck processes an inbound ACK, dispatching to the new-ACK or
// duplicate-ACK path and the algorithm-specific logic within.
func (s *Sender) HandleAck(pkt Packet, now Tick) {
	s.rwnd = pkt.RWnd
	if pkt.ACKNum > s.sndUna {
		s.onNewAck(pkt, now)
		return
	}
	if pkt.ACKNum == s.sndUna {
		s.onDupAck(now)
	}
}

// onNewAck advances snd_una, drains the retransmission buffer, updates the
// RTT estimate, grows or deflates cwnd depending on algorithm state, and
// rearms or cancels the RTO timer.
func (s *Sender) onNewAck(pkt Packet, now Tick) {
	acked := Bytes(pkt.ACKNum - s.sndUna)
	s.sampleRTT(pkt.ACKNum, now)
	s.sndUna = pkt.ACKNum
	s.drainAcked(pkt.ACKNum)
	s.flightSize -= acked
	if s.flightSize < 0 {
		s.flightSize = 0
	}
	s.dupAcks = 0

	switch s.mode {
	case slowStart:
		s.cwnd += MSS
		if s.cwnd >= s.ssthresh {
			s.mode = congestionAvoidance
		}
	case congestionAvoidance:
		inc := (MSS * MSS) / s.cwnd
		if inc == 0 {
			inc = 1
		}
		s.cwnd += inc
	case fastRecovery:
		s.onNewAckFastRecovery(pkt, acked, now)
	}

	if s.flightSize > 0 {
		if s.timers.Armed(s) {
			s.timers.Cancel(s)
		}
		s.timers.Arm(s, now+s.rtoInterval())
	} else if s.timers.Armed(s) {
		s.timers.Cancel(s)
	}
}

// onNewAckFastRecovery applies Reno's and NewReno's differing treatment of
// a new ACK arriving during fast recovery.
func (s *Sender) onNewAckFastRecovery(pkt Packet, acked Bytes, now Tick) {
	switch s.Algo {
	case NewReno:
		if Seq(pkt.ACKNum) >= s.recover {
			// Full ACK: deflate and exit fast recovery.
			s.cwnd = s.ssthresh
			s.mode = congestionAvoidance
			return
		}
		// Partial ACK: retransmit the segment now at snd_una, deflate by
		// the bytes just acknowledged but keep cwnd at least one MSS, and
		// remain in fast recovery.
		s.retransmit(s.sndUna, now)
		s.cwnd -= acked
		if s.cwnd < MSS {
			s.cwnd = MSS
		}
	default: // Reno
		s.cwnd = s.ssthresh
		s.mode = congestionAvoidance
	}
}

// onDupAck processes a duplicate ACK (ack_num == snd_una, no new data).
func (s *Sender) onDupAck(now Tick) {
	s.dupAcks++
	if s.mode == fastRecovery {
		// Reno/NewReno: each additional duplicate inflates cwnd by one MSS,
		// possibly opening the window for one more segment.
		s.cwnd += MSS
		return
	}
	if s.dupAcks != 3 {
		return
	}
	switch s.Algo {
	case Tahoe:
		s.ssthresh = halve(s.flightSize)
		s.cwnd = MSS
		s.retransmit(s.sndUna, now)
		s.mode = slowStart
	case Reno, NewReno:
		s.ssthresh = halve(s.flightSize)
		s.recover = s.sndMax
		s.retransmit(s.sndUna, now)
		s.cwnd = s.ssthresh + 3*MSS
		s.mode = fastRecovery
	}
}

// onRTO is invoked by the TimerRegistry when this sender's RTO timer
// expires.
func (s *Sender) onRTO(now Tick) {
	s.ssthresh = halve(s.flightSize)
	s.cwnd = MSS
	s.backoff++
	s.retransmit(s.sndUna, now)
	s.Timeouts++
	s.dupAcks = 0
	s.mode = slowStart
	if s.flightSize > 0 {
		s.timers.Arm(s, now+s.rtoInterval())
	}
}

// halve implements ssthresh = max(flightSize/2, 2*MSS).
func halve(flightSize Bytes) Bytes {
	h := flightSize / 2
	if h < 2*MSS {
		return 2 * MSS
	}
	return h
}

// retransmit resends the segment starting at seq, if still buffered,
// marking it so its RTT is never sampled (Karn's rule) and charging the
// retransmission counters.
func (s *Sender) retransmit(seq Seq, now Tick) {
	for i := range s.buf {
		if s.buf[i].seq == seq {
			s.buf[i].sent = now
			s.buf[i].retransmit = true
			pkt := Packet{
				Dest:       s.Receiver,
				Src:        s.Endpoint,
				Seq:        s.buf[i].seq,
				Size:       s.buf[i].size,
				Sent:       now,
				Retransmit: true,
			}
			s.BytesTransmitted += pkt.Len()
			s.BytesRetransmitted += pkt.Len()
			s.link.Send(s.from, pkt)
			return
		}
	}
}

// drainAcked removes every buffered segment fully covered by ackNum.
func (s *Sender) drainAcked(ackNum Seq) {
	i := 0
	for i < len(s.buf) && s.buf[i].seq+Seq(s.buf[i].size) <= ackNum {
		i++
	}
	if i > 0 {
		s.buf = s.buf[i:]
	}
}

// sampleRTT updates the RTO estimate from the segment acknowledged by
// ackNum, unless that segment was retransmitted (Karn's rule).
func (s *Sender) sampleRTT(ackNum Seq, now Tick) {
	for _, seg := range s.buf {
		if seg.seq+Seq(seg.size) == ackNum {
			if seg.retransmit {
				return
			}
			r := now - seg.sent
			s.updateRTO(r)
			return
		}
	}
}

// updateRTO applies the standard SRTT/RTTVAR smoothing to a fresh RTT
// sample and recomputes RTO, clamped to [MinRTO, MaxRTO].
func (s *Sender) updateRTO(r Tick) {
	if !s.rtoSet {
		s.srtt = r
		s.rttvar = r / 2
		s.rtoSet = true
	} else {
		diff := s.srtt - r
		if diff < 0 {
			diff = -diff
		}
		s.rttvar = (3*s.rttvar + diff) / 4
		s.srtt = (7*s.srtt + r) / 8
	}
	s.rto = s.srtt + 4*s.rttvar
	s.backoff = 0
	if s.rto < MinRTO {
		s.rto = MinRTO
	}
	if s.rto > MaxRTO {
		s.rto = MaxRTO
	}
}
