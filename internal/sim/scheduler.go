// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package sim

// Scheduler drives a Topology through a fixed number of ticks in the
// deterministic per-tick phase order of the original design: single
// threaded, no locks, no parallelism. Every invocation of an endpoint is
// followed by a check that fires every RTO timer due by the current tick,
// for all senders, not only the sender of the endpoint just processed;
// these checks are the only suspension point in the model.
type Scheduler struct {
	Topo     *Topology
	Now      Tick
	Reporter Reporter

	// OnTick, if set, is called once per tick after phase processing and
	// timer firing complete, e.g. to project counters to a metrics
	// registry. It never influences simulation state.
	OnTick func(Tick)

	priorDropped  []int
	priorTimeouts []int
}

// NewScheduler returns a Scheduler for topo, starting at tick 0.
func NewScheduler(topo *Topology) *Scheduler {
	return &Scheduler{
		Topo:          topo,
		priorDropped:  make([]int, len(topo.Routers)),
		priorTimeouts: make([]int, len(topo.Senders)),
	}
}

// Run advances the simulation for the given number of ticks.
func (s *Scheduler) Run(ticks int) {
	s.Reporter.Simulator(s.Now, "starting run of %d ticks, %s topology", ticks, s.Topo.Kind)
	for i := 0; i < ticks; i++ {
		s.Now++
		s.tick()
		s.traceCounters()
		if s.OnTick != nil {
			s.OnTick(s.Now)
		}
	}
	t := s.Topo.Totals()
	s.Reporter.Simulator(s.Now, "run complete: transmitted=%d retransmitted=%d timeouts=%d",
		t.BytesTransmitted, t.BytesRetransmitted, t.Timeouts)
}

// traceCounters logs a line for any router drop or sender timeout that
// occurred during the tick just completed.
func (s *Scheduler) traceCounters() {
	for i, r := range s.Topo.Routers {
		if r.Dropped != s.priorDropped[i] {
			s.Reporter.Router(s.Now, "%s dropped packet, occupancy=%d/%d", r.Name, r.Occupancy(), r.MaxBufferSize)
			s.priorDropped[i] = r.Dropped
		}
	}
	for i, e := range s.Topo.Senders {
		if e.Sender.Timeouts != s.priorTimeouts[i] {
			s.Reporter.RTO(s.Now, "%s RTO fired, cwnd=%d ssthresh=%d", e.Name, e.Sender.CWnd(), e.Sender.Ssthresh())
			s.priorTimeouts[i] = e.Sender.Timeouts
		}
	}
}

// tick executes one full phase-ordered round, per the component design's
// tick scheduler section. ACKs bypass router buffering on both the
// forward interleave and the explicit return path, by construction of
// Router.Deliver.
func (s *Scheduler) tick() {
	t := s.Topo

	// Phase 1: link nearest each sender delivers any ACK that matured
	// since the last tick.
	for _, l := range t.SenderLinks {
		l.Process(2)
	}

	// Phase 2: each sender endpoint handles those ACKs and produces new
	// segments.
	for _, e := range t.Senders {
		e.ProcessSend(s.Now)
		t.Timers.FireDue(s.Now)
		s.Reporter.Sender(s.Now, "%s cwnd=%d ssthresh=%d flight=%d", e.Name,
			e.Sender.CWnd(), e.Sender.Ssthresh(), e.Sender.FlightSize())
	}

	// Phase 3: same links carry the newly produced segments forward.
	for _, l := range t.SenderLinks {
		l.Process(1)
		s.Reporter.Link(s.Now, "%s in flight=%d", l.Name, l.InFlight())
	}

	// Phase 4: forward router chain, sender side to receiver side,
	// interleaved with the intermediate inter-router links.
	for i := 0; i < len(t.Routers); i++ {
		t.Routers[i].Process()
		if i < len(t.Routers)-1 {
			l := t.InterRouterLinks[i]
			l.Process(2)
			l.Process(1)
		}
	}

	// Phase 5: link(s) nearest the receiver side deliver matured segments.
	for _, l := range t.ReceiverLinks {
		l.Process(2)
		s.Reporter.Link(s.Now, "%s in flight=%d", l.Name, l.InFlight())
	}

	// Phase 6: each receiver endpoint accepts data and emits ACKs.
	for _, e := range t.Receivers {
		e.ProcessReceive(s.Now)
		t.Timers.FireDue(s.Now)
		s.Reporter.Receiver(s.Now, "%s rcvNxt=%d", e.Name, e.Receiver.RcvNxt())
	}

	// Phase 7: same links carry the new ACKs back toward the router chain.
	for _, l := range t.ReceiverLinks {
		l.Process(1)
	}

	// Phase 8: return path, routers in reverse, interleaved with links'
	// process(1) only; ACKs bypass queueing inside Router.Deliver, so
	// Process here only ever drains data still queued from phase 4.
	for i := len(t.Routers) - 1; i >= 0; i-- {
		t.Routers[i].Process()
		if i > 0 {
			t.InterRouterLinks[i-1].Process(1)
		}
	}
}
