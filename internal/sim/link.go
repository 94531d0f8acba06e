// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package sim

// NetworkElement is anything a Link can deliver a matured packet to: a
// Router or an Endpoint.
type NetworkElement interface {
	Deliver(pkt Packet)
}

// inflight is a packet in transit on a Link, tagged with its remaining
// delay in tick-equivalents.
type inflight struct {
	pkt       Packet
	remaining float64
}

// Link holds packets in flight between two NetworkElements for a
// configurable transmission+propagation delay, expressed as fractions of
// one tick. A Link is bidirectional: "near" and "far" only name the two
// ends, and packets may travel either way (data one way, ACKs the other)
// independently, each with their own in-flight queue.
type Link struct {
	Name string
	// Tx is the transmission delay as a fraction of one tick.
	Tx float64
	// Tp is the propagation delay as a fraction of one tick.
	Tp float64

	Near NetworkElement
	Far  NetworkElement

	pendingNearToFar  []Packet
	pendingFarToNear  []Packet
	inflightNearToFar []inflight
	inflightFarToNear []inflight
}

// NewLink returns a new Link between near and far with the given delays.
func NewLink(name string, tx, tp float64, near, far NetworkElement) *Link {
	return &Link{Name: name, Tx: tx, Tp: tp, Near: near, Far: far}
}

// InFlight returns the number of packets currently in transit on the link,
// in either direction.
func (l *Link) InFlight() int {
	return len(l.inflightNearToFar) + len(l.inflightFarToNear)
}

// Send hands pkt to the link on behalf of from, which must be one of the
// link's two endpoints. The packet is queued for the next process(1) call,
// to travel toward whichever endpoint did not originate it.
func (l *Link) Send(from NetworkElement, pkt Packet) {
	if from == l.Near {
		l.pendingNearToFar = append(l.pendingNearToFar, pkt)
		return
	}
	l.pendingFarToNear = append(l.pendingFarToNear, pkt)
}

// Process implements the link's two-phase operation. mode 1 accepts
// packets handed to the link since the last process(1) call, starting
// their transit delay; mode 2 decays the remaining delay of in-flight
// packets by one tick and delivers any that have matured, in FIFO order.
func (l *Link) Process(mode int) {
	switch mode {
	case 1:
		for _, p := range l.pendingNearToFar {
			l.inflightNearToFar = append(l.inflightNearToFar, inflight{p, l.Tx + l.Tp})
		}
		l.pendingNearToFar = l.pendingNearToFar[:0]
		for _, p := range l.pendingFarToNear {
			l.inflightFarToNear = append(l.inflightFarToNear, inflight{p, l.Tx + l.Tp})
		}
		l.pendingFarToNear = l.pendingFarToNear[:0]
	case 2:
		l.inflightNearToFar = deliverMatured(l.inflightNearToFar, l.Far)
		l.inflightFarToNear = deliverMatured(l.inflightFarToNear, l.Near)
	}
}

// deliverMatured decays every packet's remaining delay by one tick and
// delivers matured packets from the head of list in order, stopping at
// the first packet that has not yet matured, so that a later packet is
// never delivered ahead of an earlier one still in flight.
func deliverMatured(list []inflight, dest NetworkElement) []inflight {
	for i := range list {
		list[i].remaining -= 1.0
	}
	i := 0
	for i < len(list) && list[i].remaining <= 0 {
		dest.Deliver(list[i].pkt)
		i++
	}
	if i == 0 {
		return list
	}
	rest := make([]inflight, len(list)-i)
	copy(rest, list[i:])
	return rest
}
