// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package sim

import "github.com/pkg/errors"

// ErrForwardingMiss is returned when a Router has no forwarding table
// entry for a packet's destination. Per the error handling design this is
// a fatal configuration error, not a recoverable condition.
var ErrForwardingMiss = errors.New("router: forwarding table miss")

// Router is a byte-budgeted FIFO queue with a destination-indexed
// forwarding table. Data segments are tail-dropped on overflow; ACKs
// bypass the queue entirely, a deliberate simplification (spec's Open
// Questions) that isolates loss behavior to the forward data path.
type Router struct {
	Name          string
	MaxBufferSize Bytes

	occupancy Bytes
	queue     []Packet

	forwardingTable map[EndpointID]*Link

	// Dropped counts data segments dropped for lack of buffer space.
	Dropped int
}

// NewRouter returns a new Router with the given byte budget.
func NewRouter(name string, maxBufferSize Bytes) *Router {
	return &Router{
		Name:            name,
		MaxBufferSize:   maxBufferSize,
		forwardingTable: make(map[EndpointID]*Link),
	}
}

// AddForwardingTableEntry routes packets destined for dest out over link.
func (r *Router) AddForwardingTableEntry(dest EndpointID, link *Link) {
	r.forwardingTable[dest] = link
}

// Occupancy returns the router's current queue occupancy in bytes.
func (r *Router) Occupancy() Bytes {
	return r.occupancy
}

// Deliver implements NetworkElement. ACKs bypass the queue and are handed
// directly to their outbound link; data segments are tail-dropped if they
// would exceed the buffer budget, otherwise enqueued.
func (r *Router) Deliver(pkt Packet) {
	if pkt.ACK {
		link, ok := r.forwardingTable[pkt.Dest]
		if !ok {
			panic(errors.Wrapf(ErrForwardingMiss, "router %s: no entry for endpoint %d", r.Name, pkt.Dest))
		}
		link.Send(r, pkt)
		return
	}
	if r.occupancy+pkt.Len() > r.MaxBufferSize {
		r.Dropped++
		return
	}
	r.occupancy += pkt.Len()
	r.queue = append(r.queue, pkt)
}

// Process drains as many head-of-queue data segments as it can forward
// this phase. Strict FIFO is preserved: a packet is only forwarded if its
// outbound link has not already received a packet this phase, and the
// queue never skips ahead of an undeliverable head packet.
func (r *Router) Process() {
	used := make(map[*Link]bool)
	for len(r.queue) > 0 {
		pkt := r.queue[0]
		link, ok := r.forwardingTable[pkt.Dest]
		if !ok {
			panic(errors.Wrapf(ErrForwardingMiss, "router %s: no entry for endpoint %d", r.Name, pkt.Dest))
		}
		if used[link] {
			break
		}
		r.queue = r.queue[1:]
		r.occupancy -= pkt.Len()
		link.Send(r, pkt)
		used[link] = true
	}
}
