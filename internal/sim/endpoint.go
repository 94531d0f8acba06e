// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package sim

// Endpoint couples a Sender or a Receiver — this simulator only exercises
// one unidirectional transfer, so a sending endpoint carries a Sender and
// no Receiver, and a receiving endpoint the reverse — to a single Link,
// and routes each inbound packet delivered by that link to whichever side
// is present.
type Endpoint struct {
	ID   EndpointID
	Name string

	Sender   *Sender
	Receiver *Receiver

	link  *Link
	inbox []Packet
}

// NewEndpoint returns a new, unbound Endpoint.
func NewEndpoint(id EndpointID, name string) *Endpoint {
	return &Endpoint{ID: id, Name: name}
}

// SetLink attaches the Link this endpoint sends and receives over, and
// wires it into the endpoint's Sender, if any.
func (e *Endpoint) SetLink(link *Link) {
	e.link = link
	if e.Sender != nil {
		e.Sender.SetLink(link, e)
	}
}

// Deliver implements NetworkElement by queuing an arrived packet for the
// next ProcessSend/ProcessReceive call.
func (e *Endpoint) Deliver(pkt Packet) {
	e.inbox = append(e.inbox, pkt)
}

// ProcessSend implements the sending side of process(1): it first hands
// any ACKs that arrived on this tick's earlier link.Process(2) to the
// Sender, then lets the Sender produce new segments.
func (e *Endpoint) ProcessSend(now Tick) {
	e.drain(now)
	if e.Sender != nil {
		e.Sender.Transmit(now)
	}
}

// ProcessReceive implements process(2): drains any packet the link has
// delivered, handing data segments to the Receiver (emitting an ACK in
// response) and ACKs to the Sender.
func (e *Endpoint) ProcessReceive(now Tick) {
	e.drain(now)
}

// drain dispatches every packet queued by Deliver since the last drain.
func (e *Endpoint) drain(now Tick) {
	if len(e.inbox) == 0 {
		return
	}
	pkts := e.inbox
	e.inbox = nil
	for _, pkt := range pkts {
		switch {
		case pkt.ACK && e.Sender != nil:
			e.Sender.HandleAck(pkt, now)
		case !pkt.ACK && e.Receiver != nil:
			ack := e.Receiver.Receive(pkt, now)
			e.link.Send(e, ack)
		}
	}
}
