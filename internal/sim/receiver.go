// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package sim

// Receiver tracks the highest in-order byte of a single incoming data
// stream and emits cumulative ACKs, with duplicate ACKs on out-of-order
// arrivals (data is not carried back on the reverse direction, per the
// unidirectional-transfer Non-goal — the reverse path carries ACKs only).
type Receiver struct {
	Endpoint EndpointID
	Sender   EndpointID // the endpoint an ACK should be addressed to

	rcvNxt     Seq
	window     Bytes
	outOfOrder map[Seq]Bytes // seq -> size, for segments buffered ahead of rcvNxt
}

// NewReceiver returns a new Receiver advertising the given window.
func NewReceiver(self, sender EndpointID, window Bytes) *Receiver {
	return &Receiver{
		Endpoint:   self,
		Sender:     sender,
		window:     window,
		outOfOrder: make(map[Seq]Bytes),
	}
}

// RcvNxt returns the highest in-order byte received so far.
func (r *Receiver) RcvNxt() Seq { return r.rcvNxt }

// Receive processes an inbound data segment and returns the ACK to send in
// response.
func (r *Receiver) Receive(pkt Packet, now Tick) Packet {
	switch {
	case pkt.Seq == r.rcvNxt:
		r.rcvNxt = pkt.NextSeq()
		r.drainContiguous()
	case pkt.Seq > r.rcvNxt:
		if _, ok := r.outOfOrder[pkt.Seq]; !ok {
			r.outOfOrder[pkt.Seq] = pkt.Size
		}
	default:
		// pkt.Seq < r.rcvNxt: retransmission of already-delivered data,
		// accepted silently.
	}
	return r.ack(now)
}

// drainContiguous advances rcvNxt over any out-of-order segments that have
// become contiguous.
func (r *Receiver) drainContiguous() {
	for {
		size, ok := r.outOfOrder[r.rcvNxt]
		if !ok {
			return
		}
		delete(r.outOfOrder, r.rcvNxt)
		r.rcvNxt += Seq(size)
	}
}

// outOfOrderBytes returns the total bytes currently buffered out of order.
func (r *Receiver) outOfOrderBytes() Bytes {
	var n Bytes
	for _, size := range r.outOfOrder {
		n += size
	}
	return n
}

// ack builds the cumulative ACK to emit after processing an arrival. The
// ACK is a duplicate, by definition, iff ACKNum is unchanged from the
// previous one sent; callers that care can compare successive ACKNum
// values themselves rather than have the receiver flag it.
func (r *Receiver) ack(now Tick) Packet {
	return Packet{
		Dest:   r.Sender,
		Src:    r.Endpoint,
		ACK:    true,
		ACKNum: r.rcvNxt,
		RWnd:   r.window - r.outOfOrderBytes(),
		Sent:   now,
	}
}
