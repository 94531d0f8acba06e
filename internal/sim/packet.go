// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package sim

// Packet is an immutable record carried between links, routers and
// endpoints. A Packet is either a data segment (ACK false) or an
// acknowledgment (ACK true); there are no SYN/FIN flags, since connection
// setup and teardown are not simulated.
type Packet struct {
	// Dest is the endpoint this packet is ultimately bound for, used by a
	// Router's forwarding table.
	Dest EndpointID
	// Src is the endpoint that originated this packet.
	Src EndpointID

	// Seq is the starting sequence number of the payload, valid for data
	// segments.
	Seq Seq
	// Size is the payload size in bytes, valid for data segments.
	Size Bytes

	// ACK marks this packet as an acknowledgment rather than a data segment.
	ACK bool
	// ACKNum is the cumulative next-expected byte, valid when ACK is set.
	ACKNum Seq
	// RWnd is the advertised receiver window, valid when ACK is set.
	RWnd Bytes

	// Sent is the tick this packet was handed to the network; a
	// retransmission carries the tick of the retransmission itself.
	Sent Tick
	// Retransmit marks this data segment as a retransmission, excluding it
	// from RTT sampling per Karn's rule.
	Retransmit bool
}

// Len returns the total wire size of the packet, including header
// overhead, for router buffer accounting and link timing.
func (p Packet) Len() Bytes {
	if p.ACK {
		return HeaderLen
	}
	return p.Size + HeaderLen
}

// NextSeq returns the sequence number immediately following this segment.
func (p Packet) NextSeq() Seq {
	return p.Seq + Seq(p.Size)
}
