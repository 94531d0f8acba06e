// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package sim

import "strconv"

// Topology owns every entity created for one simulation run: endpoints,
// links and routers live for the run's duration, constructed once and
// never torn down mid-run, per the data model's Lifecycle section.
type Topology struct {
	Kind TopologyKind

	Endpoints []*Endpoint
	Routers   []*Router // ordered sender side -> receiver side

	SenderLinks      []*Link // link nearest each sender endpoint
	ReceiverLinks    []*Link // link nearest each receiver endpoint
	InterRouterLinks []*Link // ordered, InterRouterLinks[i] joins Routers[i] and Routers[i+1]

	Senders   []*Endpoint // sending endpoints, in construction order
	Receivers []*Endpoint // receiving endpoints, index-paired with Senders

	Timers *TimerRegistry
}

// NewDirectTopology builds sender — L0 — R0 — ... — Rn-1 — Ln — receiver,
// with the link nearest the receiver carrying the bottleneck transmission
// delay (t_x = 0.01); every other link uses t_x = 0.001. All links use
// t_p = 0.001.
func NewDirectTopology(algo Algorithm, bufferSize, rcvWindow Bytes, numRouters int) *Topology {
	t := &Topology{Kind: Direct, Timers: NewTimerRegistry()}

	sender := NewEndpoint(0, "sender")
	receiver := NewEndpoint(1, "receiver")
	t.Endpoints = []*Endpoint{sender, receiver}

	sender.Sender = NewSender(sender.ID, receiver.ID, algo, rcvWindow, 0, t.Timers)
	receiver.Receiver = NewReceiver(receiver.ID, sender.ID, rcvWindow)

	for i := 0; i < numRouters; i++ {
		t.Routers = append(t.Routers, NewRouter(routerName(i), bufferSize))
	}

	senderLink := NewLink("senderLink", 0.001, 0.001, sender, t.Routers[0])
	t.SenderLinks = []*Link{senderLink}
	sender.SetLink(senderLink)

	for i := 0; i < numRouters-1; i++ {
		l := NewLink(routerName(i)+"-"+routerName(i+1), 0.001, 0.001, t.Routers[i], t.Routers[i+1])
		t.InterRouterLinks = append(t.InterRouterLinks, l)
	}

	receiverLink := NewLink("receiverLink", 0.01, 0.001, t.Routers[numRouters-1], receiver)
	t.ReceiverLinks = []*Link{receiverLink}
	receiver.SetLink(receiverLink)

	for i, r := range t.Routers {
		r.AddForwardingTableEntry(receiver.ID, t.outboundToward(i, numRouters, true))
		r.AddForwardingTableEntry(sender.ID, t.outboundToward(i, numRouters, false))
	}

	t.Senders = []*Endpoint{sender}
	t.Receivers = []*Endpoint{receiver}
	return t
}

// outboundToward returns the link router index i should use to forward a
// packet toward the receiver (towardReceiver true) or toward the sender
// (towardReceiver false), for the single-sender/single-receiver Direct
// topology.
func (t *Topology) outboundToward(i, numRouters int, towardReceiver bool) *Link {
	if towardReceiver {
		if i < numRouters-1 {
			return t.InterRouterLinks[i]
		}
		return t.ReceiverLinks[0]
	}
	if i > 0 {
		return t.InterRouterLinks[i-1]
	}
	return t.SenderLinks[0]
}

// NewCloudTopology builds numClients client/server pairs funneled through
// a shared chain of numRouters routers: each client has its own
// client-link into the first router, each server its own server-link out
// of the last router, client[j] is paired with server[j].
func NewCloudTopology(algo Algorithm, bufferSize, rcvWindow Bytes, numClients, numRouters int) *Topology {
	t := &Topology{Kind: Cloud, Timers: NewTimerRegistry()}

	var clientLinks, serverLinks []*Link
	for j := 0; j < numClients; j++ {
		client := NewEndpoint(EndpointID(len(t.Endpoints)), clientName(j))
		t.Endpoints = append(t.Endpoints, client)
		server := NewEndpoint(EndpointID(len(t.Endpoints)), serverName(j))
		t.Endpoints = append(t.Endpoints, server)

		client.Sender = NewSender(client.ID, server.ID, algo, rcvWindow, 0, t.Timers)
		server.Receiver = NewReceiver(server.ID, client.ID, rcvWindow)

		t.Senders = append(t.Senders, client)
		t.Receivers = append(t.Receivers, server)
		clientLinks = append(clientLinks, nil)
		serverLinks = append(serverLinks, nil)
	}

	for i := 0; i < numRouters; i++ {
		t.Routers = append(t.Routers, NewRouter(routerName(i), bufferSize))
	}

	for j := 0; j < numClients; j++ {
		l := NewLink(clientLinkName(j), 0.001, 0.001, t.Senders[j], t.Routers[0])
		clientLinks[j] = l
		t.Senders[j].SetLink(l)
	}
	t.SenderLinks = clientLinks

	for i := 0; i < numRouters-1; i++ {
		l := NewLink(routerName(i)+"-"+routerName(i+1), 0.001, 0.001, t.Routers[i], t.Routers[i+1])
		t.InterRouterLinks = append(t.InterRouterLinks, l)
	}

	for j := 0; j < numClients; j++ {
		l := NewLink(serverLinkName(j), 0.01, 0.001, t.Routers[numRouters-1], t.Receivers[j])
		serverLinks[j] = l
		t.Receivers[j].SetLink(l)
	}
	t.ReceiverLinks = serverLinks

	// Boundary entries: first router reaches each client directly, last
	// router reaches each server directly.
	for j := 0; j < numClients; j++ {
		t.Routers[0].AddForwardingTableEntry(t.Senders[j].ID, clientLinks[j])
		t.Routers[numRouters-1].AddForwardingTableEntry(t.Receivers[j].ID, serverLinks[j])
	}
	// Adjacent router-pair entries: router k forwards toward the receiver
	// side for every server over the link to router k+1; router k+1
	// forwards back toward the sender side for every client over the same
	// link.
	for k := 0; k < numRouters-1; k++ {
		for j := 0; j < numClients; j++ {
			t.Routers[k].AddForwardingTableEntry(t.Receivers[j].ID, t.InterRouterLinks[k])
			t.Routers[k+1].AddForwardingTableEntry(t.Senders[j].ID, t.InterRouterLinks[k])
		}
	}

	return t
}

func routerName(i int) string     { return "router" + strconv.Itoa(i) }
func clientName(j int) string     { return "client" + strconv.Itoa(j) }
func serverName(j int) string     { return "server" + strconv.Itoa(j) }
func clientLinkName(j int) string { return "clientLink" + strconv.Itoa(j) }
func serverLinkName(j int) string { return "serverLink" + strconv.Itoa(j) }
