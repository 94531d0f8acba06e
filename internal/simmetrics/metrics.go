// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright 2025 Pete Heist

// Package simmetrics exposes an optional Prometheus registry projecting
// per-tick simulator counters for live observation during long runs. It
// never feeds back into simulation decisions: the simulator's determinism
// invariant holds regardless of whether this is wired in.
package simmetrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tcpccsim/internal/sim"
)

// Metrics holds the gauges updated once per tick.
type Metrics struct {
	registry *prometheus.Registry

	cwnd            *prometheus.GaugeVec
	ssthresh        *prometheus.GaugeVec
	routerOccupancy *prometheus.GaugeVec
	timeouts        *prometheus.GaugeVec
	retransmitted   *prometheus.GaugeVec
}

// New returns a new Metrics registered against a fresh Prometheus
// registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		cwnd: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tcpccsim_cwnd_bytes",
			Help: "Current congestion window, in bytes.",
		}, []string{"sender"}),
		ssthresh: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tcpccsim_ssthresh_bytes",
			Help: "Current slow-start threshold, in bytes.",
		}, []string{"sender"}),
		routerOccupancy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tcpccsim_router_occupancy_bytes",
			Help: "Current router queue occupancy, in bytes.",
		}, []string{"router"}),
		timeouts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tcpccsim_timeouts_total",
			Help: "Total RTO expirations observed for a sender.",
		}, []string{"sender"}),
		retransmitted: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tcpccsim_bytes_retransmitted_total",
			Help: "Total bytes retransmitted by a sender.",
		}, []string{"sender"}),
	}
	reg.MustRegister(m.cwnd, m.ssthresh, m.routerOccupancy, m.timeouts, m.retransmitted)
	return m
}

// Observe sets every gauge from the current state of topo. Timeout and
// retransmission totals are gauges, not counters: the simulator itself is
// the source of truth for those running totals, and Observe simply
// projects them.
func (m *Metrics) Observe(topo *sim.Topology) {
	for _, e := range topo.Senders {
		m.cwnd.WithLabelValues(e.Name).Set(float64(e.Sender.CWnd()))
		m.ssthresh.WithLabelValues(e.Name).Set(float64(e.Sender.Ssthresh()))
		m.timeouts.WithLabelValues(e.Name).Set(float64(e.Sender.Timeouts))
		m.retransmitted.WithLabelValues(e.Name).Set(float64(e.Sender.BytesRetransmitted))
	}
	for _, r := range topo.Routers {
		m.routerOccupancy.WithLabelValues(r.Name).Set(float64(r.Occupancy()))
	}
}

// Serve starts an HTTP server exposing the registry's /metrics endpoint on
// addr. It runs until the process exits or the listener fails; a failure
// is reported on the returned channel rather than panicking the
// simulation.
func (m *Metrics) Serve(addr string) <-chan error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	errc := make(chan error, 1)
	go func() {
		errc <- http.ListenAndServe(addr, mux)
	}()
	return errc
}
