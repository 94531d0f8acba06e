// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright 2025 Pete Heist

// Command simulate runs the TCP congestion-control simulator: it parses a
// fixed set of positional arguments (or, alternatively, a YAML scenario
// batch), drives the simulation, appends a statistics row, and prints a
// console summary.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"tcpccsim/internal/scenario"
	"tcpccsim/internal/sim"
	"tcpccsim/internal/simmetrics"
	"tcpccsim/internal/stats"
)

// runParams mirrors the positional command-line contract exactly:
// Algorithm, Iterations, Topology, then four optional arguments.
type runParams struct {
	Algorithm  sim.Algorithm
	Iterations int
	Topology   sim.TopologyKind
	BufferSize sim.Bytes
	RcvWindow  sim.Bytes
	NumClients int
	NumRouters int
}

func main() {
	metricsAddr, args := extractFlag(os.Args[1:], "-metrics")
	scenarioPath, args := extractFlag(args, "-scenario")

	var m *simmetrics.Metrics
	if metricsAddr != "" {
		m = simmetrics.New()
		m.Serve(metricsAddr)
	}

	if scenarioPath != "" {
		if err := runScenario(scenarioPath, m); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	p, err := parseArgs(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}
	if err := runOne(p, m); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

const usage = `usage: simulate <Algorithm> <Iterations> <Topology> [BufferSize] [RcvWindow] [NumClients] [NumRouters]
       simulate -scenario <file.yaml>
  Algorithm: Tahoe | Reno | NewReno
  Topology:  Direct | Cloud`

// extractFlag pulls "-name value" out of args, if present, returning the
// value and the remaining arguments in order.
func extractFlag(args []string, name string) (string, []string) {
	for i, a := range args {
		if a == name && i+1 < len(args) {
			rest := append(append([]string{}, args[:i]...), args[i+2:]...)
			return args[i+1], rest
		}
	}
	return "", args
}

// parseArgs parses the strict positional argument contract, returning an
// error (never a panic) on any malformed or missing required argument.
func parseArgs(args []string) (runParams, error) {
	if len(args) < 3 {
		return runParams{}, errors.New("expected at least 3 arguments")
	}
	var p runParams
	var err error
	if p.Algorithm, err = sim.ParseAlgorithm(args[0]); err != nil {
		return runParams{}, err
	}
	if p.Iterations, err = strconv.Atoi(args[1]); err != nil || p.Iterations <= 0 {
		return runParams{}, errors.New("iterations must be a positive integer")
	}
	if p.Topology, err = sim.ParseTopologyKind(args[2]); err != nil {
		return runParams{}, err
	}

	p.BufferSize = sim.DefaultBufferSize
	p.RcvWindow = sim.DefaultRcvWindow
	p.NumClients = 1
	p.NumRouters = 1

	if len(args) > 3 {
		if p.BufferSize, err = parseBytes(args[3]); err != nil {
			return runParams{}, errors.Wrap(err, "invalid buffer size")
		}
	}
	if len(args) > 4 {
		if p.RcvWindow, err = parseBytes(args[4]); err != nil {
			return runParams{}, errors.Wrap(err, "invalid receiver window")
		}
	}
	if len(args) > 5 {
		if p.NumClients, err = strconv.Atoi(args[5]); err != nil || p.NumClients <= 0 {
			return runParams{}, errors.New("number of clients must be a positive integer")
		}
	}
	if len(args) > 6 {
		if p.NumRouters, err = strconv.Atoi(args[6]); err != nil || p.NumRouters <= 0 {
			return runParams{}, errors.New("number of routers must be a positive integer")
		}
	}
	return p, nil
}

func parseBytes(s string) (sim.Bytes, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return sim.Bytes(n), nil
}

// runOne executes a single run and appends its statistics row.
func runOne(p runParams, m *simmetrics.Metrics) error {
	topo := build(p)
	sched := sim.NewScheduler(topo)
	sched.Reporter = sim.Reporter{Flags: reportFlagsFromEnv()}
	if m != nil {
		sched.OnTick = func(sim.Tick) { m.Observe(topo) }
	}
	sched.Run(p.Iterations)

	totals := topo.Totals()
	row := stats.NewRow(p.Iterations, len(topo.Senders), len(topo.Routers), p.Algorithm.String(), totals)
	path := stats.FileName(p.Algorithm.String(), p.Topology.String())
	if err := stats.Append(path, row); err != nil {
		// Non-fatal per the error handling design: report and continue to
		// the console summary.
		fmt.Fprintln(os.Stderr, err)
	}

	printSummary(p, totals, topo)
	return nil
}

// runScenario executes every run named in a YAML scenario file in order.
func runScenario(path string, m *simmetrics.Metrics) error {
	f, err := scenario.Load(path)
	if err != nil {
		return err
	}
	for i, r := range f.Runs {
		p, err := paramsFromScenarioRun(r)
		if err != nil {
			return errors.Wrapf(err, "run %d", i)
		}
		if err := runOne(p, m); err != nil {
			return errors.Wrapf(err, "run %d", i)
		}
	}
	return nil
}

func paramsFromScenarioRun(r scenario.Run) (runParams, error) {
	var p runParams
	var err error
	if p.Algorithm, err = sim.ParseAlgorithm(r.Algorithm); err != nil {
		return p, err
	}
	if p.Topology, err = sim.ParseTopologyKind(r.Topology); err != nil {
		return p, err
	}
	p.Iterations = r.Iterations
	p.BufferSize = sim.DefaultBufferSize
	if r.BufferSize > 0 {
		p.BufferSize = sim.Bytes(r.BufferSize)
	}
	p.RcvWindow = sim.DefaultRcvWindow
	if r.RcvWindow > 0 {
		p.RcvWindow = sim.Bytes(r.RcvWindow)
	}
	p.NumClients = 1
	if r.NumClients > 0 {
		p.NumClients = r.NumClients
	}
	p.NumRouters = 1
	if r.NumRouters > 0 {
		p.NumRouters = r.NumRouters
	}
	return p, nil
}

// build constructs the topology named by p.
func build(p runParams) *sim.Topology {
	switch p.Topology {
	case sim.Cloud:
		return sim.NewCloudTopology(p.Algorithm, p.BufferSize, p.RcvWindow, p.NumClients, p.NumRouters)
	default:
		return sim.NewDirectTopology(p.Algorithm, p.BufferSize, p.RcvWindow, p.NumRouters)
	}
}

// printSummary prints the end-of-session console summary, and a
// per-client breakdown when REPORTING_SENDERS is enabled and the topology
// has more than one sender.
func printSummary(p runParams, totals sim.Totals, topo *sim.Topology) {
	throughput := float64(totals.BytesTransmitted) / 1048576.0 / float64(p.Iterations)
	var ratio float64
	if totals.BytesTransmitted > 0 {
		ratio = 100.0 * float64(totals.BytesRetransmitted) / float64(totals.BytesTransmitted)
	}
	fmt.Printf("Iterations: %d\n", p.Iterations)
	fmt.Printf("Senders: %d\n", len(topo.Senders))
	fmt.Printf("Routers: %d\n", len(topo.Routers))
	fmt.Printf("Throughput (MB/RTTs): %f\n", throughput)
	fmt.Printf("Retransmission Ratio (%% per MB): %f\n", ratio)
	fmt.Printf("Timeouts: %d\n", totals.Timeouts)

	if reportFlagsFromEnv()&sim.ReportSenders != 0 && len(topo.Senders) > 1 {
		for i, t := range topo.PerSender() {
			fmt.Printf("  %s: transmitted=%d retransmitted=%d timeouts=%d\n",
				topo.Senders[i].Name, t.BytesTransmitted, t.BytesRetransmitted, t.Timeouts)
		}
	}
}

// reportFlagsFromEnv reads SIMULATE_REPORTING as a comma-separated list of
// flag names, defaulting to no reporting. Kept out of the positional
// argument contract, which spec.md fixes exactly.
func reportFlagsFromEnv() sim.ReportFlags {
	var flags sim.ReportFlags
	for _, name := range strings.Split(os.Getenv("SIMULATE_REPORTING"), ",") {
		switch strings.ToUpper(strings.TrimSpace(name)) {
		case "SIMULATOR":
			flags |= sim.ReportSimulator
		case "LINKS":
			flags |= sim.ReportLinks
		case "ROUTERS":
			flags |= sim.ReportRouters
		case "SENDERS":
			flags |= sim.ReportSenders
		case "RECEIVERS":
			flags |= sim.ReportReceivers
		case "RTO":
			flags |= sim.ReportRTO
		}
	}
	return flags
}
