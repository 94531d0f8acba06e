// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package sim

import "sort"

// timerState is the lifecycle state of a pending timer.
type timerState int

const (
	running timerState = iota
	cancelled
	fired
)

// timerEntry is a single scheduled callback, keyed by firing tick and the
// identity of the sender that owns it.
type timerEntry struct {
	at     Tick
	owner  *Sender
	state  timerState
}

// TimerRegistry is the scheduler-owned ordered list of pending timers. It
// is the only place a timer lives: components hold no timer handle beyond
// the sender they belong to, matching the "timer registry" design note —
// at most one RTO timer exists per sender at any time.
type TimerRegistry struct {
	entries  []*timerEntry
	bySender map[*Sender]*timerEntry
}

// NewTimerRegistry returns a new, empty TimerRegistry.
func NewTimerRegistry() *TimerRegistry {
	return &TimerRegistry{
		bySender: make(map[*Sender]*timerEntry),
	}
}

// Arm schedules s's RTO timer to fire at tick at. Arming an already-armed
// timer for the same sender is a programmer error: the simulation's timer
// invariant (at most one RTO timer per sender) has been violated upstream,
// so this panics rather than silently replacing the prior timer.
func (r *TimerRegistry) Arm(s *Sender, at Tick) {
	if e, ok := r.bySender[s]; ok && e.state == running {
		panic("timer already armed for sender")
	}
	e := &timerEntry{at: at, owner: s, state: running}
	r.entries = append(r.entries, e)
	r.bySender[s] = e
	sort.SliceStable(r.entries, func(i, j int) bool {
		return r.entries[i].at < r.entries[j].at
	})
}

// Cancel cancels s's pending RTO timer. Cancelling a timer that isn't
// armed is a programmer error and panics, mirroring the original
// simulator's timer registry, which throws on the same condition.
func (r *TimerRegistry) Cancel(s *Sender) {
	e, ok := r.bySender[s]
	if !ok || e.state != running {
		panic("no armed timer for sender to cancel")
	}
	e.state = cancelled
	delete(r.bySender, s)
}

// Armed reports whether s currently has a running RTO timer.
func (r *TimerRegistry) Armed(s *Sender) bool {
	e, ok := r.bySender[s]
	return ok && e.state == running
}

// FireDue fires (invokes onRTO on) every sender whose timer's firing tick
// is at or before now, removing fired entries from the registry. Called by
// the scheduler after every endpoint operation.
//
// Every due owner is collected, and the registry's entries are rebuilt to
// exclude them, before any onRTO is invoked: onRTO commonly re-arms its
// sender's timer, which appends to r.entries, so the rebuilt slice must
// already be in place or that new entry would be discarded.
func (r *TimerRegistry) FireDue(now Tick) {
	var due []*Sender
	var kept []*timerEntry
	for _, e := range r.entries {
		if e.state != running {
			continue
		}
		if e.at <= now {
			e.state = fired
			delete(r.bySender, e.owner)
			due = append(due, e.owner)
			continue
		}
		kept = append(kept, e)
	}
	r.entries = kept
	for _, s := range due {
		s.onRTO(now)
	}
}
