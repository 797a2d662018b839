// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package stats implements a fixed set of counters: one atomic
// counter per (direction × outcome) pair, safe against concurrent
// increment from both forwarding workers, mirrored into
// Prometheus for external scraping.
package stats

import (
	"fmt"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Direction is the ingress side a counter set belongs to.
type Direction int

const (
	DirPR Direction = iota
	DirFP
)

func (d Direction) String() string {
	if d == DirFP {
		return "fp"
	}
	return "pr"
}

// Side holds the monotonic counters for one ingress direction.
type Side struct {
	Recv          atomic.Uint32
	Send          atomic.Uint32
	M46EOk        atomic.Uint32
	M46EErr       atomic.Uint32
	ME6EOk        atomic.Uint32
	ME6EErr       atomic.Uint32
	ErrBroadcast  atomic.Uint32
	ErrHopLimit   atomic.Uint32
	ErrOtherProto atomic.Uint32
	ErrNxthdr     atomic.Uint32
}

// Counters holds both directions' counter sets plus their Prometheus
// mirrors. Every increment here happens at the same call site as the
// corresponding atomic increment, so the two can never drift.
type Counters struct {
	PR Side
	FP Side

	recv    *prometheus.CounterVec
	send    *prometheus.CounterVec
	outcome *prometheus.CounterVec
}

// New constructs a Counters and registers its Prometheus series on reg.
// reg may be nil, in which case Prometheus mirroring is skipped (used
// by tests that only care about the atomic counters).
func New(reg prometheus.Registerer) *Counters {
	c := &Counters{
		recv: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mx6e_received_packets_total",
			Help: "Total number of frames received from a tunnel device.",
		}, []string{"direction"}),
		send: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mx6e_sent_packets_total",
			Help: "Total number of frames written to the opposing tunnel device.",
		}, []string{"direction"}),
		outcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mx6e_packet_outcomes_total",
			Help: "Total number of packets classified by direction, kind, and outcome.",
		}, []string{"direction", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(c.recv, c.send, c.outcome)
	}
	return c
}

func (c *Counters) side(d Direction) *Side {
	if d == DirFP {
		return &c.FP
	}
	return &c.PR
}

func (c *Counters) mirror(d Direction, v *prometheus.CounterVec) {
	if v == nil {
		return
	}
	v.WithLabelValues(d.String()).Inc()
}

// IncRecv increments the per-direction receive counter.
func (c *Counters) IncRecv(d Direction) {
	c.side(d).Recv.Add(1)
	c.mirror(d, c.recv)
}

// IncSend increments the per-direction send counter.
func (c *Counters) IncSend(d Direction) {
	c.side(d).Send.Add(1)
	c.mirror(d, c.send)
}

func (c *Counters) incOutcome(d Direction, outcome string, counter *atomic.Uint32) {
	counter.Add(1)
	if c.outcome != nil {
		c.outcome.WithLabelValues(d.String(), outcome).Inc()
	}
}

func (c *Counters) IncM46EOk(d Direction)       { c.incOutcome(d, "m46e_ok", &c.side(d).M46EOk) }
func (c *Counters) IncM46EErr(d Direction)      { c.incOutcome(d, "m46e_err", &c.side(d).M46EErr) }
func (c *Counters) IncME6EOk(d Direction)       { c.incOutcome(d, "me6e_ok", &c.side(d).ME6EOk) }
func (c *Counters) IncME6EErr(d Direction)      { c.incOutcome(d, "me6e_err", &c.side(d).ME6EErr) }
func (c *Counters) IncErrBroadcast(d Direction) { c.incOutcome(d, "err_broadcast", &c.side(d).ErrBroadcast) }
func (c *Counters) IncErrHopLimit(d Direction)  { c.incOutcome(d, "err_hoplimit", &c.side(d).ErrHopLimit) }
func (c *Counters) IncErrOtherProto(d Direction) {
	c.incOutcome(d, "err_other_proto", &c.side(d).ErrOtherProto)
}
func (c *Counters) IncErrNxthdr(d Direction) { c.incOutcome(d, "err_nxthdr", &c.side(d).ErrNxthdr) }

// Dump renders a human-readable snapshot of every counter, in the
// textual form expected by the show-statistics control command.
func (c *Counters) Dump() string {
	format := func(dir string, s *Side) string {
		return fmt.Sprintf(
			"%s_recv=%d %s_send=%d %s_m46e_ok=%d %s_m46e_err=%d %s_me6e_ok=%d %s_me6e_err=%d "+
				"%s_err_broadcast=%d %s_err_hoplimit=%d %s_err_other_proto=%d %s_err_nxthdr=%d\n",
			dir, s.Recv.Load(), dir, s.Send.Load(), dir, s.M46EOk.Load(), dir, s.M46EErr.Load(),
			dir, s.ME6EOk.Load(), dir, s.ME6EErr.Load(), dir, s.ErrBroadcast.Load(),
			dir, s.ErrHopLimit.Load(), dir, s.ErrOtherProto.Load(), dir, s.ErrNxthdr.Load(),
		)
	}
	return format("pr", &c.PR) + format("fp", &c.FP)
}
