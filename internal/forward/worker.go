// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package forward implements the two bidirectional forwarding workers:
// each owns one ingress TAP, looks up the destination in the M46E then
// ME6E rule tables, rewrites the outer IPv6 addresses by mask
// composition, and writes the frame to the opposing TAP.
package forward

import (
	"context"
	"net"

	"grimm.is/mx6e/internal/addr6"
	"grimm.is/mx6e/internal/logging"
	"grimm.is/mx6e/internal/rule"
	"grimm.is/mx6e/internal/ruletable"
	"grimm.is/mx6e/internal/stats"
	"grimm.is/mx6e/internal/tapdev"
)

const (
	ethHeaderLen = 14
	ethTypeIPv6  = 0x86dd

	ip6HopLimitOff = ethHeaderLen + 7
	ip6SrcOff      = ethHeaderLen + 8
	ip6DstOff      = ethHeaderLen + 24
	ip6HeaderEnd   = ethHeaderLen + 40
)

func isBroadcast(mac []byte) bool {
	for _, b := range mac {
		if b != 0xff {
			return false
		}
	}
	return true
}

func domainDirection(d rule.Domain) stats.Direction {
	if d == rule.DomainFP {
		return stats.DirFP
	}
	return stats.DirPR
}

// Worker is one of the two forwarding workers: it reads from In,
// classifies against M46E then ME6E, and writes to Out.
type Worker struct {
	Domain rule.Domain // the ingress direction this worker serves

	In     tapdev.Device
	Out    tapdev.Device
	InMAC  net.HardwareAddr
	OutMAC net.HardwareAddr

	M46E *ruletable.Table
	ME6E *ruletable.Table

	Counters *stats.Counters
	Logger   *logging.Logger
}

// Run performs the startup drain, then reads and forwards frames
// until ctx is canceled or In.Read returns an error.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.drain(); err != nil {
		return err
	}

	buf := make([]byte, tapdev.MaxFrame)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, err := w.In.Read(buf)
		if err != nil {
			return err
		}
		w.processFrame(buf[:n])
	}
}

// drain performs a non-blocking read of any frames queued on In before
// the steady-state loop starts, so stale frames are not processed
// against rules that have not yet been installed.
func (w *Worker) drain() error {
	if err := w.In.SetNonblock(true); err != nil {
		return err
	}
	buf := make([]byte, tapdev.MaxFrame)
	for {
		if _, err := w.In.Read(buf); err != nil {
			break
		}
	}
	return w.In.SetNonblock(false)
}

// processFrame implements the per-packet forwarding procedure:
// lookup, rewrite, and write to the opposing TAP. Oversize frames are
// the TAP's responsibility (a read never returns more than
// tapdev.MaxFrame bytes) and are not re-checked here.
func (w *Worker) processFrame(frame []byte) {
	dir := domainDirection(w.Domain)
	w.Counters.IncRecv(dir)

	if len(frame) < ip6HeaderEnd {
		w.Counters.IncErrOtherProto(dir)
		return
	}

	if isBroadcast(frame[0:6]) {
		w.Counters.IncErrBroadcast(dir)
		return
	}

	copy(frame[0:6], w.OutMAC)
	copy(frame[6:12], w.InMAC)

	if uint16(frame[12])<<8|uint16(frame[13]) != ethTypeIPv6 {
		w.Counters.IncErrOtherProto(dir)
		return
	}

	if frame[ip6HopLimitOff] == 1 {
		w.Counters.IncErrHopLimit(dir)
		return
	}

	var dst, src addr6.Addr
	copy(dst[:], frame[ip6DstOff:ip6DstOff+16])
	copy(src[:], frame[ip6SrcOff:ip6SrcOff+16])

	if r := w.M46E.FindForPacket(w.Domain, dst); r != nil {
		w.rewriteAndSend(frame, r, dst, src, dir, true)
		return
	}
	w.Counters.IncM46EErr(dir)

	if r := w.ME6E.FindForPacket(w.Domain, dst); r != nil {
		w.rewriteAndSend(frame, r, dst, src, dir, false)
		return
	}
	w.Counters.IncME6EErr(dir)
}

func (w *Worker) rewriteAndSend(frame []byte, r *rule.Rule, dst, src addr6.Addr, dir stats.Direction, isM46E bool) {
	newDst := r.RewriteDst(dst)
	newSrc := r.RewriteSrc(src)
	copy(frame[ip6DstOff:ip6DstOff+16], newDst[:])
	copy(frame[ip6SrcOff:ip6SrcOff+16], newSrc[:])

	if _, err := w.Out.Write(frame); err != nil {
		if isM46E {
			w.Counters.IncM46EErr(dir)
		} else {
			w.Counters.IncME6EErr(dir)
		}
		if w.Logger != nil {
			w.Logger.Warnf("forward: %s: egress write failed: %v", w.Domain, err)
		}
		return
	}

	w.Counters.IncSend(dir)
	if isM46E {
		w.Counters.IncM46EOk(dir)
	} else {
		w.Counters.IncME6EOk(dir)
	}
}
