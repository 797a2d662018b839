// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ctlplane

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"grimm.is/mx6e/internal/addr6"
	"grimm.is/mx6e/internal/config"
	"grimm.is/mx6e/internal/errors"
	"grimm.is/mx6e/internal/logging"
	"grimm.is/mx6e/internal/rule"
	"grimm.is/mx6e/internal/ruletable"
	"grimm.is/mx6e/internal/stats"
)

// RulePayload is the wire shape of an add/delete/enable/disable
// request's JSON payload: the textual rule fields of
// rule.NewConfigParams (the kind comes from the command code and the
// tunnel prefixes from the Dispatcher), since delete/enable/disable
// re-derive the same match key an add would have produced rather than
// carrying it directly.
type RulePayload struct {
	Domain      string `json:"domain"`
	InPlaneID   string `json:"in_plane_id"`
	InPrefixLen int    `json:"in_prefix_len"`
	Inner       string `json:"inner"`
	OutPlaneID  string `json:"out_plane_id"`
	OutPrefix   string `json:"out_prefix"`
	SectionAddr string `json:"section_addr,omitempty"`
}

// DebugLogPayload is the payload of a set-debug-log request.
type DebugLogPayload struct {
	Enable bool `json:"enable"`
}

// Dispatcher wires decoded command requests to the rule tables, the
// loaded configuration, the statistics counters and the debug-log
// toggle.
type Dispatcher struct {
	M46E     *ruletable.Table
	ME6E     *ruletable.Table
	Config   *config.Config
	Counters *stats.Counters
	Logger   *logging.Logger

	// TunnelPR/TunnelFP are the two TAP devices' IPv6 prefixes, needed
	// by Derive to compute a rule's tunnel-route and source-rewrite
	// templates.
	TunnelPR, TunnelFP addr6.Addr

	Shutdown func()
	Restart  func()
}

// Handle implements Handler.
func (d *Dispatcher) Handle(ctx context.Context, req Request) Response {
	switch req.Cmd {
	case CmdAddM46E:
		return d.add(req, rule.KindM46E)
	case CmdAddME6E:
		return d.add(req, rule.KindME6E)
	case CmdDeleteM46E:
		return d.delete(req, rule.KindM46E)
	case CmdDeleteME6E:
		return d.delete(req, rule.KindME6E)
	case CmdDeleteAllM46E:
		d.M46E.ClearAll()
		return ok("")
	case CmdDeleteAllME6E:
		d.ME6E.ClearAll()
		return ok("")
	case CmdEnableM46E:
		return d.setEnabled(req, rule.KindM46E, true)
	case CmdEnableME6E:
		return d.setEnabled(req, rule.KindME6E, true)
	case CmdDisableM46E:
		return d.setEnabled(req, rule.KindM46E, false)
	case CmdDisableME6E:
		return d.setEnabled(req, rule.KindME6E, false)
	case CmdShowM46E:
		return d.show(d.M46E)
	case CmdShowME6E:
		return d.show(d.ME6E)
	case CmdShowConfig:
		return d.showConfig()
	case CmdShowStatistics:
		return ok(d.Counters.Dump())
	case CmdSetDebugLog:
		return d.setDebugLog(req)
	case CmdShutdown:
		if d.Shutdown != nil {
			d.Shutdown()
		}
		return ok("")
	case CmdRestart:
		if d.Restart != nil {
			d.Restart()
		}
		return ok("")
	default:
		return fail(errors.KindValidation, "ctlplane: unknown command %d", req.Cmd)
	}
}

func (d *Dispatcher) deriveRule(req Request, kind rule.Kind) (*rule.Rule, error) {
	var p RulePayload
	if err := json.Unmarshal(req.Payload, &p); err != nil {
		return nil, errors.Wrap(err, errors.KindValidation, "ctlplane: invalid payload")
	}
	cfg, err := rule.NewConfig(rule.NewConfigParams{
		Domain:      p.Domain,
		Kind:        kind.String(),
		Enable:      true,
		InPlaneID:   p.InPlaneID,
		InPrefixLen: p.InPrefixLen,
		Inner:       p.Inner,
		OutPlaneID:  p.OutPlaneID,
		OutPrefix:   p.OutPrefix,
		SectionAddr: p.SectionAddr,
		TunnelPR:    d.TunnelPR,
		TunnelFP:    d.TunnelFP,
	})
	if err != nil {
		return nil, err
	}
	return rule.Derive(cfg)
}

func (d *Dispatcher) tableFor(kind rule.Kind) *ruletable.Table {
	if kind == rule.KindME6E {
		return d.ME6E
	}
	return d.M46E
}

func (d *Dispatcher) add(req Request, kind rule.Kind) Response {
	r, err := d.deriveRule(req, kind)
	if err != nil {
		return failErr(err)
	}
	if err := d.tableFor(kind).Insert(r); err != nil {
		return failErr(err)
	}
	return ok("")
}

func (d *Dispatcher) delete(req Request, kind rule.Kind) Response {
	r, err := d.deriveRule(req, kind)
	if err != nil {
		return failErr(err)
	}
	if err := d.tableFor(kind).Delete(r.Key()); err != nil {
		return failErr(err)
	}
	return ok("")
}

func (d *Dispatcher) setEnabled(req Request, kind rule.Kind, on bool) Response {
	r, err := d.deriveRule(req, kind)
	if err != nil {
		return failErr(err)
	}
	if err := d.tableFor(kind).SetEnabled(r.Key(), on); err != nil {
		return failErr(err)
	}
	return ok("")
}

func (d *Dispatcher) show(t *ruletable.Table) Response {
	var buf bytes.Buffer
	if err := t.Dump(&buf); err != nil {
		return failErr(errors.Wrap(err, errors.KindInternal, "ctlplane: dump failed"))
	}
	return ok(buf.String())
}

func (d *Dispatcher) showConfig() Response {
	if d.Config == nil {
		return fail(errors.KindInternal, "ctlplane: no configuration loaded")
	}
	body, err := json.MarshalIndent(d.Config, "", "  ")
	if err != nil {
		return failErr(errors.Wrap(err, errors.KindInternal, "ctlplane: encode config"))
	}
	return ok(string(body))
}

func (d *Dispatcher) setDebugLog(req Request) Response {
	var p DebugLogPayload
	if err := json.Unmarshal(req.Payload, &p); err != nil {
		return failErr(errors.Wrap(err, errors.KindValidation, "ctlplane: invalid payload"))
	}
	if d.Logger != nil {
		d.Logger.SetDebug(p.Enable)
	}
	return ok("")
}

func ok(body string) Response { return Response{Result: 0, Body: body} }

// fail builds a Response carrying kind's result code and a formatted
// message, for failures that don't already have a structured error.
func fail(kind errors.Kind, format string, args ...any) Response {
	return Response{Result: resultForKind(kind), Body: fmt.Sprintf(format, args...)}
}

// failErr builds a Response carrying err's message and the result
// code for its Kind (KindInternal if err isn't a structured error).
func failErr(err error) Response {
	return Response{Result: resultForKind(errors.GetKind(err)), Body: err.Error()}
}

// resultForKind maps a structured error's Kind onto the wire result
// code, using the matching errno so mx6ectl's exit status means
// something (see cmd/mx6ectl's os.Exit(int(resp.Result))).
func resultForKind(k errors.Kind) int32 {
	switch k {
	case errors.KindValidation:
		return 22 // EINVAL
	case errors.KindNotFound:
		return 2 // ENOENT
	case errors.KindPermission:
		return 13 // EACCES
	case errors.KindConflict:
		return 17 // EEXIST
	case errors.KindUnavailable:
		return 11 // EAGAIN
	default:
		return 1
	}
}
