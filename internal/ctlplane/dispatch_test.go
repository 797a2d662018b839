// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ctlplane

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/mx6e/internal/logging"
	"grimm.is/mx6e/internal/rule"
	"grimm.is/mx6e/internal/ruletable"
	"grimm.is/mx6e/internal/stats"
)

func newTestDispatcher() *Dispatcher {
	return &Dispatcher{
		M46E:     ruletable.New(rule.KindM46E, ruletable.NopRouter{}),
		ME6E:     ruletable.New(rule.KindME6E, ruletable.NopRouter{}),
		Counters: stats.New(nil),
	}
}

func addM46ERequest(t *testing.T) Request {
	t.Helper()
	payload, err := json.Marshal(RulePayload{
		Domain: "PR", InPlaneID: "1:2", InPrefixLen: 64,
		Inner: "192.168.102.0/24", OutPlaneID: "8fff:ffff:ffff", OutPrefix: "f00d:1:1::/48",
	})
	require.NoError(t, err)
	return Request{Cmd: CmdAddM46E, Payload: payload}
}

func TestDispatcher_AddShowDeleteM46E(t *testing.T) {
	d := newTestDispatcher()

	resp := d.Handle(context.Background(), addM46ERequest(t))
	assert.Equal(t, int32(0), resp.Result)
	assert.Equal(t, 1, d.M46E.Count())

	resp = d.Handle(context.Background(), Request{Cmd: CmdShowM46E})
	assert.Equal(t, int32(0), resp.Result)
	assert.Contains(t, resp.Body, "M46E")

	resp = d.Handle(context.Background(), Request{Cmd: CmdDeleteM46E, Payload: addM46ERequest(t).Payload})
	assert.Equal(t, int32(0), resp.Result)
	assert.Equal(t, 0, d.M46E.Count())
}

func TestDispatcher_DuplicateAddFails(t *testing.T) {
	d := newTestDispatcher()
	require.Equal(t, int32(0), d.Handle(context.Background(), addM46ERequest(t)).Result)
	resp := d.Handle(context.Background(), addM46ERequest(t))
	assert.Equal(t, int32(17), resp.Result) // EEXIST, via errors.KindConflict
	assert.Equal(t, 1, d.M46E.Count())
}

func TestDispatcher_DeleteMissingRuleIsNotFound(t *testing.T) {
	d := newTestDispatcher()
	resp := d.Handle(context.Background(), Request{Cmd: CmdDeleteM46E, Payload: addM46ERequest(t).Payload})
	assert.Equal(t, int32(2), resp.Result) // ENOENT, via errors.KindNotFound
}

func TestDispatcher_InvalidPayloadIsValidationError(t *testing.T) {
	d := newTestDispatcher()
	resp := d.Handle(context.Background(), Request{Cmd: CmdAddM46E, Payload: []byte("not json")})
	assert.Equal(t, int32(22), resp.Result) // EINVAL, via errors.KindValidation
}

func TestDispatcher_DisableThenDelete(t *testing.T) {
	d := newTestDispatcher()
	require.Equal(t, int32(0), d.Handle(context.Background(), addM46ERequest(t)).Result)

	resp := d.Handle(context.Background(), Request{Cmd: CmdDisableM46E, Payload: addM46ERequest(t).Payload})
	assert.Equal(t, int32(0), resp.Result)

	resp = d.Handle(context.Background(), Request{Cmd: CmdDeleteM46E, Payload: addM46ERequest(t).Payload})
	assert.Equal(t, int32(0), resp.Result)
	assert.Equal(t, 0, d.M46E.Count())
}

func TestDispatcher_DeleteAllM46E(t *testing.T) {
	d := newTestDispatcher()
	require.Equal(t, int32(0), d.Handle(context.Background(), addM46ERequest(t)).Result)
	resp := d.Handle(context.Background(), Request{Cmd: CmdDeleteAllM46E})
	assert.Equal(t, int32(0), resp.Result)
	assert.Equal(t, 0, d.M46E.Count())
}

func TestDispatcher_ShowStatistics(t *testing.T) {
	d := newTestDispatcher()
	d.Counters.IncRecv(stats.DirPR)
	resp := d.Handle(context.Background(), Request{Cmd: CmdShowStatistics})
	assert.Equal(t, int32(0), resp.Result)
	assert.Contains(t, resp.Body, "pr_recv=1")
}

func TestDispatcher_SetDebugLogTogglesLogger(t *testing.T) {
	d := newTestDispatcher()
	d.Logger = logging.New(io.Discard, "test")
	payload, err := json.Marshal(DebugLogPayload{Enable: true})
	require.NoError(t, err)
	resp := d.Handle(context.Background(), Request{Cmd: CmdSetDebugLog, Payload: payload})
	assert.Equal(t, int32(0), resp.Result)
	assert.True(t, d.Logger.Debugging())
}

func TestDispatcher_ShutdownInvokesCallback(t *testing.T) {
	d := newTestDispatcher()
	called := false
	d.Shutdown = func() { called = true }
	resp := d.Handle(context.Background(), Request{Cmd: CmdShutdown})
	assert.Equal(t, int32(0), resp.Result)
	assert.True(t, called)
}

func TestDispatcher_UnknownCommandFails(t *testing.T) {
	d := newTestDispatcher()
	resp := d.Handle(context.Background(), Request{Cmd: Command(99)})
	assert.Equal(t, int32(22), resp.Result) // EINVAL, via errors.KindValidation
}
