// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ctlplane

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestRoundTrip(t *testing.T) {
	payload, err := json.Marshal(RulePayload{Domain: "PR", InPlaneID: "1:2"})
	require.NoError(t, err)
	req := Request{Cmd: CmdAddM46E, Payload: payload}

	frame, err := encodeRequest(req)
	require.NoError(t, err)

	got, err := decodeRequest(frame)
	require.NoError(t, err)
	assert.Equal(t, CmdAddM46E, got.Cmd)
	assert.JSONEq(t, string(payload), string(got.Payload))
}

func TestDecodeRequest_RejectsEmptyFrame(t *testing.T) {
	_, err := decodeRequest(nil)
	assert.Error(t, err)
}

func TestResponseRoundTrip(t *testing.T) {
	resp := Response{Result: 22, Body: "invalid argument"}
	frame := encodeResponse(resp)

	got, err := decodeResponse(frame)
	require.NoError(t, err)
	assert.Equal(t, resp, got)
}

func TestDecodeResponse_RejectsShortFrame(t *testing.T) {
	_, err := decodeResponse([]byte{0, 0})
	assert.Error(t, err)
}

func TestCommand_String(t *testing.T) {
	assert.Equal(t, "add_m46e", CmdAddM46E.String())
	assert.Equal(t, "restart", CmdRestart.String())
	assert.Equal(t, "unknown", Command(200).String())
}
