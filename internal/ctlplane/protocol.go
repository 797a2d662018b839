// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package ctlplane implements a single-threaded control loop that
// multiplexes the UNIX SOCK_SEQPACKET command socket and the process
// signal set, dispatching command records to the rule table mutators
// and the route-installation shim.
package ctlplane

import (
	"encoding/json"
	"fmt"
)

// Command identifies the operation a request record carries.
type Command byte

const (
	CmdAddM46E Command = iota
	CmdAddME6E
	CmdDeleteM46E
	CmdDeleteME6E
	CmdDeleteAllM46E
	CmdDeleteAllME6E
	CmdEnableM46E
	CmdEnableME6E
	CmdDisableM46E
	CmdDisableME6E
	CmdShowM46E
	CmdShowME6E
	CmdShowConfig
	CmdShowStatistics
	CmdSetDebugLog
	CmdShutdown
	CmdRestart
)

func (c Command) String() string {
	names := [...]string{
		"add_m46e", "add_me6e", "delete_m46e", "delete_me6e",
		"delete_all_m46e", "delete_all_me6e", "enable_m46e", "enable_me6e",
		"disable_m46e", "disable_me6e", "show_m46e", "show_me6e",
		"show_config", "show_statistics", "set_debug_log", "shutdown", "restart",
	}
	if int(c) < len(names) {
		return names[c]
	}
	return "unknown"
}

// maxRecordSize bounds a single request/response frame on the
// SOCK_SEQPACKET socket.
const maxRecordSize = 4096

// Request is the decoded form of one command record: a command code
// plus its JSON-encoded argument payload.
type Request struct {
	Cmd     Command
	Payload json.RawMessage
}

// Response is the decoded form of one reply record: an integer result
// (0 on success, a positive errno-like code otherwise) plus an
// optional human-readable body — used verbatim for the dump and
// statistics commands, whose output is raw text rather than
// machine-parseable.
type Response struct {
	Result int32
	Body   string
}

func encodeRequest(r Request) ([]byte, error) {
	payload, err := json.Marshal(r.Payload)
	if err != nil {
		return nil, fmt.Errorf("ctlplane: encode request: %w", err)
	}
	frame := append([]byte{byte(r.Cmd)}, payload...)
	if len(frame) > maxRecordSize {
		return nil, fmt.Errorf("ctlplane: request record exceeds %d bytes", maxRecordSize)
	}
	return frame, nil
}

func decodeRequest(frame []byte) (Request, error) {
	if len(frame) < 1 {
		return Request{}, fmt.Errorf("ctlplane: empty request record")
	}
	return Request{Cmd: Command(frame[0]), Payload: json.RawMessage(frame[1:])}, nil
}

func encodeResponse(r Response) []byte {
	body := []byte(r.Body)
	frame := make([]byte, 4+len(body))
	frame[0] = byte(r.Result >> 24)
	frame[1] = byte(r.Result >> 16)
	frame[2] = byte(r.Result >> 8)
	frame[3] = byte(r.Result)
	copy(frame[4:], body)
	return frame
}

func decodeResponse(frame []byte) (Response, error) {
	if len(frame) < 4 {
		return Response{}, fmt.Errorf("ctlplane: response record too short")
	}
	result := int32(frame[0])<<24 | int32(frame[1])<<16 | int32(frame[2])<<8 | int32(frame[3])
	return Response{Result: result, Body: string(frame[4:])}, nil
}
