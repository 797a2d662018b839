// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ctlplane

import (
	"encoding/json"
	"fmt"
	"net"
)

// Call dials the command socket of processName, sends req, and
// returns the decoded response. Used by the administrative CLI; one
// connection per call, matching the server's accept/dispatch/respond/close
// contract.
func Call(processName string, req Request) (Response, error) {
	addr := &net.UnixAddr{Name: SocketPath(processName), Net: "unixpacket"}
	conn, err := net.DialUnix("unixpacket", nil, addr)
	if err != nil {
		return Response{}, fmt.Errorf("ctlplane: dial %s: %w", processName, err)
	}
	defer conn.Close()

	frame, err := encodeRequest(req)
	if err != nil {
		return Response{}, err
	}
	if _, err := conn.Write(frame); err != nil {
		return Response{}, fmt.Errorf("ctlplane: write request: %w", err)
	}

	buf := make([]byte, maxRecordSize)
	n, err := conn.Read(buf)
	if err != nil {
		return Response{}, fmt.Errorf("ctlplane: read response: %w", err)
	}
	return decodeResponse(buf[:n])
}

// CallJSON is a convenience wrapper that marshals payload to JSON
// before sending.
func CallJSON(processName string, cmd Command, payload any) (Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("ctlplane: encode payload: %w", err)
	}
	return Call(processName, Request{Cmd: cmd, Payload: body})
}
