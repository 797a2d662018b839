// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ctlplane

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"

	"grimm.is/mx6e/internal/errors"
	"grimm.is/mx6e/internal/logging"
)

// SocketPath derives the abstract-namespace path for a process name:
// "\0/mx6e/<process_name>/command".
func SocketPath(processName string) string {
	return "\x00/mx6e/" + processName + "/command"
}

// Handler dispatches one decoded request to its table mutator or
// query and returns the reply to send back.
type Handler func(ctx context.Context, req Request) Response

// Server owns the command-socket listener and the process signal set.
type Server struct {
	ProcessName string
	Handle      Handler
	Logger      *logging.Logger

	// Reload is invoked on SIGHUP, in addition to the shutdown signals
	// SIGINT/SIGTERM/SIGQUIT which cause Serve to return.
	Reload func()

	listener *net.UnixListener
}

// Serve opens the command socket and processes connections and
// signals until ctx is canceled or a shutdown signal arrives. It
// always closes the listener before returning.
func (s *Server) Serve(ctx context.Context) error {
	addr := &net.UnixAddr{Name: SocketPath(s.ProcessName), Net: "unixpacket"}
	l, err := net.ListenUnix("unixpacket", addr)
	if err != nil {
		return fmt.Errorf("ctlplane: listen: %w", err)
	}
	s.listener = l
	defer l.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 4)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP, syscall.SIGCHLD)
	defer signal.Stop(sigCh)

	connCh := make(chan *net.UnixConn)
	acceptErrCh := make(chan error, 1)
	go func() {
		for {
			conn, err := l.AcceptUnix()
			if err != nil {
				acceptErrCh <- err
				return
			}
			connCh <- conn
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-acceptErrCh:
			return err
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT:
				s.warnf("ctlplane: shutdown on signal %v", sig)
				return nil
			case syscall.SIGHUP:
				s.warnf("ctlplane: reload on SIGHUP")
				if s.Reload != nil {
					s.Reload()
				}
			case syscall.SIGCHLD:
				reapChildren()
			}
		case conn := <-connCh:
			s.handleConn(ctx, conn)
		}
	}
}

func (s *Server) warnf(format string, args ...any) {
	if s.Logger != nil {
		s.Logger.Warnf(format, args...)
	}
}

func reapChildren() {
	for {
		var status syscall.WaitStatus
		pid, err := syscall.Wait4(-1, &status, syscall.WNOHANG, nil)
		if pid <= 0 || err != nil {
			return
		}
	}
}

func (s *Server) handleConn(ctx context.Context, conn *net.UnixConn) {
	defer conn.Close()

	if !peerAuthorized(conn) {
		s.warnf("ctlplane: rejected connection with unauthenticated peer")
		return
	}

	buf := make([]byte, maxRecordSize)
	n, err := conn.Read(buf)
	if err != nil {
		s.warnf("ctlplane: read request: %v", err)
		return
	}

	req, err := decodeRequest(buf[:n])
	if err != nil {
		s.warnf("ctlplane: decode request: %v", err)
		return
	}

	var resp Response
	if s.Handle != nil {
		resp = s.Handle(ctx, req)
	} else {
		resp = fail(errors.KindInternal, "no handler installed")
	}

	if _, err := conn.Write(encodeResponse(resp)); err != nil {
		s.warnf("ctlplane: write response: %v", err)
	}
}

// peerAuthorized validates that the connecting peer presented OS-level
// socket credentials; unauthenticated peers are refused. There is no
// authentication beyond the kernel-verified peer credential.
func peerAuthorized(conn *net.UnixConn) bool {
	raw, err := conn.SyscallConn()
	if err != nil {
		return false
	}
	var ucred *unix.Ucred
	var sockErr error
	ctrlErr := raw.Control(func(fd uintptr) {
		ucred, sockErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if ctrlErr != nil || sockErr != nil || ucred == nil {
		return false
	}
	return true
}
