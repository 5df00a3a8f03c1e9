package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"
)

// The IPC socket is where the shell hosting the lock surface reports
// gestures, lifecycle, orientation and keyboard changes. unlock-ctl speaks
// the same protocol.
//
// One JSON envelope per line, {"type": ..., "data": {...}}. Every line gets
// one response line: {"status":"ok"} or {"status":"error","error":...}.
// {"type":"snapshot"} is answered with the current StateSnapshot in "data".

// IPCResponse is the reply to one request line.
type IPCResponse struct {
	Status string         `json:"status"`
	Error  string         `json:"error,omitempty"`
	Data   *StateSnapshot `json:"data,omitempty"`
}

func ipcOK() IPCResponse { return IPCResponse{Status: "ok"} }

func ipcError(format string, args ...any) IPCResponse {
	return IPCResponse{Status: "error", Error: fmt.Sprintf(format, args...)}
}

// ipcSnapshotTimeout bounds the wait for the daemon loop to answer a snapshot request.
const ipcSnapshotTimeout = time.Second

// runIPCServer listens on socketPath until ctx is done. A stale socket file
// from a previous run is replaced.
func runIPCServer(ctx context.Context, socketPath string, events chan<- Event, logger *slog.Logger) error {
	if err := os.RemoveAll(socketPath); err != nil {
		return fmt.Errorf("remove stale socket: %w", err)
	}
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	defer os.Remove(socketPath)
	defer ln.Close()

	// The shell runs as a different user than the daemon.
	if err := os.Chmod(socketPath, 0o666); err != nil {
		return fmt.Errorf("chmod socket: %w", err)
	}

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			logger.Warn("ipc accept", "error", err)
			continue
		}
		s := &ipcSession{conn: conn, events: events, logger: logger.With("remote_addr", conn.RemoteAddr().String())}
		go s.serve()
	}
}

type ipcSession struct {
	conn   net.Conn
	events chan<- Event
	logger *slog.Logger
}

func (s *ipcSession) serve() {
	defer s.conn.Close()

	scanner := bufio.NewScanner(s.conn)
	enc := json.NewEncoder(s.conn)
	for scanner.Scan() {
		line := scanner.Bytes()
		s.logger.Debug("ipc request", "line", string(line))

		if err := enc.Encode(s.handle(line)); err != nil {
			s.logger.Warn("ipc reply", "error", err)
			return
		}
	}
}

// handle turns one request line into its response. Events are queued
// without blocking; the daemon stamps them on arrival.
func (s *ipcSession) handle(line []byte) IPCResponse {
	var env EventEnvelope
	if json.Unmarshal(line, &env) == nil && env.Type == "snapshot" {
		return requestSnapshot(s.events)
	}

	ev, err := UnmarshalEvent(line)
	if err != nil {
		return ipcError("parse event: %v", err)
	}
	select {
	case s.events <- ev:
		return ipcOK()
	default:
		return ipcError("event queue full")
	}
}

// requestSnapshot asks the daemon loop for a snapshot, the same way the
// state websocket does on connect.
func requestSnapshot(events chan<- Event) IPCResponse {
	reply := make(chan StateSnapshot, 1)
	timeout := time.NewTimer(ipcSnapshotTimeout)
	defer timeout.Stop()

	select {
	case events <- RequestStateSnapshot{Reply: reply}:
	case <-timeout.C:
		return ipcError("event queue full")
	}

	select {
	case snap := <-reply:
		return IPCResponse{Status: "ok", Data: &snap}
	case <-timeout.C:
		return ipcError("snapshot timed out")
	}
}

// SendIPCEvent delivers ev to the daemon listening on socketPath.
func SendIPCEvent(socketPath string, ev Event) error {
	data, err := MarshalEvent(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	if _, err := conn.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("send event: %w", err)
	}

	var resp IPCResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.Status != "ok" {
		return fmt.Errorf("daemon rejected event: %s", resp.Error)
	}
	return nil
}
