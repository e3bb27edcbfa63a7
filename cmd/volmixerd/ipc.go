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
	"strings"
	"time"

	"volmixer/mixer"
)

// ============================================================================
// IPC Server - Unix Domain Socket Interface
// ============================================================================
// The IPC server lets local clients (volmixer-ctl, scripts) query and change
// channels through a Unix domain socket.
//
// Protocol: Line-delimited JSON
//   - Client sends: {"type": "command_name", "data": {...}}
//   - Server responds: {"status": "ok", "channels": [...]} or
//     {"status": "error", "error": "msg"}
// ============================================================================

// IPCResponse represents the response sent back to IPC clients
type IPCResponse struct {
	Status   string           `json:"status"`             // "ok" or "error"
	Error    string           `json:"error,omitempty"`    // error message if status == "error"
	Channels []mixer.Snapshot `json:"channels,omitempty"` // channels the command returned
}

// runIPCServer starts the Unix domain socket server.
// It runs until ctx is canceled, at which point it closes the listener and exits.
func runIPCServer(ctx context.Context, socketPath string, events chan<- Event, logger *slog.Logger) error {
	// Remove existing socket file if it exists
	if err := os.RemoveAll(socketPath); err != nil {
		return fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	defer listener.Close()
	defer os.Remove(socketPath)

	// Changing volume is not privileged; any local user may connect.
	if err := os.Chmod(socketPath, 0666); err != nil {
		return fmt.Errorf("chmod socket: %w", err)
	}

	logger.Info("IPC listening", "socket", socketPath)

	// Close the listener on shutdown. This unblocks Accept().
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				logger.Debug("IPC listener closed (shutdown)")
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				logger.Debug("IPC listener closed")
				return nil
			}

			logger.Error("IPC accept error", "error", err)
			continue
		}

		go handleIPCConnection(ctx, conn, events, logger)
	}
}

// handleIPCConnection serves one client until it disconnects. Commands on a
// connection run one at a time, in order.
func handleIPCConnection(ctx context.Context, conn net.Conn, events chan<- Event, logger *slog.Logger) {
	defer conn.Close()

	logger.Debug("IPC connection", "remote_addr", conn.RemoteAddr())

	// Unblock the scanner on shutdown.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	scanner := bufio.NewScanner(conn)
	encoder := json.NewEncoder(conn)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		logger.Debug("IPC received", "line", line)

		resp := handleIPCLine(ctx, []byte(line), events)
		if err := encoder.Encode(resp); err != nil {
			logger.Error("IPC failed to send response", "error", err)
			return
		}
	}

	logger.Debug("IPC connection closed")
}

func handleIPCLine(ctx context.Context, line []byte, events chan<- Event) IPCResponse {
	cmd, err := UnmarshalCommand(line)
	if err != nil {
		return IPCResponse{Status: "error", Error: fmt.Sprintf("parse command: %v", err)}
	}

	reply, err := submit(ctx, events, cmd)
	if err != nil {
		return IPCResponse{Status: "error", Error: err.Error()}
	}
	if reply.Err != nil {
		return IPCResponse{Status: "error", Error: reply.Err.Error()}
	}
	return IPCResponse{Status: "ok", Channels: reply.Channels}
}

// ============================================================================
// IPC Client Utility Functions
// ============================================================================

// SendIPCCommand sends a command to the daemon and returns the channels in
// its response.
func SendIPCCommand(socketPath string, cmd Command) ([]mixer.Snapshot, error) {
	conn, err := net.DialTimeout("unix", socketPath, time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(2 * requestTimeout))

	data, err := MarshalCommand(cmd)
	if err != nil {
		return nil, fmt.Errorf("marshal command: %w", err)
	}

	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		return nil, fmt.Errorf("send command: %w", err)
	}

	var resp IPCResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("ipc error: %s", resp.Error)
	}
	return resp.Channels, nil
}
