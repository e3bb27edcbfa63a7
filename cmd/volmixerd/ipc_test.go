package main

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// startIPC runs a daemon and an IPC server on a socket in a temp dir.
func startIPC(t *testing.T) (string, *testDaemon) {
	t.Helper()
	reg, _ := newTestMixer(t)
	d := startDaemon(t, reg, daemonConfig{StepPercent: 2})

	socketPath := filepath.Join(t.TempDir(), "volmixer.sock")
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- runIPCServer(ctx, socketPath, d.events, testLogger()) }()
	t.Cleanup(func() {
		cancel()
		if err := <-errc; err != nil {
			t.Errorf("runIPCServer() = %v", err)
		}
	})

	waitUntil(t, time.Second, func() bool {
		conn, err := net.Dial("unix", socketPath)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, "IPC socket not ready")
	return socketPath, d
}

func TestIPC_SendCommand(t *testing.T) {
	socketPath, _ := startIPC(t)

	chs, err := SendIPCCommand(socketPath, ListChannels{})
	if err != nil {
		t.Fatalf("list_channels: %v", err)
	}
	if len(chs) != 4 {
		t.Fatalf("expected 4 channels, got %d", len(chs))
	}

	chs, err = SendIPCCommand(socketPath, SetVolume{ChannelRef: ChannelRef{Name: "Master"}, Value: 25})
	if err != nil {
		t.Fatalf("set_volume: %v", err)
	}
	if len(chs) != 1 || chs[0].Name != "Master" || chs[0].Volume != 25 {
		t.Errorf("unexpected set_volume result %+v", chs)
	}
}

func TestIPC_ErrorResponses(t *testing.T) {
	socketPath, _ := startIPC(t)

	if _, err := SendIPCCommand(socketPath, GetChannel{ChannelRef{Name: "Nope"}}); err == nil ||
		!strings.Contains(err.Error(), "channel not found") {
		t.Errorf("expected channel not found error, got %v", err)
	}
}

func TestIPC_RawProtocol(t *testing.T) {
	socketPath, _ := startIPC(t)

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	lines := []string{
		`not json`,
		`{"type":"set_volume","data":{"value":10}}`,
		``,
		`{"type":"get_channel","data":{"name":"PCM","card":1}}`,
	}
	for _, l := range lines {
		if _, err := conn.Write([]byte(l + "\n")); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	scanner := bufio.NewScanner(conn)
	var got []IPCResponse
	for len(got) < 3 && scanner.Scan() {
		var resp IPCResponse
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			t.Fatalf("bad response %q: %v", scanner.Text(), err)
		}
		got = append(got, resp)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 responses, got %d (err=%v)", len(got), scanner.Err())
	}

	if got[0].Status != "error" || !strings.Contains(got[0].Error, "parse command") {
		t.Errorf("expected parse error, got %+v", got[0])
	}
	if got[1].Status != "error" || !strings.Contains(got[1].Error, "name is required") {
		t.Errorf("expected missing name error, got %+v", got[1])
	}
	if got[2].Status != "ok" || len(got[2].Channels) != 1 || got[2].Channels[0].Card != 1 {
		t.Errorf("expected card 1 PCM, got %+v", got[2])
	}
}

func TestIPC_DaemonNotRunning(t *testing.T) {
	events := make(chan Event) // nobody reads
	resp := handleIPCLine(context.Background(), []byte(`{"type":"list_channels"}`), events)
	if resp.Status != "error" || !strings.Contains(resp.Error, "daemon busy") {
		t.Errorf("expected daemon busy error, got %+v", resp)
	}
}
