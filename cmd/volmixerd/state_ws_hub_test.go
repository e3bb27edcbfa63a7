package main

import (
	"context"
	"testing"
	"time"
)

// Hub tests construct Clients with a nil websocket.Conn and never write to
// them; Client.close tolerates a nil conn.

// runTestHub starts a hub with small buffers and stops it on cleanup.
func runTestHub(t *testing.T, sendBuf int, broadcastBuf int) *Hub {
	t.Helper()
	hub := NewHub(testLogger(), HubConfig{
		SendBuf:      sendBuf,
		BroadcastBuf: broadcastBuf,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Errorf("timeout waiting for hub to stop")
		}
	})
	return hub
}

// registerTestClient registers a connectionless client and waits until the
// hub has processed it.
func registerTestClient(t *testing.T, hub *Hub, name string, sendBuf int) *Client {
	t.Helper()
	c := &Client{
		hub:        hub,
		send:       make(chan []byte, sendBuf),
		remoteAddr: name,
		logger:     testLogger(),
	}
	hub.register <- c
	waitUntil(t, 500*time.Millisecond, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		_, ok := hub.clients[c]
		return ok
	}, name+" not registered in time")
	return c
}

func expectFrame(t *testing.T, c *Client, want []byte) {
	t.Helper()
	select {
	case got := <-c.send:
		if string(got) != string(want) {
			t.Fatalf("%s got %q, want %q", c.remoteAddr, got, want)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timeout waiting for %s to receive broadcast", c.remoteAddr)
	}
}

func TestHub_BroadcastDeliveredToAllClients(t *testing.T) {
	hub := runTestHub(t, 4, 8)
	c1 := registerTestClient(t, hub, "c1", 4)
	c2 := registerTestClient(t, hub, "c2", 4)

	msg := []byte(`{"type":"channel_changed","data":{"name":"Master","volume":12}}`)

	// BroadcastBytes may drop under scheduling pressure; feed the loop directly.
	hub.broadcast <- msg

	expectFrame(t, c1, msg)
	expectFrame(t, c2, msg)
}

func TestHub_SlowClientDisconnectedOnFullSendBuffer(t *testing.T) {
	hub := runTestHub(t, 1, 8)
	slow := registerTestClient(t, hub, "slow", 1)
	fast := registerTestClient(t, hub, "fast", 8)

	// Stuck client: its only slot is taken.
	slow.send <- []byte(`"already queued"`)

	msg := []byte(`{"type":"channel_changed","data":{"name":"PCM","volume":0}}`)
	hub.broadcast <- msg

	expectFrame(t, fast, msg)

	// Drain the pre-filled frame, then the channel must be closed.
	select {
	case <-slow.send:
	default:
	}
	waitUntil(t, 750*time.Millisecond, func() bool {
		select {
		case _, ok := <-slow.send:
			return !ok
		default:
			return false
		}
	}, "expected slow send channel to be closed")

	hub.mu.Lock()
	n := len(hub.clients)
	hub.mu.Unlock()
	if n != 1 {
		t.Errorf("expected 1 remaining client, got %d", n)
	}
}

func TestHub_UnregisterClosesOnce(t *testing.T) {
	hub := runTestHub(t, 2, 8)
	c := registerTestClient(t, hub, "c", 2)

	hub.unregister <- c
	hub.unregister <- c

	waitUntil(t, 500*time.Millisecond, func() bool {
		select {
		case _, ok := <-c.send:
			return !ok
		default:
			return false
		}
	}, "expected send channel to be closed")

	// A later close must not panic.
	c.close()
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timeout: %s", msg)
}
