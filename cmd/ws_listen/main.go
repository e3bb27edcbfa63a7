package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"volmixer/mixer"
)

// message is the daemon's WebSocket envelope.
type message struct {
	Type string          `json:"type"`
	Ts   *time.Time      `json:"ts,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

func main() {
	var (
		wsURL = flag.String("ws", "ws://127.0.0.1:3002/ws/state", "volmixerd state WebSocket URL")
		raw   = flag.Bool("raw", false, "Print frames as received")
	)
	flag.Parse()

	u, err := url.Parse(*wsURL)
	if err != nil {
		log.Fatalf("invalid websocket URL: %v", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	d := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	log.Printf("connecting to %s...", u.String())
	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("connected! (press Ctrl+C to exit)")

	// The daemon pings every 20s; answer pongs keep the read deadline fresh.
	var writeMu sync.Mutex
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second))
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			messageType, frame, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("websocket error: %v", err)
				}
				return
			}
			if messageType != websocket.TextMessage {
				continue
			}
			if *raw {
				fmt.Printf("%s\n", frame)
				continue
			}
			handleFrame(frame)
		}
	}()

	select {
	case <-sigc:
		log.Printf("shutting down...")
		writeMu.Lock()
		err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		writeMu.Unlock()
		if err != nil {
			log.Printf("error closing connection: %v", err)
		}
	case <-done:
		log.Printf("connection closed")
	}
}

// handleFrame prints state_init as a channel list and channel_changed as one
// line per change.
func handleFrame(frame []byte) {
	var m message
	if err := json.Unmarshal(frame, &m); err != nil {
		fmt.Printf("[TEXT] %s\n", frame)
		return
	}

	ts := "-"
	if m.Ts != nil {
		ts = m.Ts.Local().Format("15:04:05.000")
	}

	switch m.Type {
	case "state_init":
		var init struct {
			Channels []mixer.Snapshot `json:"channels"`
		}
		if err := json.Unmarshal(m.Data, &init); err != nil {
			fmt.Printf("[%s] state_init (bad data: %v)\n", ts, err)
			return
		}
		fmt.Printf("[%s] state_init: %d channels\n", ts, len(init.Channels))
		for _, c := range init.Channels {
			fmt.Printf("    %s\n", describe(c))
		}

	case "channel_changed":
		var c mixer.Snapshot
		if err := json.Unmarshal(m.Data, &c); err != nil {
			fmt.Printf("[%s] channel_changed (bad data: %v)\n", ts, err)
			return
		}
		fmt.Printf("[%s] %s\n", ts, describe(c))

	default:
		fmt.Printf("[%s] %s %s\n", ts, m.Type, m.Data)
	}
}

func describe(c mixer.Snapshot) string {
	s := fmt.Sprintf("card %d %-16s volume %3d%%", c.Card, c.Name, c.Volume)
	if c.Stereo {
		s += fmt.Sprintf(" balance %+d", c.Balance)
	}
	return s
}
