package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"volmixer/mixer"
)

// ============================================================================
// Events and Commands
// ============================================================================
// Everything that touches the mixer goes through the daemon loop, which is
// the only owner of the registry. Clients (IPC, HTTP, WebSocket, input
// devices) send a Request carrying a Command and, optionally, a reply
// channel.
// ============================================================================

// Event is a marker interface for everything the daemon loop consumes.
type Event interface {
	eventMarker()
}

// Command is a marker interface for client commands.
type Command interface {
	commandMarker()
}

// Request asks the daemon loop to run a command. Reply, when non-nil, must
// be buffered; the loop never blocks on it.
type Request struct {
	Command Command
	Reply   chan<- Reply
}

func (Request) eventMarker() {}

// Reply is the daemon's answer to a Request.
type Reply struct {
	Channels []mixer.Snapshot
	Err      error
}

// ChannelRef selects a channel by name, optionally on a specific card. Without
// a card the first channel with that name wins.
type ChannelRef struct {
	Name string `json:"name"`
	Card *int   `json:"card,omitempty"`
}

func (r ChannelRef) channelRef() ChannelRef { return r }

// ListChannels returns every channel.
type ListChannels struct{}

// GetChannel returns one channel.
type GetChannel struct {
	ChannelRef
}

// SetVolume sets a channel's volume in percent.
type SetVolume struct {
	ChannelRef
	Value int `json:"value"`
}

// SetBalance sets a stereo channel's balance (-100..100).
type SetBalance struct {
	ChannelRef
	Value int `json:"value"`
}

// StepVolume changes a channel's volume by Steps times the configured step.
type StepVolume struct {
	ChannelRef
	Steps int `json:"steps"` // positive=up, negative=down
}

func (ListChannels) commandMarker() {}
func (GetChannel) commandMarker()   {}
func (SetVolume) commandMarker()    {}
func (SetBalance) commandMarker()   {}
func (StepVolume) commandMarker()   {}

// ============================================================================
// JSON Encoding/Decoding Support
// ============================================================================

// CommandEnvelope wraps a command with a type discriminator for JSON.
type CommandEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// UnmarshalCommand decodes a JSON command envelope.
func UnmarshalCommand(data []byte) (Command, error) {
	var env CommandEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	var cmd Command
	switch env.Type {
	case "list_channels":
		return ListChannels{}, nil

	case "get_channel":
		var c GetChannel
		if err := unmarshalData(env, &c); err != nil {
			return nil, err
		}
		cmd = c

	case "set_volume":
		var c SetVolume
		if err := unmarshalData(env, &c); err != nil {
			return nil, err
		}
		cmd = c

	case "set_balance":
		var c SetBalance
		if err := unmarshalData(env, &c); err != nil {
			return nil, err
		}
		cmd = c

	case "step_volume":
		var c StepVolume
		if err := unmarshalData(env, &c); err != nil {
			return nil, err
		}
		cmd = c

	default:
		return nil, fmt.Errorf("unknown command type: %q", env.Type)
	}

	if r, ok := cmd.(interface{ channelRef() ChannelRef }); ok && r.channelRef().Name == "" {
		return nil, fmt.Errorf("%s: channel name is required", env.Type)
	}
	return cmd, nil
}

func unmarshalData(env CommandEnvelope, v any) error {
	if len(env.Data) == 0 {
		return fmt.Errorf("%s: missing data", env.Type)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", env.Type, err)
	}
	return nil
}

// MarshalCommand encodes a command into a JSON envelope.
func MarshalCommand(c Command) ([]byte, error) {
	var env CommandEnvelope

	switch c := c.(type) {
	case ListChannels:
		env.Type = "list_channels"
	case GetChannel:
		env.Type = "get_channel"
	case SetVolume:
		env.Type = "set_volume"
	case SetBalance:
		env.Type = "set_balance"
	case StepVolume:
		env.Type = "step_volume"
	default:
		return nil, fmt.Errorf("unsupported command type: %T", c)
	}

	if _, empty := c.(ListChannels); !empty {
		data, err := json.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", env.Type, err)
		}
		env.Data = data
	}

	return json.Marshal(env)
}

var errDaemonBusy = errors.New("daemon busy")

// submit hands cmd to the daemon loop and waits for its reply, giving up
// after requestTimeout or when ctx is done.
func submit(ctx context.Context, events chan<- Event, cmd Command) (Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	reply := make(chan Reply, 1)
	select {
	case events <- Request{Command: cmd, Reply: reply}:
	case <-ctx.Done():
		return Reply{}, fmt.Errorf("queue command: %w", errDaemonBusy)
	}

	select {
	case r := <-reply:
		return r, nil
	case <-ctx.Done():
		return Reply{}, fmt.Errorf("await reply: %w", errDaemonBusy)
	}
}
