package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"volmixer/mixer"
)

// ============================================================================
// Central Daemon Loop
// ============================================================================
//
// The loop is the only goroutine that touches the registry, so channels need
// no locking. It:
//   - Runs client commands in strict mode and replies with fresh snapshots
//   - Polls every channel on a fixed cadence to notice external changes
//   - Emits a broadcast for every channel whose state changed
//
// ============================================================================

var errUnknownCommand = errors.New("unknown command")

// daemonConfig holds the loop's tunables.
type daemonConfig struct {
	PollHz      int // 0 disables polling
	StepPercent int
}

// runDaemon runs until ctx is canceled or events is closed.
func runDaemon(
	ctx context.Context,
	events <-chan Event,
	reg *mixer.Registry,
	cfg daemonConfig,
	broadcasts chan<- StateBroadcast,
	logger *slog.Logger,
) {
	state := newChannelState(snapshotAll(reg))
	logger.Info("daemon started", "channels", len(state.order))

	var tickC <-chan time.Time
	if cfg.PollHz > 0 {
		ticker := time.NewTicker(time.Second / time.Duration(cfg.PollHz))
		defer ticker.Stop()
		tickC = ticker.C
	}

	publish := func(bs []StateBroadcast) {
		for _, b := range bs {
			select {
			case broadcasts <- b:
			default:
				logger.Warn("broadcast queue full, dropping state update")
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon stopping (context canceled)")
			return

		case ev, ok := <-events:
			if !ok {
				logger.Info("daemon stopping (events channel closed)")
				return
			}
			req, isReq := ev.(Request)
			if !isReq {
				logger.Warn("daemon ignoring unknown event", "type", fmt.Sprintf("%T", ev))
				continue
			}

			reply := execute(reg, req.Command, cfg, logger)
			if reply.Err == nil && mutates(req.Command) {
				publish(state.observe(snapshotAll(reg), time.Now()))
			}
			if req.Reply != nil {
				select {
				case req.Reply <- reply:
				default:
					logger.Warn("reply channel full, dropping reply")
				}
			}

		case now := <-tickC:
			publish(state.observe(snapshotAll(reg), now))
		}
	}
}

// execute runs one command against the registry. Mutations use the strict
// API so clients learn about hardware failures.
func execute(reg *mixer.Registry, cmd Command, cfg daemonConfig, logger *slog.Logger) Reply {
	switch c := cmd.(type) {
	case ListChannels:
		return Reply{Channels: snapshotAll(reg)}

	case GetChannel:
		ch, err := lookup(reg, c.ChannelRef)
		if err != nil {
			return Reply{Err: err}
		}
		return Reply{Channels: []mixer.Snapshot{ch.Snapshot()}}

	case SetVolume:
		ch, err := lookup(reg, c.ChannelRef)
		if err != nil {
			return Reply{Err: err}
		}
		if err := ch.WriteVolume(c.Value); err != nil {
			logger.Warn("set volume failed", "channel", ch.Name(), "card", ch.Card(), "error", err)
			return Reply{Err: err}
		}
		logger.Debug("volume set", "channel", ch.Name(), "card", ch.Card(), "value", c.Value)
		return Reply{Channels: []mixer.Snapshot{ch.Snapshot()}}

	case SetBalance:
		ch, err := lookup(reg, c.ChannelRef)
		if err != nil {
			return Reply{Err: err}
		}
		if err := ch.WriteBalance(c.Value); err != nil {
			logger.Warn("set balance failed", "channel", ch.Name(), "card", ch.Card(), "error", err)
			return Reply{Err: err}
		}
		logger.Debug("balance set", "channel", ch.Name(), "card", ch.Card(), "value", c.Value)
		return Reply{Channels: []mixer.Snapshot{ch.Snapshot()}}

	case StepVolume:
		ch, err := lookup(reg, c.ChannelRef)
		if err != nil {
			return Reply{Err: err}
		}
		cur, err := ch.ReadVolume()
		if err != nil {
			return Reply{Err: err}
		}
		if err := ch.WriteVolume(cur + c.Steps*cfg.StepPercent); err != nil {
			logger.Warn("step volume failed", "channel", ch.Name(), "card", ch.Card(), "error", err)
			return Reply{Err: err}
		}
		return Reply{Channels: []mixer.Snapshot{ch.Snapshot()}}
	}

	return Reply{Err: errUnknownCommand}
}

func mutates(cmd Command) bool {
	switch cmd.(type) {
	case SetVolume, SetBalance, StepVolume:
		return true
	}
	return false
}

func lookup(reg *mixer.Registry, ref ChannelRef) (*mixer.ChannelVolume, error) {
	if ref.Card != nil {
		return reg.LookupOnCard(*ref.Card, ref.Name)
	}
	return reg.Lookup(ref.Name)
}

func snapshotAll(reg *mixer.Registry) []mixer.Snapshot {
	chs := reg.Channels()
	out := make([]mixer.Snapshot, 0, len(chs))
	for _, ch := range chs {
		out = append(out, ch.Snapshot())
	}
	return out
}
