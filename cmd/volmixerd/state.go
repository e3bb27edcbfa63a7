package main

import (
	"time"

	"volmixer/mixer"
)

// StateBroadcast is a marker interface for state changes pushed to
// WebSocket clients.
type StateBroadcast interface {
	broadcastMarker()
}

// BroadcastChannelChanged reports a channel whose volume or balance changed,
// whether through the daemon or another mixer application.
type BroadcastChannelChanged struct {
	Channel mixer.Snapshot
	At      time.Time
}

func (BroadcastChannelChanged) broadcastMarker() {}

type channelKey struct {
	card int
	name string
}

func keyOf(s mixer.Snapshot) channelKey { return channelKey{card: s.Card, name: s.Name} }

// channelState is the daemon's last observed view of every channel. It is
// owned by the daemon loop.
type channelState struct {
	order []channelKey
	last  map[channelKey]mixer.Snapshot
}

func newChannelState(initial []mixer.Snapshot) *channelState {
	s := &channelState{last: make(map[channelKey]mixer.Snapshot, len(initial))}
	for _, snap := range initial {
		k := keyOf(snap)
		if _, dup := s.last[k]; dup {
			continue
		}
		s.order = append(s.order, k)
		s.last[k] = snap
	}
	return s
}

// observe records fresh snapshots and returns a broadcast for every channel
// whose volume or balance differs from the previous observation. Channels
// not seen before are reported too.
func (s *channelState) observe(snaps []mixer.Snapshot, at time.Time) []StateBroadcast {
	var out []StateBroadcast
	for _, snap := range snaps {
		k := keyOf(snap)
		prev, known := s.last[k]
		if !known {
			s.order = append(s.order, k)
		}
		s.last[k] = snap
		if known && prev.Volume == snap.Volume && prev.Balance == snap.Balance {
			continue
		}
		out = append(out, BroadcastChannelChanged{Channel: snap, At: at})
	}
	return out
}
