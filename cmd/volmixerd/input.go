package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"time"
)

// inputEvent represents a Linux input event structure
// struct input_event { struct timeval time; __u16 type; __u16 code; __s32 value; };
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

var inputEventSize = binary.Size(inputEvent{})

// decodeInputEvents parses every whole event in buf. A trailing partial
// event is ignored; the kernel never splits events across reads.
func decodeInputEvents(buf []byte) []inputEvent {
	n := len(buf) / inputEventSize
	out := make([]inputEvent, 0, n)
	reader := bytes.NewReader(nil)
	for i := 0; i < n; i++ {
		reader.Reset(buf[i*inputEventSize : (i+1)*inputEventSize])
		var ev inputEvent
		if err := binary.Read(reader, binary.LittleEndian, &ev); err != nil {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// translateInput maps one input event to a signed number of volume steps.
// Volume keys step on press and auto-repeat; encoders step once per detent
// in the direction of the relative value.
func translateInput(ev inputEvent, accel *stepAccel, now time.Time) (int, bool) {
	switch ev.Type {
	case EV_KEY:
		if ev.Value != evValuePress && ev.Value != evValueRepeat {
			return 0, false
		}
		switch ev.Code {
		case KEY_VOLUMEUP:
			return accel.steps(1, now), true
		case KEY_VOLUMEDOWN:
			return accel.steps(-1, now), true
		}

	case EV_REL:
		if (ev.Code != REL_DIAL && ev.Code != REL_WHEEL) || ev.Value == 0 {
			return 0, false
		}
		dir, detents := 1, int(ev.Value)
		if detents < 0 {
			dir, detents = -1, -detents
		}
		return accel.steps(dir, now) * detents, true
	}
	return 0, false
}

// runInput reads the configured devices and turns volume keys and encoder
// turns into StepVolume requests for the configured channel. It returns when
// ctx is canceled or a device fails.
func runInput(ctx context.Context, cfg InputConfig, events chan<- Event, logger *slog.Logger) error {
	if len(cfg.Devices) == 0 {
		logger.Info("input disabled (no devices configured)")
		return nil
	}

	raw := make(chan inputEvent, 64)
	readErr := make(chan error, 1)
	go func() { readErr <- readInputEvents(ctx, cfg.Devices, raw) }()

	accel := newStepAccel(cfg.ToAccelConfig())
	target := ChannelRef{Name: cfg.Channel, Card: cfg.Card}
	logger.Info("input reader started", "devices", cfg.Devices, "channel", cfg.Channel)

	for {
		select {
		case <-ctx.Done():
			return <-readErr

		case err := <-readErr:
			if err != nil {
				return fmt.Errorf("input: %w", err)
			}
			return nil

		case ev := <-raw:
			steps, ok := translateInput(ev, accel, time.Now())
			if !ok {
				continue
			}
			logger.Debug("input step", "code", ev.Code, "value", ev.Value, "steps", steps)

			// Fire and forget: the daemon logs failed steps.
			select {
			case events <- Request{Command: StepVolume{ChannelRef: target, Steps: steps}}:
			default:
				logger.Warn("event queue full, dropping input step")
			}
		}
	}
}
