package main

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"
)

func encodeInputEvents(t *testing.T, evs ...inputEvent) []byte {
	t.Helper()
	var buf bytes.Buffer
	for _, ev := range evs {
		if err := binary.Write(&buf, binary.LittleEndian, ev); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	return buf.Bytes()
}

func TestDecodeInputEvents(t *testing.T) {
	in := []inputEvent{
		{Sec: 1, Usec: 2, Type: EV_KEY, Code: KEY_VOLUMEUP, Value: evValuePress},
		{Sec: 1, Usec: 3, Type: EV_REL, Code: REL_DIAL, Value: -2},
	}
	buf := encodeInputEvents(t, in...)
	if len(buf) != 2*inputEventSize {
		t.Fatalf("expected %d bytes, got %d", 2*inputEventSize, len(buf))
	}

	// A trailing partial event is dropped.
	got := decodeInputEvents(append(buf, 0, 1, 2))
	if len(got) != 2 || got[0] != in[0] || got[1] != in[1] {
		t.Errorf("decode mismatch: got %+v", got)
	}
}

func TestTranslateInput(t *testing.T) {
	accel := newStepAccel(AccelConfig{}) // no acceleration
	now := time.Now()

	tests := []struct {
		name string
		ev   inputEvent
		want int
		ok   bool
	}{
		{"vol up press", inputEvent{Type: EV_KEY, Code: KEY_VOLUMEUP, Value: evValuePress}, 1, true},
		{"vol up repeat", inputEvent{Type: EV_KEY, Code: KEY_VOLUMEUP, Value: evValueRepeat}, 1, true},
		{"vol up release", inputEvent{Type: EV_KEY, Code: KEY_VOLUMEUP, Value: evValueRelease}, 0, false},
		{"vol down press", inputEvent{Type: EV_KEY, Code: KEY_VOLUMEDOWN, Value: evValuePress}, -1, true},
		{"other key", inputEvent{Type: EV_KEY, Code: 30, Value: evValuePress}, 0, false},
		{"dial right", inputEvent{Type: EV_REL, Code: REL_DIAL, Value: 1}, 1, true},
		{"dial fast left", inputEvent{Type: EV_REL, Code: REL_DIAL, Value: -3}, -3, true},
		{"wheel", inputEvent{Type: EV_REL, Code: REL_WHEEL, Value: 2}, 2, true},
		{"rel x", inputEvent{Type: EV_REL, Code: 0x00, Value: 5}, 0, false},
		{"zero dial", inputEvent{Type: EV_REL, Code: REL_DIAL, Value: 0}, 0, false},
		{"sync", inputEvent{Type: 0, Code: 0, Value: 0}, 0, false},
	}
	for _, tt := range tests {
		got, ok := translateInput(tt.ev, accel, now)
		if got != tt.want || ok != tt.ok {
			t.Errorf("%s: got (%d, %v), want (%d, %v)", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}

func TestTranslateInput_Accelerates(t *testing.T) {
	accel := newStepAccel(AccelConfig{Window: time.Second, Threshold: 2, Multiplier: 3})
	now := time.Now()
	ev := inputEvent{Type: EV_REL, Code: REL_DIAL, Value: 2}

	if got, _ := translateInput(ev, accel, now); got != 2 {
		t.Errorf("first turn: got %d, want 2", got)
	}
	if got, _ := translateInput(ev, accel, now.Add(10*time.Millisecond)); got != 6 {
		t.Errorf("second turn: got %d, want 6", got)
	}
}
