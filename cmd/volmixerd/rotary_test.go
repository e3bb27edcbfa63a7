package main

import (
	"testing"
	"time"
)

func newTestAccel(window time.Duration) *stepAccel {
	return newStepAccel(AccelConfig{Window: window, Threshold: 3, Multiplier: 2})
}

// TestStepAccel_AddStep_Basic tests basic step tracking
func TestStepAccel_AddStep_Basic(t *testing.T) {
	a := newTestAccel(200 * time.Millisecond)
	now := time.Now()

	for i := 1; i <= 3; i++ {
		if got := a.addStep(1, now.Add(time.Duration(i)*time.Millisecond)); got != i {
			t.Errorf("step %d: expected count=%d, got %d", i, i, got)
		}
	}
}

// TestStepAccel_AddStep_DirectionChange tests that opposite steps are counted
// separately
func TestStepAccel_AddStep_DirectionChange(t *testing.T) {
	a := newTestAccel(200 * time.Millisecond)
	now := time.Now()
	at := func(ms int) time.Time { return now.Add(time.Duration(ms) * time.Millisecond) }

	a.addStep(1, at(0))
	a.addStep(1, at(10))
	if got := a.addStep(1, at(20)); got != 3 {
		t.Errorf("expected 3 up steps, got %d", got)
	}

	if got := a.addStep(-1, at(30)); got != 1 {
		t.Errorf("expected count=1 for new direction, got %d", got)
	}
	if got := a.addStep(-1, at(40)); got != 2 {
		t.Errorf("expected count=2 for down direction, got %d", got)
	}

	// The earlier up steps are still inside the window.
	if got := a.addStep(1, at(50)); got != 4 {
		t.Errorf("expected count=4, got %d", got)
	}
}

// TestStepAccel_AddStep_WindowExpiry tests that old steps are pruned
func TestStepAccel_AddStep_WindowExpiry(t *testing.T) {
	a := newTestAccel(100 * time.Millisecond)
	now := time.Now()

	a.addStep(1, now)
	a.addStep(1, now.Add(10*time.Millisecond))
	if got := a.addStep(1, now.Add(20*time.Millisecond)); got != 3 {
		t.Errorf("expected count=3, got %d", got)
	}

	if got := a.addStep(1, now.Add(200*time.Millisecond)); got != 1 {
		t.Errorf("expected count=1 after window expiry, got %d", got)
	}
}

// TestStepAccel_AddStep_PartialExpiry tests that some steps expire while others remain
func TestStepAccel_AddStep_PartialExpiry(t *testing.T) {
	a := newTestAccel(100 * time.Millisecond)
	now := time.Now()

	a.addStep(1, now)
	a.addStep(1, now.Add(60*time.Millisecond))
	a.addStep(1, now.Add(61*time.Millisecond))

	// 120ms after the first step, 60ms after the other two.
	if got := a.addStep(1, now.Add(120*time.Millisecond)); got != 3 {
		t.Errorf("expected count=3 (2 recent + 1 new), got %d", got)
	}
}

// TestStepAccel_AddStep_ZeroWindow tests behavior with zero window
func TestStepAccel_AddStep_ZeroWindow(t *testing.T) {
	a := newTestAccel(0)
	now := time.Now()

	if got := a.addStep(1, now); got != 1 {
		t.Errorf("expected count=1 with zero window, got %d", got)
	}
	if got := a.addStep(1, now); got != 1 {
		t.Errorf("expected count=1 with zero window (previous expired), got %d", got)
	}
}

func TestStepAccel_Steps(t *testing.T) {
	a := newTestAccel(200 * time.Millisecond)
	now := time.Now()
	at := func(ms int) time.Time { return now.Add(time.Duration(ms) * time.Millisecond) }

	want := []int{1, 1, 2, 2}
	for i, w := range want {
		if got := a.steps(1, at(i*20)); got != w {
			t.Errorf("up step %d: got %d, want %d", i, got, w)
		}
	}

	// Opposite direction starts slow again.
	if got := a.steps(-1, at(100)); got != -1 {
		t.Errorf("first down step: got %d, want -1", got)
	}
}

func TestStepAccel_StepsDisabled(t *testing.T) {
	tests := []AccelConfig{
		{Window: time.Second, Threshold: 0, Multiplier: 4},
		{Window: time.Second, Threshold: 2, Multiplier: 1},
	}
	for _, cfg := range tests {
		a := newStepAccel(cfg)
		now := time.Now()
		for i := 0; i < 5; i++ {
			if got := a.steps(-1, now.Add(time.Duration(i)*time.Millisecond)); got != -1 {
				t.Errorf("cfg %+v step %d: got %d, want -1", cfg, i, got)
			}
		}
	}
}

// TestStepAccel_Concurrent tests thread safety
func TestStepAccel_Concurrent(t *testing.T) {
	a := newTestAccel(time.Second)

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(dir int) {
			for j := 0; j < 100; j++ {
				a.steps(dir, time.Now())
			}
			done <- true
		}(i%2*2 - 1)
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	if got := a.addStep(1, time.Now()); got < 1 {
		t.Errorf("expected at least 1 step, got %d", got)
	}
}
