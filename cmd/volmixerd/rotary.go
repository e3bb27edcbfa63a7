package main

import (
	"math"
	"sync"
	"time"
)

// AccelConfig controls step acceleration for volume keys and encoders.
type AccelConfig struct {
	Window     time.Duration // How far back steps are counted
	Threshold  int           // Same-direction steps within Window that trigger acceleration; 0 disables
	Multiplier float64       // Step multiplier while accelerating
}

// stepAccel tracks recent steps to detect key repeat and fast spinning, and
// scales the step size accordingly.
//
// Thread-safe: each input device may report steps from its own goroutine.
type stepAccel struct {
	cfg AccelConfig

	mu     sync.Mutex
	recent []recentStep
}

type recentStep struct {
	at        time.Time
	direction int // +1 up, -1 down
}

func newStepAccel(cfg AccelConfig) *stepAccel {
	return &stepAccel{
		cfg:    cfg,
		recent: make([]recentStep, 0, 16),
	}
}

// addStep records a step at now and returns how many steps in the same
// direction fall inside the window, this one included.
func (a *stepAccel) addStep(direction int, now time.Time) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff := now.Add(-a.cfg.Window)

	kept := a.recent[:0]
	for _, s := range a.recent {
		if s.at.After(cutoff) {
			kept = append(kept, s)
		}
	}
	kept = append(kept, recentStep{at: now, direction: direction})
	a.recent = kept

	same := 0
	for _, s := range kept {
		if s.direction == direction {
			same++
		}
	}
	return same
}

// steps records one step in direction and returns the signed number of steps
// to apply.
func (a *stepAccel) steps(direction int, now time.Time) int {
	n := a.addStep(direction, now)
	if a.cfg.Threshold > 0 && n >= a.cfg.Threshold && a.cfg.Multiplier > 1 {
		return int(math.Round(float64(direction) * a.cfg.Multiplier))
	}
	return direction
}
