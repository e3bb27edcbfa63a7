package main

import "time"

// Linux input event types and codes (from <linux/input.h>)
const (
	EV_KEY = 0x01
	EV_REL = 0x02

	KEY_VOLUMEDOWN = 114
	KEY_VOLUMEUP   = 115

	// Rotary encoder relative axis codes
	REL_DIAL  = 0x07
	REL_WHEEL = 0x08
)

// Input event value constants
const (
	evValueRelease = 0
	evValuePress   = 1
	evValueRepeat  = 2
)

// Daemon defaults
const (
	defaultSocketPath = "/tmp/volmixer.sock"
	defaultHTTPPort   = 3002
	defaultPollHz     = 4 // Channel monitor frequency (Hz)
	defaultChannel    = "Master"

	// Step acceleration defaults
	defaultStepPercent     = 2   // Volume change per key press or encoder detent (%)
	defaultAccelWindowMS   = 200 // Time window for fast-turn detection (ms)
	defaultAccelThreshold  = 3   // Steps in window to trigger acceleration
	defaultAccelMultiplier = 2.0 // Multiplier while accelerating

	// requestTimeout bounds how long IPC and HTTP clients wait for the daemon loop.
	requestTimeout = 2 * time.Second
)
