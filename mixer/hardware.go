// Package mixer presents the playback volume controls of sound hardware as
// channels with a 0..100 volume and a -100..+100 stereo balance, hiding
// whether a control is driven in decibels, in raw linear units, or not at all.
//
// The hardware itself is reached through the Hardware, Device and Element
// interfaces. The alsa package implements them for Linux; simhw implements
// them in memory.
package mixer

import "fmt"

// Channel selects one sub-channel of a control element.
type Channel int

const (
	ChannelMono Channel = iota
	ChannelFrontLeft
	ChannelFrontRight
)

func (c Channel) String() string {
	switch c {
	case ChannelMono:
		return "mono"
	case ChannelFrontLeft:
		return "front-left"
	case ChannelFrontRight:
		return "front-right"
	default:
		return fmt.Sprintf("channel(%d)", int(c))
	}
}

// Hardware enumerates sound devices in index order.
type Hardware interface {
	Devices() ([]Device, error)
}

// Device is one sound card's control interface.
//
// Load performs every step needed before elements can be used (open,
// attach, register, load). Release gives back whatever Load acquired and
// must be safe to call more than once, including after a failed Load.
type Device interface {
	Index() int
	Load() error
	Elements() []Element
	Release() error
}

// Element is a named hardware control. Decibel values are in hundredths of
// a dB.
//
// Elements are borrowed from their Device and are only valid until the
// device is released.
type Element interface {
	Name() string
	Active() bool
	HasPlaybackVolume() bool
	HasPlaybackChannel(ch Channel) bool

	DecibelRange() (min, max int64, err error)
	LinearRange() (min, max int64, err error)

	Decibel(ch Channel) (int64, error)
	SetDecibel(ch Channel, v int64) error
	Linear(ch Channel) (int64, error)
	SetLinear(ch Channel, v int64) error
}
