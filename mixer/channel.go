package mixer

import (
	"errors"
	"math"
)

// ChannelVolume is one named playback control (for example "Master" or
// "Speaker") with a combined volume and stereo balance.
//
// Left, right and mono controllers always exist; channels the element does
// not have get an unsupported controller. The element is stereo only when it
// has both a left and a right playback channel, otherwise only the mono
// controller is written.
//
// A ChannelVolume caches nothing but its identity; every call goes to the
// hardware. It is not safe for concurrent use.
type ChannelVolume struct {
	card     int
	name     string
	hasLeft  bool
	hasRight bool

	left  ScaleController
	right ScaleController
	mono  ScaleController
}

// NewChannelVolume builds the controllers for elem. card is recorded for
// callers that need to tell apart equally named elements.
func NewChannelVolume(card int, elem Element) *ChannelVolume {
	return &ChannelVolume{
		card:     card,
		name:     elem.Name(),
		hasLeft:  elem.HasPlaybackChannel(ChannelFrontLeft),
		hasRight: elem.HasPlaybackChannel(ChannelFrontRight),
		left:     controllerFor(elem, ChannelFrontLeft),
		right:    controllerFor(elem, ChannelFrontRight),
		mono:     controllerFor(elem, ChannelMono),
	}
}

func controllerFor(elem Element, ch Channel) ScaleController {
	if !elem.HasPlaybackChannel(ch) {
		return unsupportedScale{}
	}
	return NewScaleController(elem, ch)
}

func (c *ChannelVolume) Name() string { return c.name }
func (c *ChannelVolume) Card() int    { return c.card }

// Stereo reports whether volume and balance are split across left and right.
func (c *ChannelVolume) Stereo() bool { return c.hasLeft && c.hasRight }

func (c *ChannelVolume) Left() ScaleController  { return c.left }
func (c *ChannelVolume) Right() ScaleController { return c.right }
func (c *ChannelVolume) Mono() ScaleController  { return c.mono }

// Scale reports the scale of the controller that carries the volume.
func (c *ChannelVolume) Scale() Scale {
	if c.Stereo() {
		return c.left.Scale()
	}
	return c.mono.Scale()
}

// SetVolume sets the loudest side to percent (clamped to 0..100) and derives
// the quieter side from the balance read before the update.
func (c *ChannelVolume) SetVolume(percent int) {
	percent = clamp(percent, 0, 100)
	if !c.Stereo() {
		c.mono.SetVolume(percent)
		return
	}
	balance := c.Balance()
	_ = c.distribute(percent, balance, 1.0-math.Abs(float64(balance))/100.0)
}

// Volume is the loudest of the left, right and mono controllers.
func (c *ChannelVolume) Volume() int {
	return max(c.left.Volume(), c.right.Volume(), c.mono.Volume())
}

// SetBalance re-derives both sides from the current volume. The quieter side
// before the call does not survive it. No-op for mono elements.
func (c *ChannelVolume) SetBalance(balance int) {
	if !c.Stereo() {
		return
	}
	balance = clamp(balance, -100, 100)
	volume := c.Volume()
	_ = c.distribute(volume, balance, (100.0-math.Abs(float64(balance)))/100.0)
}

// Balance is right minus left, in -100..100. Always 0 for mono elements.
func (c *ChannelVolume) Balance() int {
	if !c.Stereo() {
		return 0
	}
	return c.right.Volume() - c.left.Volume()
}

// WriteVolume is SetVolume reporting hardware errors. Every controller write
// is attempted; the errors are joined.
func (c *ChannelVolume) WriteVolume(percent int) error {
	percent = clamp(percent, 0, 100)
	if !c.Stereo() {
		return c.mono.WriteVolume(percent)
	}
	balance, err := c.ReadBalance()
	if err != nil {
		return err
	}
	return c.distribute(percent, balance, 1.0-math.Abs(float64(balance))/100.0)
}

// ReadVolume is Volume reporting the first hardware read error.
func (c *ChannelVolume) ReadVolume() (int, error) {
	v := 0
	for _, sc := range []ScaleController{c.left, c.right, c.mono} {
		n, err := sc.ReadVolume()
		if err != nil {
			return 0, err
		}
		v = max(v, n)
	}
	return v, nil
}

// WriteBalance is SetBalance reporting hardware errors.
func (c *ChannelVolume) WriteBalance(balance int) error {
	if !c.Stereo() {
		return nil
	}
	balance = clamp(balance, -100, 100)
	volume, err := c.ReadVolume()
	if err != nil {
		return err
	}
	return c.distribute(volume, balance, (100.0-math.Abs(float64(balance)))/100.0)
}

// ReadBalance is Balance reporting the first hardware read error.
func (c *ChannelVolume) ReadBalance() (int, error) {
	if !c.Stereo() {
		return 0, nil
	}
	left, err := c.left.ReadVolume()
	if err != nil {
		return 0, err
	}
	right, err := c.right.ReadVolume()
	if err != nil {
		return 0, err
	}
	return right - left, nil
}

// distribute writes volume to the louder side and volume*fraction to the
// other one, as selected by the sign of balance.
func (c *ChannelVolume) distribute(volume, balance int, fraction float64) error {
	quiet := int(math.Round(float64(volume) * fraction))
	left, right := volume, volume
	switch {
	case balance < 0:
		right = quiet
	case balance > 0:
		left = quiet
	}
	return errors.Join(c.left.WriteVolume(left), c.right.WriteVolume(right))
}

// Snapshot is a point-in-time view of a channel.
type Snapshot struct {
	Card    int    `json:"card"`
	Name    string `json:"name"`
	Stereo  bool   `json:"stereo"`
	Scale   string `json:"scale"`
	Volume  int    `json:"volume"`
	Balance int    `json:"balance"`
}

// Snapshot reads the channel in fail-soft mode.
func (c *ChannelVolume) Snapshot() Snapshot {
	return Snapshot{
		Card:    c.card,
		Name:    c.name,
		Stereo:  c.Stereo(),
		Scale:   c.Scale().String(),
		Volume:  c.Volume(),
		Balance: c.Balance(),
	}
}
