package mixer

import (
	"errors"
	"log/slog"
)

// ErrChannelNotFound is returned by lookups that match no channel.
var ErrChannelNotFound = errors.New("channel not found")

// Registry owns the devices it loaded and the channels found on them.
//
// Channels borrow element handles from the devices, so they must not be used
// after Close.
type Registry struct {
	devices  []Device
	channels []*ChannelVolume
	logger   *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger makes the registry log skipped devices and elements at debug
// level.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry loads every device of hw in index order and collects one
// channel per active element with playback volume.
//
// It never fails. Devices that cannot be enumerated or loaded contribute no
// channels, and an empty registry is a valid result.
func NewRegistry(hw Hardware, opts ...Option) *Registry {
	r := &Registry{
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	if hw == nil {
		return r
	}

	devices, err := hw.Devices()
	if err != nil {
		r.logger.Debug("device enumeration failed", "error", err)
		return r
	}

	for _, dev := range devices {
		if err := dev.Load(); err != nil {
			r.logger.Debug("skipping device", "card", dev.Index(), "error", err)
			if relErr := dev.Release(); relErr != nil {
				r.logger.Debug("release after failed load", "card", dev.Index(), "error", relErr)
			}
			continue
		}
		r.devices = append(r.devices, dev)

		found := 0
		for _, elem := range dev.Elements() {
			if !elem.Active() {
				r.logger.Debug("skipping inactive element", "card", dev.Index(), "element", elem.Name())
				continue
			}
			if !elem.HasPlaybackVolume() {
				continue
			}
			r.channels = append(r.channels, NewChannelVolume(dev.Index(), elem))
			found++
		}
		r.logger.Debug("device loaded", "card", dev.Index(), "channels", found)
	}
	return r
}

// Channels returns the channels in discovery order. The slice is a copy; the
// channels themselves are shared and stay valid until Close.
func (r *Registry) Channels() []*ChannelVolume {
	out := make([]*ChannelVolume, len(r.channels))
	copy(out, r.channels)
	return out
}

// Lookup returns the first channel named name in discovery order.
func (r *Registry) Lookup(name string) (*ChannelVolume, error) {
	for _, c := range r.channels {
		if c.name == name {
			return c, nil
		}
	}
	return nil, ErrChannelNotFound
}

// LookupOnCard returns the channel named name on the given card.
func (r *Registry) LookupOnCard(card int, name string) (*ChannelVolume, error) {
	for _, c := range r.channels {
		if c.card == card && c.name == name {
			return c, nil
		}
	}
	return nil, ErrChannelNotFound
}

// Close releases every loaded device. Release errors are joined; calling
// Close again is a no-op.
func (r *Registry) Close() error {
	var errs []error
	for _, dev := range r.devices {
		if err := dev.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	r.devices = nil
	r.channels = nil
	return errors.Join(errs...)
}
