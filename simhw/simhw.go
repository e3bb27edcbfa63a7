// Package simhw is an in-memory sound hardware implementing the mixer
// collaborator interfaces. Cards and elements are described by a Spec,
// built in code or decoded from YAML, and failures can be injected per card
// and per element.
//
// An element keeps one native value per channel, in centidecibels when it
// has a decibel range and in linear units otherwise. When it has both, the
// linear view is derived proportionally from the decibel value.
package simhw

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"volmixer/mixer"
)

var (
	ErrLoad        = errors.New("simhw: card failed to load")
	ErrNoDecibel   = errors.New("simhw: element has no decibel range")
	ErrNoLinear    = errors.New("simhw: element has no linear range")
	ErrReadFailed  = errors.New("simhw: read failed")
	ErrWriteFailed = errors.New("simhw: write failed")
	ErrNoChannel   = errors.New("simhw: no such channel")
)

// Range is a closed native range.
type Range struct {
	Min int64 `yaml:"min"`
	Max int64 `yaml:"max"`
}

// Spec describes a whole simulated machine.
type Spec struct {
	Cards []CardSpec `yaml:"cards"`
}

// CardSpec describes one card.
type CardSpec struct {
	Index    int           `yaml:"index"`
	Name     string        `yaml:"name"`
	FailLoad bool          `yaml:"fail_load,omitempty"`
	Elements []ElementSpec `yaml:"elements"`
}

// ElementSpec describes one control element. Channels is 1 (mono) or 2
// (front left and right).
type ElementSpec struct {
	Name       string  `yaml:"name"`
	Inactive   bool    `yaml:"inactive,omitempty"`
	NoPlayback bool    `yaml:"no_playback,omitempty"`
	Channels   int     `yaml:"channels"`
	Decibel    *Range  `yaml:"decibel,omitempty"`
	Linear     *Range  `yaml:"linear,omitempty"`
	Values     []int64 `yaml:"values,omitempty"`
}

// Hardware is a set of simulated cards.
type Hardware struct {
	// EnumerateErr, when set, is returned by Devices.
	EnumerateErr error

	cards []*Card
}

// New builds the hardware described by spec. Cards are kept in index order.
func New(spec Spec) *Hardware {
	h := &Hardware{}
	for _, cs := range spec.Cards {
		c := &Card{index: cs.Index, name: cs.Name, failLoad: cs.FailLoad}
		for _, es := range cs.Elements {
			c.elements = append(c.elements, newElement(es))
		}
		h.cards = append(h.cards, c)
	}
	sort.SliceStable(h.cards, func(i, j int) bool { return h.cards[i].index < h.cards[j].index })
	return h
}

func (h *Hardware) Devices() ([]mixer.Device, error) {
	if h.EnumerateErr != nil {
		return nil, h.EnumerateErr
	}
	out := make([]mixer.Device, 0, len(h.cards))
	for _, c := range h.cards {
		out = append(out, c)
	}
	return out, nil
}

// Card returns the card with the given index, or nil.
func (h *Hardware) Card(index int) *Card {
	for _, c := range h.cards {
		if c.index == index {
			return c
		}
	}
	return nil
}

// Card is a simulated sound card.
type Card struct {
	mu       sync.Mutex
	index    int
	name     string
	failLoad bool
	loaded   bool
	released int
	elements []*Element
}

func (c *Card) Index() int   { return c.index }
func (c *Card) Name() string { return c.name }

func (c *Card) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failLoad {
		return fmt.Errorf("card %d: %w", c.index, ErrLoad)
	}
	c.loaded = true
	return nil
}

func (c *Card) Elements() []mixer.Element {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return nil
	}
	out := make([]mixer.Element, 0, len(c.elements))
	for _, e := range c.elements {
		out = append(out, e)
	}
	return out
}

func (c *Card) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = false
	c.released++
	return nil
}

// Released counts Release calls.
func (c *Card) Released() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.released
}

// Element returns the first element with the given name, or nil.
func (c *Card) Element(name string) *Element {
	for _, e := range c.elements {
		if e.spec.Name == name {
			return e
		}
	}
	return nil
}

// Element is a simulated control element.
type Element struct {
	mu         sync.Mutex
	spec       ElementSpec
	values     []int64
	failReads  bool
	failWrites bool
	writes     int
}

func newElement(spec ElementSpec) *Element {
	if spec.Channels < 1 {
		spec.Channels = 1
	}
	e := &Element{spec: spec, values: make([]int64, spec.Channels)}
	r, ok := e.nativeRange()
	for i := range e.values {
		switch {
		case i < len(spec.Values):
			e.values[i] = spec.Values[i]
		case ok:
			e.values[i] = r.Max
		}
	}
	return e
}

// nativeRange is the range the stored values live in.
func (e *Element) nativeRange() (Range, bool) {
	if e.spec.Decibel != nil {
		return *e.spec.Decibel, true
	}
	if e.spec.Linear != nil {
		return *e.spec.Linear, true
	}
	return Range{}, false
}

func (e *Element) Name() string            { return e.spec.Name }
func (e *Element) Active() bool            { return !e.spec.Inactive }
func (e *Element) HasPlaybackVolume() bool { return !e.spec.NoPlayback }

// HasPlaybackChannel reports front left and right only for two-channel
// elements. The mono channel always exists.
func (e *Element) HasPlaybackChannel(ch mixer.Channel) bool {
	switch ch {
	case mixer.ChannelMono:
		return true
	case mixer.ChannelFrontLeft, mixer.ChannelFrontRight:
		return e.spec.Channels >= 2
	}
	return false
}

func (e *Element) DecibelRange() (int64, int64, error) {
	if e.spec.Decibel == nil {
		return 0, 0, ErrNoDecibel
	}
	return e.spec.Decibel.Min, e.spec.Decibel.Max, nil
}

func (e *Element) LinearRange() (int64, int64, error) {
	if e.spec.Linear == nil {
		return 0, 0, ErrNoLinear
	}
	return e.spec.Linear.Min, e.spec.Linear.Max, nil
}

// slot maps a selector to a value index. Mono and front left share slot 0,
// as they do on ALSA.
func (e *Element) slot(ch mixer.Channel) (int, error) {
	switch ch {
	case mixer.ChannelMono, mixer.ChannelFrontLeft:
		return 0, nil
	case mixer.ChannelFrontRight:
		if len(e.values) >= 2 {
			return 1, nil
		}
	}
	return 0, fmt.Errorf("%s %v: %w", e.spec.Name, ch, ErrNoChannel)
}

func (e *Element) Decibel(ch mixer.Channel) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.spec.Decibel == nil {
		return 0, ErrNoDecibel
	}
	if e.failReads {
		return 0, ErrReadFailed
	}
	i, err := e.slot(ch)
	if err != nil {
		return 0, err
	}
	return e.values[i], nil
}

func (e *Element) SetDecibel(ch mixer.Channel, v int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.spec.Decibel == nil {
		return ErrNoDecibel
	}
	if e.failWrites {
		return ErrWriteFailed
	}
	i, err := e.slot(ch)
	if err != nil {
		return err
	}
	e.values[i] = clampRange(v, *e.spec.Decibel)
	e.writes++
	return nil
}

func (e *Element) Linear(ch mixer.Channel) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.spec.Linear == nil {
		return 0, ErrNoLinear
	}
	if e.failReads {
		return 0, ErrReadFailed
	}
	i, err := e.slot(ch)
	if err != nil {
		return 0, err
	}
	if e.spec.Decibel == nil {
		return e.values[i], nil
	}
	return rescale(e.values[i], *e.spec.Decibel, *e.spec.Linear), nil
}

func (e *Element) SetLinear(ch mixer.Channel, v int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.spec.Linear == nil {
		return ErrNoLinear
	}
	if e.failWrites {
		return ErrWriteFailed
	}
	i, err := e.slot(ch)
	if err != nil {
		return err
	}
	v = clampRange(v, *e.spec.Linear)
	if e.spec.Decibel != nil {
		v = rescale(v, *e.spec.Linear, *e.spec.Decibel)
	}
	e.values[i] = v
	e.writes++
	return nil
}

// SetFailReads makes every read fail until cleared.
func (e *Element) SetFailReads(fail bool) {
	e.mu.Lock()
	e.failReads = fail
	e.mu.Unlock()
}

// SetFailWrites makes every write fail until cleared.
func (e *Element) SetFailWrites(fail bool) {
	e.mu.Lock()
	e.failWrites = fail
	e.mu.Unlock()
}

// Value returns the stored native value of a slot (0 or 1).
func (e *Element) Value(slot int) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.values[slot]
}

// SetValue stores a native value without counting it as a write, the way
// another program changing the mixer would.
func (e *Element) SetValue(slot int, v int64) {
	e.mu.Lock()
	e.values[slot] = v
	e.mu.Unlock()
}

// Writes counts successful writes.
func (e *Element) Writes() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.writes
}

func clampRange(v int64, r Range) int64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// rescale maps v from one range onto another proportionally.
func rescale(v int64, from, to Range) int64 {
	span := from.Max - from.Min
	if span <= 0 {
		return to.Min
	}
	frac := float64(v-from.Min) / float64(span)
	return to.Min + int64(math.Round(frac*float64(to.Max-to.Min)))
}
