package mixer

import "math"

// Scale identifies how a ScaleController talks to the hardware.
type Scale int

const (
	ScaleUnsupported Scale = iota
	ScaleDecibel
	ScaleLinear
)

func (s Scale) String() string {
	switch s {
	case ScaleDecibel:
		return "decibel"
	case ScaleLinear:
		return "linear"
	default:
		return "unsupported"
	}
}

// ScaleController translates between a percentage (0..100) and the native
// units of one channel of one element.
//
// SetVolume and Volume are fail-soft: a failed read reports 0 and a failed
// write is dropped. ReadVolume and WriteVolume compute the same values but
// return the collaborator's error.
type ScaleController interface {
	Scale() Scale
	Range() Range

	SetVolume(percent int)
	Volume() int

	WriteVolume(percent int) error
	ReadVolume() (int, error)
}

// Range is a cached native range. Span is Max - Min.
type Range struct {
	Min  int64
	Max  int64
	Span int64
}

func newRange(min, max int64) Range {
	return Range{Min: min, Max: max, Span: max - min}
}

// usable reports whether the range can map percentages at all.
func (r Range) usable() bool { return r.Span > 0 }

// toNative maps an already clamped percentage to a native value.
func (r Range) toNative(percent int) int64 {
	frac := float64(percent) / 100.0
	return r.Min + int64(math.Round(frac*float64(r.Span)))
}

// toPercent maps a native value back to 0..100.
func (r Range) toPercent(native int64) int {
	frac := float64(native-r.Min) / float64(r.Span)
	return clamp(int(math.Round(frac*100.0)), 0, 100)
}

// NewScaleController picks the decibel scale when the element reports a
// positive dB range, falls back to the linear scale, and otherwise returns a
// controller that reads 0 and ignores writes.
func NewScaleController(elem Element, ch Channel) ScaleController {
	if elem == nil {
		return unsupportedScale{}
	}
	if min, max, err := elem.DecibelRange(); err == nil && max > min {
		return &decibelScale{elem: elem, ch: ch, r: newRange(min, max)}
	}
	if min, max, err := elem.LinearRange(); err == nil && max > min {
		return &linearScale{elem: elem, ch: ch, r: newRange(min, max)}
	}
	return unsupportedScale{}
}

type decibelScale struct {
	elem Element
	ch   Channel
	r    Range
}

func (s *decibelScale) Scale() Scale { return ScaleDecibel }
func (s *decibelScale) Range() Range { return s.r }

func (s *decibelScale) WriteVolume(percent int) error {
	if !s.r.usable() {
		return nil
	}
	return s.elem.SetDecibel(s.ch, s.r.toNative(clamp(percent, 0, 100)))
}

func (s *decibelScale) ReadVolume() (int, error) {
	if !s.r.usable() {
		return 0, nil
	}
	v, err := s.elem.Decibel(s.ch)
	if err != nil {
		return 0, err
	}
	return s.r.toPercent(v), nil
}

func (s *decibelScale) SetVolume(percent int) { _ = s.WriteVolume(percent) }

func (s *decibelScale) Volume() int {
	v, err := s.ReadVolume()
	if err != nil {
		return 0
	}
	return v
}

type linearScale struct {
	elem Element
	ch   Channel
	r    Range
}

func (s *linearScale) Scale() Scale { return ScaleLinear }
func (s *linearScale) Range() Range { return s.r }

func (s *linearScale) WriteVolume(percent int) error {
	if !s.r.usable() {
		return nil
	}
	return s.elem.SetLinear(s.ch, s.r.toNative(clamp(percent, 0, 100)))
}

func (s *linearScale) ReadVolume() (int, error) {
	if !s.r.usable() {
		return 0, nil
	}
	v, err := s.elem.Linear(s.ch)
	if err != nil {
		return 0, err
	}
	return s.r.toPercent(v), nil
}

func (s *linearScale) SetVolume(percent int) { _ = s.WriteVolume(percent) }

func (s *linearScale) Volume() int {
	v, err := s.ReadVolume()
	if err != nil {
		return 0
	}
	return v
}

// unsupportedScale stands in for a channel the element cannot drive.
type unsupportedScale struct{}

func (unsupportedScale) Scale() Scale             { return ScaleUnsupported }
func (unsupportedScale) Range() Range             { return Range{} }
func (unsupportedScale) SetVolume(int)            {}
func (unsupportedScale) Volume() int              { return 0 }
func (unsupportedScale) WriteVolume(int) error    { return nil }
func (unsupportedScale) ReadVolume() (int, error) { return 0, nil }

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
