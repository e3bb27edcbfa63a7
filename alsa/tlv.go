package alsa

import (
	"errors"
	"math"
)

// TLV types from <sound/tlv.h>.
const (
	tlvContainer    = 0
	tlvDBScale      = 1
	tlvDBLinear     = 2
	tlvDBRange      = 3
	tlvDBMinMax     = 4
	tlvDBMinMaxMute = 5
)

const (
	tlvScaleStepMask = 0xffff
	tlvScaleMute     = 0x10000

	// dbGainMute is SNDRV_CTL_TLV_DB_GAIN_MUTE.
	dbGainMute = -9999999
)

var errNoDBInfo = errors.New("alsa: tlv carries no dB information")

// dbMapping converts raw control values in [lo, hi] to centidecibels. Every
// mapping is non-decreasing in raw.
type dbMapping interface {
	bounds(lo, hi int64) (min, max int64)
	toDB(raw, lo, hi int64) int64
}

// parseDB decodes the first dB description found in tlv, which starts at a
// type word. Muting flags are recorded but the reported minimum is always the
// lowest audible level.
func parseDB(tlv []uint32) (dbMapping, error) {
	payload, err := tlvPayload(tlv)
	if err != nil {
		return nil, err
	}

	switch tlv[0] {
	case tlvContainer:
		for off := 0; off+2 <= len(payload); {
			if m, err := parseDB(payload[off:]); err == nil {
				return m, nil
			}
			off += 2 + tlvWords(payload[off+1])
		}
		return nil, errNoDBInfo

	case tlvDBScale:
		if len(payload) < 2 {
			return nil, errShortTLV
		}
		return dbScale{
			min:  int64(int32(payload[0])),
			step: int64(payload[1] & tlvScaleStepMask),
			mute: payload[1]&tlvScaleMute != 0,
		}, nil

	case tlvDBMinMax, tlvDBMinMaxMute:
		if len(payload) < 2 {
			return nil, errShortTLV
		}
		return dbMinMax{
			min:  int64(int32(payload[0])),
			max:  int64(int32(payload[1])),
			mute: tlv[0] == tlvDBMinMaxMute,
		}, nil

	case tlvDBLinear:
		if len(payload) < 2 {
			return nil, errShortTLV
		}
		return dbLinear{min: int64(int32(payload[0])), max: int64(int32(payload[1]))}, nil

	case tlvDBRange:
		var r dbRanges
		for off := 0; off+4 <= len(payload); {
			lo, hi := int64(payload[off]), int64(payload[off+1])
			m, err := parseDB(payload[off+2:])
			if err != nil {
				return nil, err
			}
			r = append(r, dbRangeItem{lo: lo, hi: hi, m: m})
			off += 4 + tlvWords(payload[off+3])
		}
		if len(r) == 0 {
			return nil, errNoDBInfo
		}
		return r, nil
	}
	return nil, errNoDBInfo
}

var errShortTLV = errors.New("alsa: truncated tlv")

// tlvPayload returns the words following the type and length header.
func tlvPayload(tlv []uint32) ([]uint32, error) {
	if len(tlv) < 2 {
		return nil, errShortTLV
	}
	n := tlvWords(tlv[1])
	if len(tlv) < 2+n {
		return nil, errShortTLV
	}
	return tlv[2 : 2+n], nil
}

// tlvWords converts a TLV byte length to whole words.
func tlvWords(length uint32) int { return int((length + 3) / 4) }

// dbScale is a fixed step per raw unit.
type dbScale struct {
	min, step int64
	mute      bool
}

func (s dbScale) bounds(lo, hi int64) (int64, int64) { return s.min, s.min + s.step*(hi-lo) }
func (s dbScale) toDB(raw, lo, _ int64) int64        { return s.min + s.step*(raw-lo) }

// dbMinMax interpolates linearly in dB between the range ends.
type dbMinMax struct {
	min, max int64
	mute     bool
}

func (m dbMinMax) bounds(_, _ int64) (int64, int64) { return m.min, m.max }

func (m dbMinMax) toDB(raw, lo, hi int64) int64 {
	if hi <= lo {
		return m.min
	}
	return m.min + (m.max-m.min)*(raw-lo)/(hi-lo)
}

// dbLinear interpolates linearly in amplitude.
type dbLinear struct {
	min, max int64
}

func (l dbLinear) bounds(_, _ int64) (int64, int64) { return l.min, l.max }

func (l dbLinear) toDB(raw, lo, hi int64) int64 {
	if raw <= lo {
		return l.min
	}
	if raw >= hi {
		return l.max
	}
	frac := float64(raw-lo) / float64(hi-lo)
	if l.min <= dbGainMute {
		return int64(2000.0*math.Log10(frac)) + l.max
	}
	gmin := math.Pow(10, float64(l.min)/2000.0)
	gmax := math.Pow(10, float64(l.max)/2000.0)
	return int64(2000.0 * math.Log10((gmax-gmin)*frac+gmin))
}

type dbRangeItem struct {
	lo, hi int64
	m      dbMapping
}

// dbRanges splits the raw range into sub-ranges with their own mapping.
// Sub-ranges carry their own raw bounds, so the element's are ignored.
type dbRanges []dbRangeItem

func (r dbRanges) bounds(_, _ int64) (int64, int64) {
	min, max := r[0].m.bounds(r[0].lo, r[0].hi)
	for _, it := range r[1:] {
		lo, hi := it.m.bounds(it.lo, it.hi)
		if lo < min {
			min = lo
		}
		if hi > max {
			max = hi
		}
	}
	return min, max
}

func (r dbRanges) toDB(raw, _, _ int64) int64 {
	for _, it := range r {
		if raw >= it.lo && raw <= it.hi {
			return it.m.toDB(raw, it.lo, it.hi)
		}
	}
	if raw < r[0].lo {
		return r[0].m.toDB(r[0].lo, r[0].lo, r[0].hi)
	}
	last := r[len(r)-1]
	return last.m.toDB(last.hi, last.lo, last.hi)
}

// rawForDB finds the raw value in [lo, hi] whose dB value is nearest to
// target. On a tie the quieter value wins.
func rawForDB(m dbMapping, target, lo, hi int64) int64 {
	a, b := lo, hi
	for a < b {
		mid := a + (b-a)/2
		if m.toDB(mid, lo, hi) < target {
			a = mid + 1
		} else {
			b = mid
		}
	}
	if a > lo && target-m.toDB(a-1, lo, hi) <= m.toDB(a, lo, hi)-target {
		return a - 1
	}
	return a
}
