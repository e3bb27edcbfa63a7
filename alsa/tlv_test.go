package alsa

import "testing"

// tlvWord packs a signed centidecibel value the way the kernel stores it.
func tlvWord(v int32) uint32 { return uint32(v) }

func TestParseDB_Scale(t *testing.T) {
	// -51.00 dB, 1.00 dB per step, mute at minimum.
	tlv := []uint32{tlvDBScale, 8, tlvWord(-5100), 100 | tlvScaleMute}

	m, err := parseDB(tlv)
	if err != nil {
		t.Fatalf("parseDB() = %v", err)
	}
	s, ok := m.(dbScale)
	if !ok {
		t.Fatalf("expected dbScale, got %T", m)
	}
	if !s.mute {
		t.Errorf("mute flag not decoded")
	}

	lo, hi := m.bounds(0, 51)
	if lo != -5100 || hi != 0 {
		t.Errorf("bounds = [%d, %d], want [-5100, 0]", lo, hi)
	}
	if got := m.toDB(26, 0, 51); got != -2500 {
		t.Errorf("toDB(26) = %d, want -2500", got)
	}
}

func TestParseDB_MinMax(t *testing.T) {
	for _, typ := range []uint32{tlvDBMinMax, tlvDBMinMaxMute} {
		m, err := parseDB([]uint32{typ, 8, tlvWord(-6000), tlvWord(600)})
		if err != nil {
			t.Fatalf("parseDB(type %d) = %v", typ, err)
		}
		lo, hi := m.bounds(0, 255)
		if lo != -6000 || hi != 600 {
			t.Errorf("type %d bounds = [%d, %d]", typ, lo, hi)
		}
		if got := m.toDB(0, 0, 100); got != -6000 {
			t.Errorf("type %d toDB(min) = %d", typ, got)
		}
		if got := m.toDB(50, 0, 100); got != -2700 {
			t.Errorf("type %d toDB(50) = %d, want -2700", typ, got)
		}
	}
}

func TestParseDB_Linear(t *testing.T) {
	m, err := parseDB([]uint32{tlvDBLinear, 8, tlvWord(dbGainMute), 0})
	if err != nil {
		t.Fatalf("parseDB() = %v", err)
	}
	if got := m.toDB(100, 0, 100); got != 0 {
		t.Errorf("toDB(max) = %d, want 0", got)
	}
	// Half amplitude is about -6.02 dB.
	if got := m.toDB(50, 0, 100); got != -602 {
		t.Errorf("toDB(50) = %d, want -602", got)
	}
}

func TestParseDB_ContainerAndRange(t *testing.T) {
	// Two sub-ranges: raw 0..9 at 3 dB per step from -60 dB, raw 10..40 at
	// 1 dB per step from -30 dB. Wrapped in a container after a non-dB item.
	rng := []uint32{
		tlvDBRange, 48,
		0, 9, tlvDBScale, 8, tlvWord(-6000), 300,
		10, 40, tlvDBScale, 8, tlvWord(-3000), 100,
	}
	tlv := append([]uint32{tlvContainer, uint32(4 * (3 + len(rng))), 99, 4, 0}, rng...)

	m, err := parseDB(tlv)
	if err != nil {
		t.Fatalf("parseDB() = %v", err)
	}
	if _, ok := m.(dbRanges); !ok {
		t.Fatalf("expected dbRanges, got %T", m)
	}

	lo, hi := m.bounds(0, 40)
	if lo != -6000 || hi != 0 {
		t.Errorf("bounds = [%d, %d], want [-6000, 0]", lo, hi)
	}
	tests := []struct {
		raw, db int64
	}{
		{0, -6000},
		{9, -3300},
		{10, -3000},
		{40, 0},
		{55, 0},
	}
	for _, tt := range tests {
		if got := m.toDB(tt.raw, 0, 40); got != tt.db {
			t.Errorf("toDB(%d) = %d, want %d", tt.raw, got, tt.db)
		}
	}
}

func TestParseDB_Errors(t *testing.T) {
	tests := []struct {
		name string
		tlv  []uint32
	}{
		{name: "empty", tlv: nil},
		{name: "truncated", tlv: []uint32{tlvDBScale, 8, 0}},
		{name: "unknown type", tlv: []uint32{42, 0}},
		{name: "container without dB", tlv: []uint32{tlvContainer, 8, 42, 0}},
		{name: "empty range", tlv: []uint32{tlvDBRange, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseDB(tt.tlv); err == nil {
				t.Errorf("expected error")
			}
		})
	}
}

func TestRawForDB_Nearest(t *testing.T) {
	m := dbScale{min: -5100, step: 100}

	tests := []struct {
		target, raw int64
	}{
		{-5100, 0},
		{0, 51},
		{-2549, 26},
		{-2551, 25},
		{-2550, 25}, // tie goes to the quieter value
		{-9000, 0},
		{500, 51},
	}
	for _, tt := range tests {
		if got := rawForDB(m, tt.target, 0, 51); got != tt.raw {
			t.Errorf("rawForDB(%d) = %d, want %d", tt.target, got, tt.raw)
		}
	}
}

func TestRawForDB_RoundTripOnRange(t *testing.T) {
	m := dbRanges{
		{lo: 0, hi: 9, m: dbScale{min: -6000, step: 300}},
		{lo: 10, hi: 40, m: dbScale{min: -3000, step: 100}},
	}
	for raw := int64(0); raw <= 40; raw++ {
		db := m.toDB(raw, 0, 40)
		if got := rawForDB(m, db, 0, 40); got != raw {
			t.Errorf("raw %d -> %d dB -> raw %d", raw, db, got)
		}
	}
}
