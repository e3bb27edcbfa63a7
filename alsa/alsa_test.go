package alsa

import "testing"

func TestSplitControlName(t *testing.T) {
	tests := []struct {
		in   string
		base string
		kind controlKind
		ok   bool
	}{
		{"Master Playback Volume", "Master", kindPlayback, true},
		{"Headphone Playback Volume", "Headphone", kindPlayback, true},
		{"Capture Volume", "Capture", kindCapture, true},
		{"Mic Capture Volume", "Mic", kindCapture, true},
		{"Digital Volume", "Digital", kindPlayback, true},
		{"Master Playback Switch", "", 0, false},
		{"Auto-Mute Mode", "", 0, false},
		{" Volume", "", 0, false},
	}
	for _, tt := range tests {
		base, kind, ok := splitControlName(tt.in)
		if ok != tt.ok || base != tt.base || (ok && kind != tt.kind) {
			t.Errorf("splitControlName(%q) = %q, %d, %v; want %q, %d, %v",
				tt.in, base, kind, ok, tt.base, tt.kind, tt.ok)
		}
	}
}

func TestElementName(t *testing.T) {
	if got := elementName("Headphone", 0); got != "Headphone" {
		t.Errorf("index 0 gave %q", got)
	}
	if got := elementName("Headphone", 1); got != "Headphone,1" {
		t.Errorf("index 1 gave %q", got)
	}
}

func TestCString(t *testing.T) {
	var b [16]byte
	copy(b[:], "PCH")
	if got := cString(b[:]); got != "PCH" {
		t.Errorf("cString() = %q", got)
	}
	if got := cString([]byte("full")); got != "full" {
		t.Errorf("unterminated cString() = %q", got)
	}
}
