package mixer_test

import (
	"errors"
	"testing"

	"volmixer/mixer"
	"volmixer/simhw"
)

func dbElement(name string, channels int) simhw.ElementSpec {
	return simhw.ElementSpec{
		Name:     name,
		Channels: channels,
		Decibel:  &simhw.Range{Min: -6000, Max: 0},
	}
}

func channelNames(r *mixer.Registry) []string {
	var out []string
	for _, c := range r.Channels() {
		out = append(out, c.Name())
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNewRegistry_DiscoveryOrder(t *testing.T) {
	hw := simhw.New(simhw.Spec{Cards: []simhw.CardSpec{
		{Index: 2, Name: "usb", Elements: []simhw.ElementSpec{dbElement("Headphone", 2)}},
		{Index: 0, Name: "hda", Elements: []simhw.ElementSpec{
			dbElement("Master", 2),
			dbElement("PCM", 2),
		}},
	}})

	r := mixer.NewRegistry(hw)
	defer r.Close()

	want := []string{"Master", "PCM", "Headphone"}
	if got := channelNames(r); !equalStrings(got, want) {
		t.Fatalf("channels = %v, want %v", got, want)
	}
	if got := r.Channels()[2].Card(); got != 2 {
		t.Errorf("Headphone card = %d, want 2", got)
	}
}

func TestNewRegistry_SkipsInactiveAndCaptureOnly(t *testing.T) {
	inactive := dbElement("Front", 2)
	inactive.Inactive = true
	capture := dbElement("Capture", 2)
	capture.NoPlayback = true

	hw := simhw.New(simhw.Spec{Cards: []simhw.CardSpec{{
		Index:    0,
		Name:     "hda",
		Elements: []simhw.ElementSpec{dbElement("Master", 2), inactive, capture, dbElement("Speaker", 1)},
	}}})

	r := mixer.NewRegistry(hw)
	defer r.Close()

	want := []string{"Master", "Speaker"}
	if got := channelNames(r); !equalStrings(got, want) {
		t.Fatalf("channels = %v, want %v", got, want)
	}
}

func TestNewRegistry_FailedCardIsSkipped(t *testing.T) {
	hw := simhw.New(simhw.Spec{Cards: []simhw.CardSpec{
		{Index: 0, Name: "broken", FailLoad: true, Elements: []simhw.ElementSpec{dbElement("Master", 2)}},
		{Index: 1, Name: "usb", Elements: []simhw.ElementSpec{dbElement("Headphone", 2)}},
	}})

	r := mixer.NewRegistry(hw)

	want := []string{"Headphone"}
	if got := channelNames(r); !equalStrings(got, want) {
		t.Fatalf("channels = %v, want %v", got, want)
	}
	if got := hw.Card(0).Released(); got != 1 {
		t.Errorf("broken card released %d times, want 1", got)
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if got := hw.Card(0).Released(); got != 1 {
		t.Errorf("broken card released again on Close, count %d", got)
	}
}

func TestNewRegistry_EmptyResults(t *testing.T) {
	failing := simhw.New(simhw.Spec{Cards: []simhw.CardSpec{
		{Index: 0, Name: "hda", Elements: []simhw.ElementSpec{dbElement("Master", 2)}},
	}})
	failing.EnumerateErr = errors.New("no sound devices")

	tests := []struct {
		name string
		hw   mixer.Hardware
	}{
		{name: "nil hardware", hw: nil},
		{name: "no cards", hw: simhw.New(simhw.Spec{})},
		{name: "enumeration error", hw: failing},
		{name: "all cards fail", hw: simhw.New(simhw.Spec{Cards: []simhw.CardSpec{
			{Index: 0, Name: "a", FailLoad: true},
			{Index: 1, Name: "b", FailLoad: true},
		}})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := mixer.NewRegistry(tt.hw)
			if n := len(r.Channels()); n != 0 {
				t.Errorf("expected no channels, got %d", n)
			}
			if err := r.Close(); err != nil {
				t.Errorf("Close() = %v", err)
			}
		})
	}
}

func TestRegistry_CloseReleasesOnce(t *testing.T) {
	hw := simhw.New(simhw.Spec{Cards: []simhw.CardSpec{
		{Index: 0, Name: "hda", Elements: []simhw.ElementSpec{dbElement("Master", 2)}},
		{Index: 1, Name: "usb", Elements: []simhw.ElementSpec{dbElement("PCM", 2)}},
	}})

	r := mixer.NewRegistry(hw)
	if err := r.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second Close() = %v", err)
	}

	for _, idx := range []int{0, 1} {
		if got := hw.Card(idx).Released(); got != 1 {
			t.Errorf("card %d released %d times, want 1", idx, got)
		}
	}
	if n := len(r.Channels()); n != 0 {
		t.Errorf("expected no channels after Close, got %d", n)
	}
}

func TestRegistry_Lookup(t *testing.T) {
	hw := simhw.New(simhw.Spec{Cards: []simhw.CardSpec{
		{Index: 0, Name: "hda", Elements: []simhw.ElementSpec{dbElement("Master", 2), dbElement("PCM", 2)}},
		{Index: 1, Name: "usb", Elements: []simhw.ElementSpec{dbElement("PCM", 2)}},
	}})
	r := mixer.NewRegistry(hw)
	defer r.Close()

	c, err := r.Lookup("PCM")
	if err != nil {
		t.Fatalf("Lookup(PCM) = %v", err)
	}
	if c.Card() != 0 {
		t.Errorf("Lookup(PCM) found card %d, want first card 0", c.Card())
	}

	c, err = r.LookupOnCard(1, "PCM")
	if err != nil {
		t.Fatalf("LookupOnCard(1, PCM) = %v", err)
	}
	if c.Card() != 1 {
		t.Errorf("LookupOnCard(1, PCM) found card %d", c.Card())
	}

	if _, err := r.Lookup("Surround"); !errors.Is(err, mixer.ErrChannelNotFound) {
		t.Errorf("Lookup(Surround) error = %v, want ErrChannelNotFound", err)
	}
	if _, err := r.LookupOnCard(1, "Master"); !errors.Is(err, mixer.ErrChannelNotFound) {
		t.Errorf("LookupOnCard(1, Master) error = %v, want ErrChannelNotFound", err)
	}
}

func TestRegistry_ChannelsReturnsCopy(t *testing.T) {
	hw := simhw.New(simhw.Spec{Cards: []simhw.CardSpec{
		{Index: 0, Name: "hda", Elements: []simhw.ElementSpec{dbElement("Master", 2), dbElement("PCM", 2)}},
	}})
	r := mixer.NewRegistry(hw)
	defer r.Close()

	chs := r.Channels()
	chs[0] = nil

	if r.Channels()[0] == nil {
		t.Fatalf("mutating the returned slice changed the registry")
	}
}

func TestRegistry_ChannelsDriveHardware(t *testing.T) {
	hw := simhw.New(simhw.Spec{Cards: []simhw.CardSpec{
		{Index: 0, Name: "hda", Elements: []simhw.ElementSpec{dbElement("Master", 2)}},
	}})
	r := mixer.NewRegistry(hw)
	defer r.Close()

	c, err := r.Lookup("Master")
	if err != nil {
		t.Fatalf("Lookup(Master) = %v", err)
	}
	c.SetVolume(25)

	e := hw.Card(0).Element("Master")
	if e.Value(0) != -4500 || e.Value(1) != -4500 {
		t.Errorf("hardware values = %d/%d, want -4500/-4500", e.Value(0), e.Value(1))
	}
}
