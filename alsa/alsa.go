// Package alsa drives the playback volume controls of Linux sound cards
// through the kernel's control interface (/dev/snd/controlC*), without
// linking alsa-lib.
//
// Kernel controls are grouped the way alsa-lib's simple mixer groups them:
// "Master Playback Volume" and "Master Capture Volume" become one element
// named "Master". Only integer controls are considered.
package alsa

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedPlatform is returned by Devices on systems without ALSA.
var ErrUnsupportedPlatform = errors.New("alsa: not supported on this platform")

var (
	ErrNoDecibel = errors.New("alsa: element has no decibel information")
	ErrNoLinear  = errors.New("alsa: element has no playback volume")
	ErrNoChannel = errors.New("alsa: no such channel")
)

// maxCards matches the kernel's SNDRV_CARDS.
const maxCards = 32

type controlKind int

const (
	kindPlayback controlKind = iota
	kindCapture
)

var nameSuffixes = []struct {
	suffix string
	kind   controlKind
}{
	{" Playback Volume", kindPlayback},
	{" Capture Volume", kindCapture},
	{" Volume", kindPlayback},
}

// splitControlName maps a kernel control name to its simple element name and
// direction. A bare "Capture Volume" is the capture side of "Capture".
// Controls that are not volumes are rejected.
func splitControlName(name string) (string, controlKind, bool) {
	for _, s := range nameSuffixes {
		if base, ok := strings.CutSuffix(name, s.suffix); ok && base != "" {
			if base == "Capture" {
				return base, kindCapture, true
			}
			return base, s.kind, true
		}
	}
	return "", 0, false
}

// elementName qualifies repeated controls ("Headphone,1") the way amixer
// prints them.
func elementName(base string, index uint32) string {
	if index == 0 {
		return base
	}
	return fmt.Sprintf("%s,%d", base, index)
}

// cString returns the bytes of b up to the first NUL.
func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
