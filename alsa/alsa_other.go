//go:build !(linux && (amd64 || arm64 || riscv64 || loong64 || s390x))

package alsa

import "volmixer/mixer"

const DefaultDir = "/dev/snd"

// Hardware has no devices on this platform.
type Hardware struct {
	Dir string
}

func New() *Hardware {
	return &Hardware{Dir: DefaultDir}
}

func (h *Hardware) Devices() ([]mixer.Device, error) {
	return nil, ErrUnsupportedPlatform
}
