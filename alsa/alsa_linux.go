//go:build linux && (amd64 || arm64 || riscv64 || loong64 || s390x)

package alsa

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"volmixer/mixer"
)

// DefaultDir is where the kernel exposes sound devices.
const DefaultDir = "/dev/snd"

// Hardware enumerates the control devices found in Dir.
type Hardware struct {
	Dir string
}

// New returns hardware rooted at DefaultDir.
func New() *Hardware {
	return &Hardware{Dir: DefaultDir}
}

// Devices returns one Device per controlC<N> node, in card order. Nothing is
// opened until Load.
func (h *Hardware) Devices() ([]mixer.Device, error) {
	dir := h.Dir
	if dir == "" {
		dir = DefaultDir
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("alsa: %w", err)
	}

	var out []mixer.Device
	for i := 0; i < maxCards; i++ {
		path := filepath.Join(dir, fmt.Sprintf("controlC%d", i))
		if _, err := os.Stat(path); err != nil {
			continue
		}
		out = append(out, &Device{index: i, path: path, fd: -1})
	}
	return out, nil
}

// Device is one card's control interface.
type Device struct {
	index int
	path  string

	mu       sync.Mutex
	fd       int
	name     string
	elements []*Element
}

func (d *Device) Index() int { return d.index }

// Name is the card's short name, known after Load.
func (d *Device) Name() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.name
}

// Load opens the control device and reads every volume control.
func (d *Device) Load() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.fd >= 0 {
		return nil
	}
	fd, err := unix.Open(d.path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", d.path, err)
	}
	d.fd = fd

	var version int32
	if err := ioctl(fd, ioctlPVersion, unsafe.Pointer(&version)); err != nil {
		return fmt.Errorf("card %d: protocol version: %w", d.index, err)
	}
	if major := version >> 16; major != ctlVersionMajor {
		return fmt.Errorf("card %d: unsupported control protocol %d.%d.%d",
			d.index, major, (version>>8)&0xff, version&0xff)
	}

	var info ctlCardInfo
	if err := ioctl(fd, ioctlCardInfo, unsafe.Pointer(&info)); err != nil {
		return fmt.Errorf("card %d: card info: %w", d.index, err)
	}
	d.name = cString(info.ID[:])

	ids, err := d.listElements()
	if err != nil {
		return fmt.Errorf("card %d: %w", d.index, err)
	}
	elements, err := d.groupElements(ids)
	if err != nil {
		return fmt.Errorf("card %d: %w", d.index, err)
	}
	d.elements = elements
	return nil
}

func (d *Device) listElements() ([]ctlElemID, error) {
	var list ctlElemList
	if err := ioctl(d.fd, ioctlElemList, unsafe.Pointer(&list)); err != nil {
		return nil, fmt.Errorf("count elements: %w", err)
	}
	if list.Count == 0 {
		return nil, nil
	}

	ids := make([]ctlElemID, list.Count)
	list.Space = list.Count
	list.Pids = unsafe.Pointer(&ids[0])
	err := ioctl(d.fd, ioctlElemList, unsafe.Pointer(&list))
	runtime.KeepAlive(ids)
	if err != nil {
		return nil, fmt.Errorf("list elements: %w", err)
	}
	return ids[:list.Used], nil
}

// groupElements folds playback and capture volume controls into simple
// elements, keeping the order in which the kernel listed them.
func (d *Device) groupElements(ids []ctlElemID) ([]*Element, error) {
	type key struct {
		base  string
		index uint32
	}
	byKey := make(map[key]*Element)
	var out []*Element

	for _, id := range ids {
		if id.Iface != ctlElemIfaceMixer {
			continue
		}
		base, kind, ok := splitControlName(cString(id.Name[:]))
		if !ok {
			continue
		}

		info := ctlElemInfo{ID: ctlElemID{Numid: id.Numid}}
		if err := ioctl(d.fd, ioctlElemInfo, unsafe.Pointer(&info)); err != nil {
			return nil, fmt.Errorf("element %q info: %w", cString(id.Name[:]), err)
		}
		if info.Type != ctlElemTypeInt || info.Count == 0 {
			continue
		}

		k := key{base: base, index: id.Index}
		e, seen := byKey[k]
		if !seen {
			e = &Element{dev: d, name: elementName(base, id.Index)}
			byKey[k] = e
			out = append(out, e)
		}
		c := &control{
			id:       info.ID,
			count:    int(info.Count),
			min:      int64(info.Value[0]),
			max:      int64(info.Value[1]),
			inactive: info.Access&ctlElemAccessInactive != 0,
		}
		if info.Access&ctlElemAccessTLVRead != 0 {
			c.db = d.readDB(info.ID.Numid)
		}
		switch kind {
		case kindPlayback:
			if e.playback == nil {
				e.playback = c
			}
		case kindCapture:
			if e.capture == nil {
				e.capture = c
			}
		}
	}
	return out, nil
}

// readDB returns nil when the control has no usable dB information.
func (d *Device) readDB(numid uint32) dbMapping {
	buf := make([]uint32, 2+tlvBufferWords)
	buf[0] = numid
	buf[1] = tlvBufferWords * 4
	if err := ioctl(d.fd, ioctlTLVRead, unsafe.Pointer(&buf[0])); err != nil {
		return nil
	}
	m, err := parseDB(buf[2:])
	if err != nil {
		return nil
	}
	return m
}

func (d *Device) Elements() []mixer.Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]mixer.Element, 0, len(d.elements))
	for _, e := range d.elements {
		out = append(out, e)
	}
	return out
}

// Release closes the control device. It is safe to call repeatedly.
func (d *Device) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.elements = nil
	if d.fd < 0 {
		return nil
	}
	err := unix.Close(d.fd)
	d.fd = -1
	if err != nil {
		return fmt.Errorf("close %s: %w", d.path, err)
	}
	return nil
}

func (d *Device) readValue(id ctlElemID) (*ctlElemValue, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fd < 0 {
		return nil, os.ErrClosed
	}
	v := &ctlElemValue{ID: id}
	if err := ioctl(d.fd, ioctlElemRead, unsafe.Pointer(v)); err != nil {
		return nil, err
	}
	return v, nil
}

func (d *Device) writeValue(v *ctlElemValue) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fd < 0 {
		return os.ErrClosed
	}
	return ioctl(d.fd, ioctlElemWrite, unsafe.Pointer(v))
}

// control is one kernel integer control.
type control struct {
	id       ctlElemID
	count    int
	min, max int64
	inactive bool
	db       dbMapping
}

func (c *control) slot(ch mixer.Channel) (int, bool) {
	switch ch {
	case mixer.ChannelMono, mixer.ChannelFrontLeft:
		return 0, true
	case mixer.ChannelFrontRight:
		return 1, c.count >= 2
	}
	return 0, false
}

func (c *control) clampRaw(v int64) int64 {
	return min(max(v, c.min), c.max)
}

// Element is a simple mixer element: a playback and/or capture volume
// control sharing a base name.
type Element struct {
	dev      *Device
	name     string
	playback *control
	capture  *control
}

func (e *Element) Name() string { return e.name }

func (e *Element) Active() bool {
	if e.playback != nil {
		return !e.playback.inactive
	}
	return e.capture != nil && !e.capture.inactive
}

func (e *Element) HasPlaybackVolume() bool { return e.playback != nil }

func (e *Element) HasPlaybackChannel(ch mixer.Channel) bool {
	if e.playback == nil {
		return false
	}
	_, ok := e.playback.slot(ch)
	return ok
}

func (e *Element) DecibelRange() (int64, int64, error) {
	if e.playback == nil || e.playback.db == nil {
		return 0, 0, ErrNoDecibel
	}
	lo, hi := e.playback.db.bounds(e.playback.min, e.playback.max)
	return lo, hi, nil
}

func (e *Element) LinearRange() (int64, int64, error) {
	if e.playback == nil {
		return 0, 0, ErrNoLinear
	}
	return e.playback.min, e.playback.max, nil
}

func (e *Element) Linear(ch mixer.Channel) (int64, error) {
	c, i, err := e.playbackSlot(ch)
	if err != nil {
		return 0, err
	}
	v, err := e.dev.readValue(c.id)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", e.name, err)
	}
	return int64(v.Value[i]), nil
}

func (e *Element) SetLinear(ch mixer.Channel, raw int64) error {
	c, i, err := e.playbackSlot(ch)
	if err != nil {
		return err
	}
	// Read first so the other channels keep their values.
	v, err := e.dev.readValue(c.id)
	if err != nil {
		return fmt.Errorf("read %s: %w", e.name, err)
	}
	v.Value[i] = clong(c.clampRaw(raw))
	if err := e.dev.writeValue(v); err != nil {
		return fmt.Errorf("write %s: %w", e.name, err)
	}
	return nil
}

func (e *Element) Decibel(ch mixer.Channel) (int64, error) {
	if e.playback == nil || e.playback.db == nil {
		return 0, ErrNoDecibel
	}
	raw, err := e.Linear(ch)
	if err != nil {
		return 0, err
	}
	c := e.playback
	return c.db.toDB(c.clampRaw(raw), c.min, c.max), nil
}

// SetDecibel writes the raw value whose dB level is nearest to db.
func (e *Element) SetDecibel(ch mixer.Channel, db int64) error {
	if e.playback == nil || e.playback.db == nil {
		return ErrNoDecibel
	}
	c := e.playback
	return e.SetLinear(ch, rawForDB(c.db, db, c.min, c.max))
}

func (e *Element) playbackSlot(ch mixer.Channel) (*control, int, error) {
	if e.playback == nil {
		return nil, 0, ErrNoLinear
	}
	i, ok := e.playback.slot(ch)
	if !ok {
		return nil, 0, fmt.Errorf("%s %v: %w", e.name, ch, ErrNoChannel)
	}
	return e.playback, i, nil
}

var _ mixer.Hardware = (*Hardware)(nil)
