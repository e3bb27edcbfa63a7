//go:build linux && (amd64 || arm64 || riscv64 || loong64 || s390x)

package alsa

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// On 64-bit Linux a C long is as wide as a Go int.
type clong = int

// Mirrors of <sound/asound.h> for 64-bit kernels using the generic ioctl
// number encoding.

type ctlCardInfo struct {
	Card       int32
	_          int32
	ID         [16]byte
	Driver     [16]byte
	Name       [32]byte
	LongName   [80]byte
	_          [16]byte
	MixerName  [80]byte
	Components [128]byte
}

type ctlElemID struct {
	Numid     uint32
	Iface     int32
	Device    uint32
	Subdevice uint32
	Name      [44]byte
	Index     uint32
}

type ctlElemList struct {
	Offset uint32
	Space  uint32
	Used   uint32
	Count  uint32
	Pids   unsafe.Pointer
	_      [50]byte
}

type ctlElemInfo struct {
	ID     ctlElemID
	Type   int32
	Access uint32
	Count  uint32
	Owner  int32
	// Union; for integer controls the first three words are min, max, step.
	Value [128 / unsafe.Sizeof(clong(0))]clong
	_     [64]byte
}

type ctlElemValue struct {
	ID       ctlElemID
	Indirect uint32
	Value    [128]clong
	_        [128]byte
}

const (
	ctlElemIfaceMixer = 2
	ctlElemTypeInt    = 1

	ctlElemAccessTLVRead  = 1 << 4
	ctlElemAccessInactive = 1 << 8

	// ctlVersionMajor is the major of SNDRV_CTL_VERSION the structs above
	// follow.
	ctlVersionMajor = 2

	tlvBufferWords = 1024
)

const (
	iocWrite = 1
	iocRead  = 2
)

func ioc(dir, nr, size uintptr) uint {
	return uint(dir<<30 | size<<16 | 'U'<<8 | nr)
}

var (
	ioctlPVersion  = ioc(iocRead, 0x00, unsafe.Sizeof(int32(0)))
	ioctlCardInfo  = ioc(iocRead, 0x01, unsafe.Sizeof(ctlCardInfo{}))
	ioctlElemList  = ioc(iocRead|iocWrite, 0x10, unsafe.Sizeof(ctlElemList{}))
	ioctlElemInfo  = ioc(iocRead|iocWrite, 0x11, unsafe.Sizeof(ctlElemInfo{}))
	ioctlElemRead  = ioc(iocRead|iocWrite, 0x12, unsafe.Sizeof(ctlElemValue{}))
	ioctlElemWrite = ioc(iocRead|iocWrite, 0x13, unsafe.Sizeof(ctlElemValue{}))
	ioctlTLVRead   = ioc(iocRead|iocWrite, 0x1a, 2*unsafe.Sizeof(uint32(0)))
)

func ioctl(fd int, req uint, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}
