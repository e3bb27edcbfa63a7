//go:build linux

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// epollTimeoutMS bounds how long the reader can miss a canceled context.
const epollTimeoutMS = 250

// readInputEvents reads from every device with a single epoll loop and sends
// the decoded events to out. It returns nil when ctx is canceled and an error
// when a device cannot be opened, hangs up or fails to read.
func readInputEvents(ctx context.Context, paths []string, out chan<- inputEvent) error {
	if len(paths) == 0 {
		return errors.New("no input devices provided")
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return fmt.Errorf("epoll_create1: %w", err)
	}
	defer unix.Close(epfd)

	// Keyed by fd for lookup after epoll_wait.
	files := make(map[int32]*os.File, len(paths))
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()

	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return fmt.Errorf("open input device: %w", err)
		}
		fd := int(f.Fd())
		files[int32(fd)] = f

		ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
		if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
			return fmt.Errorf("epoll_ctl_add %s: %w", p, err)
		}
	}

	ready := make([]unix.EpollEvent, len(paths))
	buf := make([]byte, 64*inputEventSize)

	for {
		if ctx.Err() != nil {
			return nil
		}

		n, err := unix.EpollWait(epfd, ready, epollTimeoutMS)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("epoll_wait: %w", err)
		}

		for i := 0; i < n; i++ {
			f := files[ready[i].Fd]

			if ready[i].Events&unix.EPOLLIN == 0 && ready[i].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
				return fmt.Errorf("device error/hangup: %s", f.Name())
			}

			m, err := unix.Read(int(ready[i].Fd), buf)
			if err != nil {
				if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
					continue
				}
				return fmt.Errorf("read from %s: %w", f.Name(), err)
			}
			if m == 0 {
				return fmt.Errorf("device closed: %s", f.Name())
			}

			for _, ev := range decodeInputEvents(buf[:m]) {
				select {
				case out <- ev:
				case <-ctx.Done():
					return nil
				}
			}
		}
	}
}
