//go:build linux

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// epollWaitMS bounds each epoll_wait so cancellation is noticed.
const epollWaitMS = 250

// startInputReaders multiplexes all devices on one epoll goroutine.
func startInputReaders(ctx context.Context, files []*os.File, events chan<- inputEvent, readErr chan<- error) {
	go func() {
		if err := pollInputDevices(ctx, files, events); err != nil {
			readErr <- err
		}
	}()
}

// pollInputDevices reads from every device until ctx is done. A device that
// hangs up is dropped; the error is only reported once none are left.
func pollInputDevices(ctx context.Context, files []*os.File, events chan<- inputEvent) error {
	if len(files) == 0 {
		return errors.New("no input devices")
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return fmt.Errorf("epoll_create1: %w", err)
	}
	defer unix.Close(epfd)

	byFD := make(map[int32]*os.File, len(files))
	for _, f := range files {
		fd := int32(f.Fd())
		ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: fd}
		if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, int(fd), &ev); err != nil {
			return fmt.Errorf("watch %s: %w", f.Name(), err)
		}
		byFD[fd] = f
	}

	ready := make([]unix.EpollEvent, 8)
	buf := make([]byte, inputEventSize)

	for ctx.Err() == nil {
		n, err := unix.EpollWait(epfd, ready, epollWaitMS)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return fmt.Errorf("epoll_wait: %w", err)
		}

		for _, r := range ready[:n] {
			f := byFD[r.Fd]
			if f == nil {
				continue
			}

			var readErr error
			if r.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
				readErr = fmt.Errorf("%s: device hung up", f.Name())
			} else if m, err := f.Read(buf); err != nil {
				readErr = fmt.Errorf("read %s: %w", f.Name(), err)
			} else if m < inputEventSize {
				continue
			}

			if readErr != nil {
				_ = unix.EpollCtl(epfd, unix.EPOLL_CTL_DEL, int(r.Fd), nil)
				delete(byFD, r.Fd)
				if len(byFD) == 0 {
					return readErr
				}
				continue
			}

			select {
			case events <- decodeInputEvent(buf):
			case <-ctx.Done():
				return nil
			}
		}
	}
	return nil
}
