//go:build linux

package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

const inotifyMask = unix.IN_CLOSE_WRITE | unix.IN_MOVED_TO | unix.IN_CREATE | unix.IN_DELETE

// watchFile calls onChange whenever path is written, replaced or removed.
// The parent directory is watched so editors that rename over the file are
// seen too. poll bounds how long cancellation can go unnoticed.
func watchFile(ctx context.Context, path string, poll time.Duration, onChange func(), logger *slog.Logger) error {
	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return fmt.Errorf("inotify_init1: %w", err)
	}
	defer unix.Close(fd)

	dir, base := filepath.Dir(path), filepath.Base(path)
	if _, err := unix.InotifyAddWatch(fd, dir, inotifyMask); err != nil {
		return fmt.Errorf("inotify_add_watch %s: %w", dir, err)
	}
	logger.Debug("watching settings file", "path", path)

	pollMS := int(poll / time.Millisecond)
	if pollMS <= 0 {
		pollMS = 1000
	}

	buf := make([]byte, 64*(unix.SizeofInotifyEvent+unix.NAME_MAX+1))
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}

	for {
		if ctx.Err() != nil {
			return nil
		}

		n, err := unix.Poll(fds, pollMS)
		if err != nil {
			if err == syscall.EINTR {
				continue
			}
			return fmt.Errorf("poll inotify: %w", err)
		}
		if n == 0 {
			continue
		}

		r, err := unix.Read(fd, buf)
		if err != nil {
			if err == unix.EAGAIN || err == syscall.EINTR {
				continue
			}
			return fmt.Errorf("read inotify: %w", err)
		}

		if touchesFile(buf[:r], base) {
			onChange()
		}
	}
}

// touchesFile reports whether any event in buf names base.
func touchesFile(buf []byte, base string) bool {
	for off := 0; off+unix.SizeofInotifyEvent <= len(buf); {
		nameLen := int(binary.NativeEndian.Uint32(buf[off+12:]))
		start := off + unix.SizeofInotifyEvent
		end := start + nameLen
		if end > len(buf) {
			return false
		}
		name := string(bytes.TrimRight(buf[start:end], "\x00"))
		if name == base {
			return true
		}
		off = end
	}
	return false
}
