//go:build !linux

package main

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// watchFile polls path's size and modification time and calls onChange
// when either moves.
func watchFile(ctx context.Context, path string, poll time.Duration, onChange func(), logger *slog.Logger) error {
	if poll <= 0 {
		poll = time.Second
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	stat := func() (time.Time, int64, bool) {
		fi, err := os.Stat(path)
		if err != nil {
			return time.Time{}, 0, false
		}
		return fi.ModTime(), fi.Size(), true
	}

	lastMod, lastSize, lastOK := stat()
	logger.Debug("polling settings file", "path", path, "interval", poll)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			mod, size, ok := stat()
			if ok != lastOK || !mod.Equal(lastMod) || size != lastSize {
				lastMod, lastSize, lastOK = mod, size, ok
				onChange()
			}
		}
	}
}
