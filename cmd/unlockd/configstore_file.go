package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// FileStore is a ConfigStore backed by a YAML settings file. Keys missing
// from the file take their DefaultSnapshot values. Watch reloads the file
// when it changes and notifies subscribers.
type FileStore struct {
	path   string
	poll   time.Duration
	logger *slog.Logger

	mu   sync.RWMutex
	snap ConfigSnapshot
	err  error

	subs subscriberSet[ConfigSnapshot]
}

// NewFileStore loads path once. A missing file is not an error; a
// malformed one is reported by Snapshot until it is fixed.
func NewFileStore(path string, poll time.Duration, logger *slog.Logger) *FileStore {
	fs := &FileStore{
		path:   ExpandPath(path),
		poll:   poll,
		logger: logger,
		snap:   DefaultSnapshot(),
	}
	fs.reload()
	return fs
}

// LoadSnapshotFile parses a settings file.
func LoadSnapshotFile(path string) (ConfigSnapshot, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultSnapshot(), nil
	}
	if err != nil {
		return ConfigSnapshot{}, fmt.Errorf("read settings file: %w", err)
	}
	return decodeSnapshot(b)
}

func decodeSnapshot(b []byte) (ConfigSnapshot, error) {
	snap := DefaultSnapshot()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&snap); err != nil {
		if errors.Is(err, io.EOF) {
			// Empty file.
			return DefaultSnapshot(), nil
		}
		return ConfigSnapshot{}, fmt.Errorf("%w: %w", ErrConfigMalformed, err)
	}
	if len(snap.CustomRingApps) > customSlotCount {
		return ConfigSnapshot{}, fmt.Errorf("%w: lockscreen_custom_ring_app_activities has %d entries (max %d)",
			ErrConfigMalformed, len(snap.CustomRingApps), customSlotCount)
	}
	return snap, nil
}

// Snapshot returns the last successfully loaded values. While the file is
// malformed it also returns the load error.
func (f *FileStore) Snapshot() (ConfigSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.snap.clone(), f.err
}

func (f *FileStore) Subscribe(fn func(ConfigSnapshot)) func() {
	return f.subs.add(fn)
}

// reload re-reads the file and notifies subscribers when the values changed.
func (f *FileStore) reload() {
	snap, err := LoadSnapshotFile(f.path)

	f.mu.Lock()
	if err != nil {
		f.err = err
		f.mu.Unlock()
		f.logger.Warn("settings file not loaded, keeping previous values", "path", f.path, "error", err)
		return
	}
	f.err = nil
	changed := !f.snap.Equal(snap)
	f.snap = snap
	f.mu.Unlock()

	if changed {
		f.logger.Info("settings reloaded", "path", f.path)
		f.subs.notify(snap.clone())
	}
}

// Watch reloads the file on change until ctx is done.
func (f *FileStore) Watch(ctx context.Context) error {
	return watchFile(ctx, f.path, f.poll, f.reload, f.logger)
}
