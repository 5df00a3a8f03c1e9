package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// inputEvent mirrors struct input_event on 64-bit Linux:
// a timeval followed by type, code and value.
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

const inputEventSize = 24

func decodeInputEvent(b []byte) inputEvent {
	le := binary.LittleEndian
	return inputEvent{
		Sec:   int64(le.Uint64(b[0:8])),
		Usec:  int64(le.Uint64(b[8:16])),
		Type:  le.Uint16(b[16:18]),
		Code:  le.Uint16(b[18:20]),
		Value: int32(le.Uint32(b[20:24])),
	}
}

// readInputEvents blocks reading whole events from f until a read fails.
func readInputEvents(f *os.File, events chan<- inputEvent, readErr chan<- error) {
	buf := make([]byte, inputEventSize)
	for {
		if _, err := io.ReadFull(f, buf); err != nil {
			readErr <- fmt.Errorf("read %s: %w", f.Name(), err)
			return
		}
		events <- decodeInputEvent(buf)
	}
}

// translateInputEvent maps a hardware key or switch to a controller event.
func translateInputEvent(ev inputEvent) (Event, bool) {
	switch ev.Type {
	case EV_KEY:
		if ev.Code == KEY_MENU && ev.Value == evValuePress {
			return MenuKeyPressed{}, true
		}

	case EV_SW:
		if ev.Code == SW_LID {
			// The lid switch reads 0 while the keyboard is slid out.
			return KeyboardChanged{Open: ev.Value == 0}, true
		}
	}
	return nil, false
}

// runInputReaders reads the configured devices until ctx is done or the
// readers give up, posting translated events to out.
func runInputReaders(ctx context.Context, devices []string, out chan<- Event, logger *slog.Logger) error {
	if len(devices) == 0 {
		return nil
	}

	files := make([]*os.File, 0, len(devices))
	defer func() {
		for _, f := range files {
			_ = f.Close()
		}
	}()
	for _, dev := range devices {
		f, err := os.Open(dev)
		if err != nil {
			return fmt.Errorf("open input device %s: %w", dev, err)
		}
		files = append(files, f)
	}

	raw := make(chan inputEvent, 64)
	readErr := make(chan error, len(files))
	startInputReaders(ctx, files, raw, readErr)

	logger.Info("input devices open", "devices", devices)

	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-readErr:
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("input reader stopped: %w", err)

		case ev := <-raw:
			translated, ok := translateInputEvent(ev)
			if !ok {
				continue
			}
			logger.Debug("input event", "type", ev.Type, "code", ev.Code, "value", ev.Value)
			select {
			case out <- translated:
			case <-ctx.Done():
				return nil
			}
		}
	}
}
