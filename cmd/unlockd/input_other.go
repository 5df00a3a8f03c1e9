//go:build !linux

package main

import (
	"context"
	"os"
)

// startInputReaders runs one blocking reader per device.
func startInputReaders(_ context.Context, files []*os.File, events chan<- inputEvent, readErr chan<- error) {
	for _, f := range files {
		go readInputEvents(f, events, readErr)
	}
}
