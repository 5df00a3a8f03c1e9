package main

import (
	"encoding/json"
	"fmt"
	"time"
)

type launchRequest struct {
	ResolvedAction
	At time.Time `json:"at"`
}

// busDispatcher publishes resolved launches for the device to start.
func busDispatcher(bus messageBus, topics busTopics) Dispatcher {
	return func(a ResolvedAction) error {
		b, err := json.Marshal(launchRequest{ResolvedAction: a, At: time.Now().UTC()})
		if err != nil {
			return fmt.Errorf("encode launch request: %w", err)
		}
		if err := bus.Publish(topics.Launch(), b, false); err != nil {
			return fmt.Errorf("publish launch %s: %w", a.ID, err)
		}
		return nil
	}
}
