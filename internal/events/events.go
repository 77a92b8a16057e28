// Package events publishes domain events to Redis Streams.
package events

import "time"

// Event is the envelope stored under the "event" field of each stream entry.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}
