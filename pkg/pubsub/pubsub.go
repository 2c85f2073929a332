// Package pubsub streams watch-session events to HTTP subscribers.
package pubsub

import (
	"context"
	"encoding/json"
)

// Topics published by a watch session
const (
	TopicStatus = "diff_status"
	TopicResult = "diff_result"
)

// Status states
const (
	StateLoading = "loading"
	StateDiffing = "diffing"
	StateReady   = "ready"
	StateFailed  = "failed"
)

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`   // Subscription topic (e.g., "diff_status", "diff_result")
	Type    string          `json:"type"`    // Event type (e.g., "loading", "ready")
	Data    json.RawMessage `json:"data"`    // Event payload
	Version int             `json:"version"` // Version number for ordering
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	// Topic returns the subscription topic
	Topic() string

	// Events returns a channel for receiving events. It is closed when the
	// subscription or the publisher is closed.
	Events() <-chan Event

	// Close closes the subscription
	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic
	// Context cancellation will close the subscription
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends an event to all subscribers of a topic
	Publish(topic string, eventType string, data any) error

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// DiffStatus reports where a watch session is
type DiffStatus struct {
	State   string   `json:"state"`             // loading, diffing, ready, failed
	Message string   `json:"message"`           // Human-readable status message
	RunID   string   `json:"runId,omitempty"`   // Run that produced the current result
	Changed []string `json:"changed,omitempty"` // Files that triggered the run
}
