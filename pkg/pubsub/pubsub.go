package pubsub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ritzau/notegraph/pkg/model"
)

// Topics published by the server
const (
	// TopicGraphDelta carries delta batches. Subscribers start from a snapshot, so
	// nothing is replayed.
	TopicGraphDelta = "graph_delta"

	// TopicSyncStatus carries the latest SyncStatus; the last one is replayed.
	TopicSyncStatus = "sync_status"
)

// Event types
const (
	EventSnapshot = "snapshot"
	EventDelta    = "delta"
	EventStatus   = "status"
)

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`   // Subscription topic, e.g. "graph_delta"
	Type    string          `json:"type"`    // Event type, e.g. "snapshot" or "delta"
	Data    json.RawMessage `json:"data"`    // Event payload
	Version int             `json:"version"` // Version number for ordering
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	// Topic returns the subscription topic
	Topic() string

	// Events returns a channel for receiving events.
	// It is closed when the subscription or the publisher closes.
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
	Publish(topic string, eventType string, data interface{}) error

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// DeltaBatch is one dispatched delta
type DeltaBatch struct {
	Operations model.Delta `json:"operations"`
	Upserts    int         `json:"upserts"`
	Deletes    int         `json:"deletes"`
}

// NewDeltaBatch wraps d with its operation counts
func NewDeltaBatch(d model.Delta) DeltaBatch {
	upserts, deletes := d.Counts()
	return DeltaBatch{Operations: d, Upserts: upserts, Deletes: deletes}
}

// Snapshot is the full graph a new delta subscriber starts from
type Snapshot struct {
	Nodes []*model.Node `json:"nodes"`
}

// SyncStatus reports the outcome of the most recent poll
type SyncStatus struct {
	Outcome  string    `json:"outcome"` // suppressed, fetch_failed, unchanged, empty, applied, stopped, superseded
	Nodes    int       `json:"nodes"`
	CanUndo  bool      `json:"can_undo"`
	CanRedo  bool      `json:"can_redo"`
	LastPoll time.Time `json:"last_poll"`
}
