// Package broker moves forwarded records through a Kafka-compatible log as an
// alternative to posting them to the control plane directly.
package broker

import (
	"context"
	"errors"
)

// ContentTypeJSON marks a message value as one JSON-encoded LogRecord.
const ContentTypeJSON = "application/json"

var errClosed = errors.New("broker is closed")

// Broker publishes records to topics and hands them to consumer groups.
type Broker interface {
	// Publish appends value to topic. Messages with the same key keep their
	// relative order.
	Publish(ctx context.Context, topic string, key string, value []byte) error

	// Subscribe consumes topic as a member of groupID.
	Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error)

	Close() error
}

// Message is one consumed record.
type Message struct {
	Topic       string
	Key         string
	Value       []byte
	ContentType string
	Offset      int64
	Partition   int32
	Timestamp   int64
}
