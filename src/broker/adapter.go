package broker

import (
	"context"
	"fmt"
)

// Sink adapts a Broker to the agent's record sink: each forwarded record is
// published to one topic keyed by the device id, so a device's records stay
// in order on one partition.
type Sink struct {
	broker Broker
	topic  string
	key    string
}

// NewSink creates a Sink publishing to topic with deviceID as the record key.
func NewSink(b Broker, topic, deviceID string) *Sink {
	return &Sink{broker: b, topic: topic, key: deviceID}
}

// Forward publishes one serialized LogRecord.
func (s *Sink) Forward(ctx context.Context, payload []byte) error {
	if err := s.broker.Publish(ctx, s.topic, s.key, payload); err != nil {
		return fmt.Errorf("failed to publish record to %s: %w", s.topic, err)
	}
	return nil
}

// Close closes the underlying broker.
func (s *Sink) Close() error {
	return s.broker.Close()
}
