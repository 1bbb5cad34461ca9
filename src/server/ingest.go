package server

import (
	"context"
	"fmt"

	"logrero/src/broker"
)

// IngestGroup is the consumer group the server joins on the records topic.
const IngestGroup = "logrero-server"

// Ingest stores records that agents published to topic instead of posting them.
// The message key is the device id. Ingest returns nil when the broker closes
// the subscription and ctx.Err() on cancellation.
func (s *Server) Ingest(ctx context.Context, b broker.Broker, topic string) error {
	msgChan, err := b.Subscribe(ctx, topic, IngestGroup)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	s.logger.Info("[Ingest] Listening for records on '%s' topic...", topic)
	return s.consume(ctx, msgChan)
}

func (s *Server) consume(ctx context.Context, msgChan <-chan broker.Message) error {
	for {
		select {
		case msg, ok := <-msgChan:
			if !ok {
				s.logger.Info("[Ingest] Message channel closed, shutting down")
				return nil
			}
			if err := s.ingestMessage(ctx, msg); err != nil {
				s.logger.Error("[Ingest] Dropping message at offset %d: %v", msg.Offset, err)
			}

		case <-ctx.Done():
			s.logger.Info("[Ingest] Context cancelled, shutting down")
			return ctx.Err()
		}
	}
}

func (s *Server) ingestMessage(ctx context.Context, msg broker.Message) error {
	if msg.Key == "" {
		return fmt.Errorf("message has no device key")
	}
	if msg.ContentType != "" && msg.ContentType != broker.ContentTypeJSON {
		return fmt.Errorf("unsupported content type %q", msg.ContentType)
	}

	record, err := decodeRecord(msg.Value)
	if err != nil {
		return err
	}

	stored, err := s.store.AppendRecord(ctx, msg.Key, record)
	if err != nil {
		return fmt.Errorf("failed to store record: %w", err)
	}
	s.logger.Trace("[Ingest] record %s from %s (priority %s)", stored.ID, msg.Key, record.Priority)
	return nil
}
