package broker

import (
	"context"
	"fmt"
	"sync"

	"github.com/twmb/franz-go/pkg/kgo"

	"logrero/src/logger"
)

const (
	clientID          = "logrero"
	headerContentType = "content-type"
	consumerBuffer    = 100
)

// RedpandaBroker publishes and consumes records on a Kafka-compatible cluster.
// One producer client is shared; every Subscribe opens its own group consumer.
type RedpandaBroker struct {
	producer *kgo.Client
	seeds    []string
	log      logger.Logger

	mu     sync.Mutex
	groups map[string]*kgo.Client
	closed bool
}

// NewRedpandaBroker creates a producer for the seed brokers. opts are appended
// to the producer's options.
func NewRedpandaBroker(seeds []string, log logger.Logger, opts ...kgo.Opt) (*RedpandaBroker, error) {
	if len(seeds) == 0 {
		return nil, fmt.Errorf("no seed brokers configured")
	}

	producer, err := kgo.NewClient(append([]kgo.Opt{
		kgo.SeedBrokers(seeds...),
		kgo.ClientID(clientID),
		kgo.AllowAutoTopicCreation(),
	}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("redpanda producer: %w", err)
	}

	return &RedpandaBroker{
		producer: producer,
		seeds:    seeds,
		log:      log,
		groups:   make(map[string]*kgo.Client),
	}, nil
}

// Publish writes one record and blocks until every replica acknowledged it.
func (b *RedpandaBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return errClosed
	}

	if err := b.producer.ProduceSync(ctx, newRecord(topic, key, value)).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", topic, err)
	}
	return nil
}

// Subscribe joins groupID on topic. A group without committed offsets starts
// at the oldest retained record, so records published while the server was
// down are still ingested. The channel closes when ctx is done or the broker
// is closed.
func (b *RedpandaBroker) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, errClosed
	}
	id := topic + "/" + groupID
	if _, ok := b.groups[id]; ok {
		return nil, fmt.Errorf("already consuming %s as %s", topic, groupID)
	}

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(b.seeds...),
		kgo.ClientID(clientID),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	if err != nil {
		return nil, fmt.Errorf("redpanda consumer for %s: %w", topic, err)
	}
	b.groups[id] = consumer

	out := make(chan Message, consumerBuffer)
	go b.poll(ctx, consumer, out)
	return out, nil
}

func (b *RedpandaBroker) poll(ctx context.Context, consumer *kgo.Client, out chan<- Message) {
	defer close(out)

	for ctx.Err() == nil {
		fetches := consumer.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			if ctx.Err() == nil {
				b.log.Error("[Redpanda] fetch %s/%d: %v", topic, partition, err)
			}
		})

		for iter := fetches.RecordIter(); !iter.Done(); {
			select {
			case out <- toMessage(iter.Next()):
			case <-ctx.Done():
				return
			}
		}
	}
}

// Close stops every consumer and then the producer.
func (b *RedpandaBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for id, consumer := range b.groups {
		consumer.Close()
		delete(b.groups, id)
	}
	b.producer.Close()
	return nil
}

// newRecord builds the wire record for one serialized LogRecord.
func newRecord(topic, key string, value []byte) *kgo.Record {
	return &kgo.Record{
		Topic:   topic,
		Key:     []byte(key),
		Value:   value,
		Headers: []kgo.RecordHeader{{Key: headerContentType, Value: []byte(ContentTypeJSON)}},
	}
}

func toMessage(r *kgo.Record) Message {
	msg := Message{
		Topic:     r.Topic,
		Key:       string(r.Key),
		Value:     r.Value,
		Offset:    r.Offset,
		Partition: r.Partition,
		Timestamp: r.Timestamp.UnixMilli(),
	}
	for _, h := range r.Headers {
		if h.Key == headerContentType {
			msg.ContentType = string(h.Value)
		}
	}
	return msg
}
