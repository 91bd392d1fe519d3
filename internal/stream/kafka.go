package stream

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaLog implements Log over Kafka topics. Each stream is a single
// partition topic so append order equals delivery order; entry IDs are the
// partition offsets.
type KafkaLog struct {
	producer *kgo.Client
	brokers  []string

	mu     sync.Mutex
	closed bool
	// idle holds parked consumers keyed by stream and position. A reader
	// checks one out for the duration of a poll, so concurrent readers of
	// the same stream at different cursors each hold their own client and
	// never close one another's mid-poll.
	idle map[string]*kafkaConsumer
}

type kafkaConsumer struct {
	client *kgo.Client
	stream string
	// next is the offset the client delivers on its next poll. Only the
	// goroutine holding the checked-out consumer touches it.
	next int64
}

// NewKafkaLog connects to the brokers and ensures every named stream exists
// as a single partition topic.
func NewKafkaLog(ctx context.Context, brokers []string, streams ...string) (*KafkaLog, error) {
	producer, err := kgo.NewClient(kgo.SeedBrokers(brokers...))
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	admin := kadm.NewClient(producer)
	resps, err := admin.CreateTopics(ctx, 1, 1, nil, streams...)
	if err != nil {
		producer.Close()
		return nil, fmt.Errorf("create topics: %w", err)
	}
	for _, resp := range resps {
		if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
			producer.Close()
			return nil, fmt.Errorf("create topic %s: %w", resp.Topic, resp.Err)
		}
	}

	return &KafkaLog{
		producer: producer,
		brokers:  brokers,
		idle:     make(map[string]*kafkaConsumer),
	}, nil
}

func (l *KafkaLog) Append(ctx context.Context, stream string, payload []byte) (string, error) {
	results := l.producer.ProduceSync(ctx, &kgo.Record{Topic: stream, Value: payload})
	rec, err := results.First()
	if err != nil {
		return "", fmt.Errorf("produce %s: %w", stream, err)
	}
	return strconv.FormatInt(rec.Offset, 10), nil
}

func (l *KafkaLog) Read(ctx context.Context, stream, after string, max int, block time.Duration) ([]Entry, error) {
	start := int64(0)
	if after != "" {
		offset, err := strconv.ParseInt(after, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad cursor %q: %w", after, err)
		}
		start = offset + 1
	}

	consumer, err := l.checkout(stream, start)
	if err != nil {
		return nil, err
	}

	if block <= 0 {
		block = 10 * time.Millisecond
	}
	pollCtx, cancel := context.WithTimeout(ctx, block)
	defer cancel()

	fetches := consumer.client.PollRecords(pollCtx, max)
	if fetches.IsClientClosed() {
		return nil, errors.New("kafka consumer closed")
	}

	var entries []Entry
	fetches.EachRecord(func(rec *kgo.Record) {
		entries = append(entries, Entry{
			ID:      strconv.FormatInt(rec.Offset, 10),
			Payload: rec.Value,
		})
		if rec.Offset >= consumer.next {
			consumer.next = rec.Offset + 1
		}
	})

	for _, fetchErr := range fetches.Errors() {
		if errors.Is(fetchErr.Err, context.DeadlineExceeded) || errors.Is(fetchErr.Err, context.Canceled) {
			continue
		}
		// Position is uncertain after a broker error; discard the client
		// rather than parking it.
		consumer.client.Close()
		return entries, fmt.Errorf("poll %s: %w", stream, fetchErr.Err)
	}

	l.checkin(consumer)
	return entries, nil
}

func consumerKey(stream string, next int64) string {
	return stream + "@" + strconv.FormatInt(next, 10)
}

// checkout returns a consumer positioned at the given offset, reusing a
// parked one when its position matches and creating a fresh client when the
// caller rewinds, skips, or races another reader for the same position.
func (l *KafkaLog) checkout(stream string, start int64) (*kafkaConsumer, error) {
	l.mu.Lock()
	if consumer, ok := l.idle[consumerKey(stream, start)]; ok {
		delete(l.idle, consumerKey(stream, start))
		l.mu.Unlock()
		return consumer, nil
	}
	l.mu.Unlock()

	client, err := kgo.NewClient(
		kgo.SeedBrokers(l.brokers...),
		kgo.ConsumePartitions(map[string]map[int32]kgo.Offset{
			stream: {0: kgo.NewOffset().At(start)},
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer %s: %w", stream, err)
	}
	return &kafkaConsumer{client: client, stream: stream, next: start}, nil
}

// checkin parks a consumer at its current position for the next read. A
// consumer whose slot is taken, or that comes back after Close, is closed
// instead of parked.
func (l *KafkaLog) checkin(consumer *kafkaConsumer) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := consumerKey(consumer.stream, consumer.next)
	if _, taken := l.idle[key]; taken || l.closed {
		consumer.client.Close()
		return
	}
	l.idle[key] = consumer
}

func (l *KafkaLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	for key, consumer := range l.idle {
		consumer.client.Close()
		delete(l.idle, key)
	}
	l.producer.Close()
	return nil
}
