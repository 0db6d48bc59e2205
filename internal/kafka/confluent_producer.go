package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	pkglog "github.com/weiawesome/wes-io-live/turn-service/pkg/log"
)

const (
	topicSetupTimeout = 10 * time.Second
	flushTimeout      = 5 * time.Second
)

// ConfluentProducer publishes turn events with confluent-kafka-go. Produce
// only enqueues; delivery reports are consumed on a background goroutine.
type ConfluentProducer struct {
	producer *kafka.Producer
	topic    string
	failed   atomic.Uint64
	reports  chan struct{}
}

// NewConfluentProducer connects to brokers and makes sure topic exists. A
// failure to create the topic is logged and producing is attempted anyway.
func NewConfluentProducer(brokers, topic string, partitions int) (*ConfluentProducer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), topicSetupTimeout)
	defer cancel()
	if err := ensureTopic(ctx, brokers, topic, partitions); err != nil {
		l := pkglog.L()
		l.Warn().Err(err).Str("topic", topic).Msg("turn event topic not verified")
	}

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"acks":              "1",
		"linger.ms":         5,
		"compression.type":  "snappy",
	})
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	cp := &ConfluentProducer{producer: p, topic: topic, reports: make(chan struct{})}
	go cp.watchDeliveries()
	return cp, nil
}

func ensureTopic(ctx context.Context, brokers, topic string, partitions int) error {
	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{"bootstrap.servers": brokers})
	if err != nil {
		return fmt.Errorf("create admin client: %w", err)
	}
	defer admin.Close()

	if partitions <= 0 {
		partitions = 1
	}
	results, err := admin.CreateTopics(ctx, []kafka.TopicSpecification{{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	}})
	if err != nil {
		return err
	}
	for _, res := range results {
		switch res.Error.Code() {
		case kafka.ErrNoError, kafka.ErrTopicAlreadyExists:
		default:
			return fmt.Errorf("create topic %s: %v", res.Topic, res.Error)
		}
	}
	return nil
}

// watchDeliveries logs failed deliveries with the room they belonged to.
func (cp *ConfluentProducer) watchDeliveries() {
	defer close(cp.reports)
	l := pkglog.L()
	for e := range cp.producer.Events() {
		msg, ok := e.(*kafka.Message)
		if !ok || msg.TopicPartition.Error == nil {
			continue
		}
		cp.failed.Add(1)
		l.Error().Err(msg.TopicPartition.Error).
			Str(pkglog.FieldRoomID, string(msg.Key)).
			Msg("turn event delivery failed")
	}
}

// ProduceTurnEvent enqueues event keyed by room id, so the transitions of one
// room stay ordered within their partition.
func (cp *ConfluentProducer) ProduceTurnEvent(_ context.Context, event *TurnEvent) error {
	msg, err := newTurnMessage(cp.topic, event)
	if err != nil {
		return err
	}
	if err := cp.producer.Produce(msg, nil); err != nil {
		return fmt.Errorf("produce turn event for room %s: %w", event.RoomID, err)
	}
	return nil
}

// Failed returns how many turn events the brokers reported as undelivered.
func (cp *ConfluentProducer) Failed() uint64 {
	return cp.failed.Load()
}

// Close waits up to flushTimeout for queued events and shuts the producer down.
func (cp *ConfluentProducer) Close() error {
	remaining := cp.producer.Flush(int(flushTimeout.Milliseconds()))
	cp.producer.Close()
	<-cp.reports
	if remaining > 0 {
		return fmt.Errorf("%d turn events not flushed", remaining)
	}
	return nil
}

func newTurnMessage(topic string, event *TurnEvent) (*kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode turn event: %w", err)
	}
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(event.RoomID),
		Value:          value,
	}, nil
}
