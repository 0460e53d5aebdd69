package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/kotche/notes/internal/model"
)

var ErrNoConsumer = errors.New("kafka service has no consumer group")

type Service struct {
	producer *kafka.Writer
	consumer *kafka.Reader
	log      *zap.Logger
}

// New creates the topic when needed and opens a producer. A consumer is only
// opened when groupID is set, so publish-only processes do not join the group.
func New(brokers []string, topic string, groupID string, numPartitions, replicationFactor int, log *zap.Logger) (*Service, error) {
	if numPartitions < 1 || replicationFactor < 1 {
		return nil, fmt.Errorf("invalid topic layout: %d partitions, replication factor %d", numPartitions, replicationFactor)
	}
	for _, broker := range brokers {
		if err := createTopic(topic, broker, numPartitions, replicationFactor, log); err != nil {
			return nil, err
		}
	}

	s := &Service{
		producer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		},
		log: log,
	}

	if groupID != "" {
		s.consumer = kafka.NewReader(kafka.ReaderConfig{
			Brokers:        brokers,
			Topic:          topic,
			GroupID:        groupID,
			CommitInterval: time.Second,
		})
	}

	return s, nil
}

// Publish keys messages by user so events of one user stay ordered.
func (s *Service) Publish(ctx context.Context, event model.NoteEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	err = s.producer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.UserID.String()),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed to send message to kafka: %w", err)
	}
	return nil
}

func (s *Service) Consume(ctx context.Context) (model.NoteEvent, error) {
	if s.consumer == nil {
		return model.NoteEvent{}, ErrNoConsumer
	}

	msg, err := s.consumer.ReadMessage(ctx)
	if err != nil {
		return model.NoteEvent{}, fmt.Errorf("failed to read message from kafka: %w", err)
	}

	var event model.NoteEvent
	if err = json.Unmarshal(msg.Value, &event); err != nil {
		return model.NoteEvent{}, fmt.Errorf("failed to decode event at offset %d: %w", msg.Offset, err)
	}
	return event, nil
}

func (s *Service) Close() error {
	if err := s.producer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka producer: %w", err)
	}
	if s.consumer != nil {
		if err := s.consumer.Close(); err != nil {
			return fmt.Errorf("failed to close kafka consumer: %w", err)
		}
	}
	return nil
}

func createTopic(topic, broker string, numPartitions, replicationFactor int, log *zap.Logger) error {
	conn, err := kafka.Dial("tcp", broker)
	if err != nil {
		return fmt.Errorf("failed to connect to kafka broker: %w", err)
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     numPartitions,
		ReplicationFactor: replicationFactor,
	})
	if err != nil {
		if errors.Is(err, kafka.TopicAlreadyExists) {
			log.Debug("kafka topic already exists", zap.String("topic", topic))
			return nil
		}
		return fmt.Errorf("failed to create Kafka topic '%s': %w", topic, err)
	}

	log.Info("kafka topic created", zap.String("topic", topic))
	return nil
}
