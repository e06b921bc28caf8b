// Package kafkasink publishes token summaries to a Kafka topic.
package kafkasink

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/sirupsen/logrus"

	"solana-token-aggregator/internal/domain"
	"solana-token-aggregator/internal/storage"
)

// DefaultTopic receives summaries when no topic is configured.
const DefaultTopic = "token-summaries"

const flushTimeoutMs = 5000

// producer is the subset of *kafka.Producer used by the sink.
type producer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Events() chan kafka.Event
	Flush(timeoutMs int) int
	Close()
}

// SummarySink produces one JSON message per summary, keyed by mint.
// Delivery is asynchronous; failed deliveries are logged from the event loop.
type SummarySink struct {
	producer producer
	topic    string
	logger   logrus.FieldLogger

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

var _ storage.SummarySink = (*SummarySink)(nil)

// New connects a producer to brokers.
func New(brokers, topic string, logger logrus.FieldLogger) (*SummarySink, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"acks":              "all",
	})
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return newSummarySink(p, topic, logger), nil
}

func newSummarySink(p producer, topic string, logger logrus.FieldLogger) *SummarySink {
	if topic == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &SummarySink{
		producer: p,
		topic:    topic,
		logger:   logger.WithField("component", "kafka-sink"),
		done:     make(chan struct{}),
	}
	go s.deliveryReport()
	return s
}

// Append enqueues a summary for delivery.
func (s *SummarySink) Append(_ context.Context, sum *domain.TokenSummary) error {
	if sum == nil || sum.Mint == "" {
		return storage.ErrInvalidInput
	}

	value, err := json.Marshal(sum)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrSinkClosed
	}

	err = s.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &s.topic, Partition: kafka.PartitionAny},
		Key:            []byte(sum.Mint),
		Value:          value,
	}, nil)
	if err != nil {
		return fmt.Errorf("produce to %s: %w", s.topic, err)
	}
	return nil
}

// Close flushes outstanding messages and closes the producer.
func (s *SummarySink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	if remaining := s.producer.Flush(flushTimeoutMs); remaining > 0 {
		s.logger.Warnf("%d summaries not delivered before close", remaining)
	}
	s.producer.Close()
	<-s.done
}

func (s *SummarySink) deliveryReport() {
	defer close(s.done)
	for e := range s.producer.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				s.logger.WithField("mint", string(ev.Key)).
					Errorf("summary delivery failed: %v", ev.TopicPartition.Error)
			}
		case kafka.Error:
			s.logger.Errorf("kafka error: %v", ev)
		}
	}
}
