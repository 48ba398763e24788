package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/reservations"
	"go.uber.org/zap"
)

// DefaultTopic receives reservation events when no topic is configured.
const DefaultTopic = "reservation-events"

var errMissingProducer = errors.New("notify: kafka producer is required")

// KafkaConfig describes the broker connection used by NewKafkaNotifier.
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
}

// KafkaNotifier publishes reservation events to a Kafka topic keyed by reservation id,
// so every event for one reservation lands on the same partition in order.
type KafkaNotifier struct {
	producer sarama.SyncProducer
	topic    string
	clock    func() time.Time
	logger   *zap.Logger
}

// NewKafkaNotifier connects a synchronous producer to the configured brokers.
func NewKafkaNotifier(cfg KafkaConfig, logger *zap.Logger) (*KafkaNotifier, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	if cfg.ClientID != "" {
		config.ClientID = cfg.ClientID
	}

	producer, err := sarama.NewSyncProducer(cfg.Brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	if logger != nil {
		logger.Info("kafka producer connected", zap.Strings("brokers", cfg.Brokers))
	}
	return NewKafkaNotifierWithProducer(producer, cfg.Topic, logger)
}

// NewKafkaNotifierWithProducer wraps an existing producer.
func NewKafkaNotifierWithProducer(producer sarama.SyncProducer, topic string, logger *zap.Logger) (*KafkaNotifier, error) {
	if producer == nil {
		return nil, errMissingProducer
	}
	if topic == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaNotifier{producer: producer, topic: topic, clock: time.Now, logger: logger}, nil
}

// Notify serializes the notification and waits for broker acknowledgement until ctx is done.
func (n *KafkaNotifier) Notify(ctx context.Context, notification reservations.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(NewReservationEvent(notification, n.clock()))
	if err != nil {
		return fmt.Errorf("failed to marshal reservation event: %w", err)
	}
	message := &sarama.ProducerMessage{
		Topic: n.topic,
		Key:   sarama.StringEncoder(notification.Reservation.ReservationID),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event"), Value: []byte(notification.Kind)},
			{Key: []byte("tenant_id"), Value: []byte(notification.TenantID)},
		},
	}
	acks := make(chan sendResult, 1)
	go func() {
		partition, offset, err := n.producer.SendMessage(message)
		acks <- sendResult{partition: partition, offset: offset, err: err}
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("reservation event not acknowledged: %w", ctx.Err())
	case result := <-acks:
		if result.err != nil {
			return fmt.Errorf("failed to send reservation event: %w", result.err)
		}
		n.logger.Debug("reservation event published",
			zap.String("topic", n.topic),
			zap.String("event", string(notification.Kind)),
			zap.String("reservation_id", notification.Reservation.ReservationID),
			zap.Int32("partition", result.partition),
			zap.Int64("offset", result.offset))
		return nil
	}
}

type sendResult struct {
	partition int32
	offset    int64
	err       error
}

// Close releases the producer.
func (n *KafkaNotifier) Close() error {
	if n == nil || n.producer == nil {
		return nil
	}
	return n.producer.Close()
}
