package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// DefaultChannel carries change signals between API instances.
const DefaultChannel = "gofood:reservations-changed"

const publishTimeout = 2 * time.Second

var errMissingClient = errors.New("realtime: redis client is required")

// RedisBridge shares change signals between API instances over Redis pub/sub so that a
// dashboard connected to one instance sees changes committed through another.
//
// NotifyChange publishes to Redis only; Run delivers every received message, including
// this instance's own, to the local Dispatcher. If Redis rejects a publish the message is
// delivered locally instead.
type RedisBridge struct {
	client  *redis.Client
	channel string
	local   *Dispatcher
	logger  *zap.Logger
	clock   func() time.Time
}

// NewRedisBridge wires a Redis client to a local dispatcher.
func NewRedisBridge(client *redis.Client, channel string, local *Dispatcher, logger *zap.Logger) (*RedisBridge, error) {
	if client == nil {
		return nil, errMissingClient
	}
	if local == nil {
		local = NewDispatcher()
	}
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBridge{client: client, channel: channel, local: local, logger: logger, clock: time.Now}, nil
}

// NotifyChange publishes a reservations-changed signal to every instance.
func (b *RedisBridge) NotifyChange(tenantID string, reservationIDs []string) {
	message := ChangeMessage(tenantID, reservationIDs, b.clock())
	payload, err := json.Marshal(message)
	if err != nil {
		b.local.Publish(message)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		b.logger.Warn("redis publish failed, delivering locally",
			zap.String("channel", b.channel),
			zap.String("tenant_id", tenantID),
			zap.Error(err))
		b.local.Publish(message)
	}
}

// Run relays channel messages to the local dispatcher until ctx is done.
func (b *RedisBridge) Run(ctx context.Context) error {
	subscription := b.client.Subscribe(ctx, b.channel)
	defer subscription.Close()

	if _, err := subscription.Receive(ctx); err != nil {
		return err
	}
	b.logger.Info("realtime bridge subscribed", zap.String("channel", b.channel))

	messages := subscription.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case received, ok := <-messages:
			if !ok {
				return nil
			}
			message, err := decodeMessage(received.Payload)
			if err != nil {
				b.logger.Warn("discarding malformed realtime message", zap.Error(err))
				continue
			}
			b.local.Publish(message)
		}
	}
}

func decodeMessage(payload string) (Message, error) {
	var message Message
	if err := json.Unmarshal([]byte(payload), &message); err != nil {
		return Message{}, err
	}
	if message.TenantID == "" || message.EventType == "" {
		return Message{}, errors.New("realtime: message missing tenant or event")
	}
	return message, nil
}
