package realtime

import (
	"context"
	"sync"
	"time"
)

const (
	// EventReservationsChanged tells dashboards to refetch reservations and occupancy.
	EventReservationsChanged = "reservations-changed"
	// EventHeartbeat keeps idle streams open through proxies.
	EventHeartbeat = "heartbeat"

	defaultBufferSize = 16
)

// Message is a change signal scoped to one tenant.
type Message struct {
	TenantID       string    `json:"tenant_id"`
	EventType      string    `json:"event"`
	ReservationIDs []string  `json:"reservation_ids"`
	Timestamp      time.Time `json:"timestamp"`
}

// Dispatcher fans messages out to the subscribers of each tenant. Slow subscribers
// miss messages instead of blocking publishers.
type Dispatcher struct {
	mu          sync.RWMutex
	subscribers map[string]map[int64]*subscriber
	nextID      int64
	bufferSize  int
	clock       func() time.Time
}

type subscriber struct {
	id     int64
	stream chan Message
}

// NewDispatcher constructs an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		subscribers: make(map[string]map[int64]*subscriber),
		bufferSize:  defaultBufferSize,
		clock:       time.Now,
	}
}

// Subscribe registers a stream for tenantID until ctx is done or the returned cleanup runs.
func (d *Dispatcher) Subscribe(ctx context.Context, tenantID string) (<-chan Message, func()) {
	if tenantID == "" {
		ch := make(chan Message)
		close(ch)
		return ch, func() {}
	}
	sub := &subscriber{
		id:     d.nextSequence(),
		stream: make(chan Message, d.bufferSize),
	}
	d.register(tenantID, sub)
	var once sync.Once
	cleanup := func() {
		once.Do(func() { d.unregister(tenantID, sub.id) })
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return sub.stream, cleanup
}

// Publish delivers message to every current subscriber of its tenant.
func (d *Dispatcher) Publish(message Message) {
	if message.TenantID == "" || message.EventType == "" {
		return
	}
	d.mu.RLock()
	subscribers := d.subscribers[message.TenantID]
	if len(subscribers) == 0 {
		d.mu.RUnlock()
		return
	}
	copies := make([]*subscriber, 0, len(subscribers))
	for _, sub := range subscribers {
		copies = append(copies, sub)
	}
	d.mu.RUnlock()
	for _, sub := range copies {
		select {
		case sub.stream <- message:
		default:
		}
	}
}

// NotifyChange publishes a reservations-changed signal for tenantID.
func (d *Dispatcher) NotifyChange(tenantID string, reservationIDs []string) {
	d.Publish(ChangeMessage(tenantID, reservationIDs, d.clock()))
}

// SubscriberCount reports how many streams are open for tenantID.
func (d *Dispatcher) SubscriberCount(tenantID string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers[tenantID])
}

// ChangeMessage builds a reservations-changed message.
func ChangeMessage(tenantID string, reservationIDs []string, at time.Time) Message {
	return Message{
		TenantID:       tenantID,
		EventType:      EventReservationsChanged,
		ReservationIDs: append([]string(nil), reservationIDs...),
		Timestamp:      at.UTC(),
	}
}

func (d *Dispatcher) nextSequence() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return d.nextID
}

func (d *Dispatcher) register(tenantID string, sub *subscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.subscribers[tenantID]; !ok {
		d.subscribers[tenantID] = make(map[int64]*subscriber)
	}
	d.subscribers[tenantID][sub.id] = sub
}

func (d *Dispatcher) unregister(tenantID string, subscriberID int64) {
	d.mu.Lock()
	subscribers := d.subscribers[tenantID]
	if subscribers != nil {
		delete(subscribers, subscriberID)
		if len(subscribers) == 0 {
			delete(d.subscribers, tenantID)
		}
	}
	d.mu.Unlock()
}
