package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventCustomerRegistered = "customer_registered"
	EventOrderBooked        = "order_booked"
	EventStatusRequested    = "status_requested"
	EventStatusEmailed      = "status_emailed"
)

// OrderEventPayload is the minimal order snapshot for event consumers.
type OrderEventPayload struct {
	OrderID     int64     `json:"order_id,omitempty"`
	CustomerID  int64     `json:"customer_id"`
	Email       string    `json:"email,omitempty"`
	ItemType    string    `json:"item_type,omitempty"`
	ItemCount   int64     `json:"item_count,omitempty"`
	OrderIDs    []string  `json:"order_ids,omitempty"`
	MatchCount  int       `json:"match_count,omitempty"`
	RequestedAt time.Time `json:"requested_at,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	ID        int64
	Type      string
	Payload   []byte
	CreatedAt time.Time
	Processed bool
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
