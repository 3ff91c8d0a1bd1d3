package domain

import (
	"context"
	"time"

	"courierbot/internal/models"
)

// RecordStore is the relational contract the wizards consume. Lookups return
// nil without an error when no record matches.
type RecordStore interface {
	GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error)
	GetCustomerByEmail(ctx context.Context, email string) (*models.Customer, error)
	RegisterCustomer(ctx context.Context, email string) error
	InsertOrder(ctx context.Context, order *models.Order) error
	GetLastOrderID(ctx context.Context, customerID int64) (int64, error)
	GetOrdersByCustomerAndIDs(ctx context.Context, customerID int64, orderIDs []string) ([]models.Order, error)
}

// StateRepository persists conversation state between turns.
type StateRepository interface {
	GetState(ctx context.Context, conversationID string) (*models.ConversationState, error)
	SetState(ctx context.Context, state *models.ConversationState) error
	ClearState(ctx context.Context, conversationID string) error
	CheckRateLimit(ctx context.Context, conversationID string, limit int, window time.Duration) (bool, error)
}

// StateManager is the load/save contract the turn handler uses.
type StateManager interface {
	GetConversationState(ctx context.Context, conversationID string) (*models.ConversationState, error)
	SaveConversationState(ctx context.Context, state *models.ConversationState) error
	ClearConversationState(ctx context.Context, conversationID string) error
	CheckRateLimit(ctx context.Context, conversationID string, limit int, window time.Duration) (bool, error)
}

// TimeResolver recognizes a natural-language time phrase, producing zero or
// more candidate windows. It is an opaque collaborator: the dialog layer only
// sees candidates.
type TimeResolver interface {
	Resolve(phrase string, ref time.Time) []models.TimeCandidate
}

// Responder delivers outgoing messages for the current turn. Choices, when
// present, are a hint the channel may render as quick replies.
type Responder interface {
	SendText(ctx context.Context, text string) error
	SendChoices(ctx context.Context, text string, choices []string) error
}

// EventPublisher fans domain events out to in-process subscribers.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Notifier enqueues simulated email notifications.
type Notifier interface {
	EnqueueStatusEmail(ctx context.Context, customerID int64, lines []string) error
}
