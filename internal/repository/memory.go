package repository

import (
	"context"
	"sync"
	"time"

	"courierbot/internal/models"
)

type MemoryStateRepository struct {
	states     sync.Map
	rateLimits sync.Map
	ttl        time.Duration
}

func NewMemoryStateRepository(ttl time.Duration) *MemoryStateRepository {
	return &MemoryStateRepository{
		ttl: ttl,
	}
}

func (r *MemoryStateRepository) GetState(ctx context.Context, conversationID string) (*models.ConversationState, error) {
	val, ok := r.states.Load(conversationID)
	if !ok {
		return nil, nil
	}
	return val.(*models.ConversationState), nil
}

func (r *MemoryStateRepository) SetState(ctx context.Context, state *models.ConversationState) error {
	r.states.Store(state.ConversationID, state)
	return nil
}

func (r *MemoryStateRepository) ClearState(ctx context.Context, conversationID string) error {
	r.states.Delete(conversationID)
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryStateRepository) CheckRateLimit(ctx context.Context, conversationID string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	val, ok := r.rateLimits.Load(conversationID)

	var entry *rateLimitEntry
	if !ok {
		entry = &rateLimitEntry{
			count:     1,
			expiresAt: now.Add(window),
		}
	} else {
		entry = val.(*rateLimitEntry)
		if now.After(entry.expiresAt) {
			entry.count = 1
			entry.expiresAt = now.Add(window)
		} else {
			entry.count++
		}
	}

	r.rateLimits.Store(conversationID, entry)
	return entry.count <= limit, nil
}
