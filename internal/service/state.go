package service

import (
	"context"
	"time"

	"courierbot/internal/domain"
	"courierbot/internal/models"

	"github.com/rs/zerolog"
)

// StateService wraps the state repository with logging. It is the load/save
// boundary around every turn; the dialog stack is the payload.
type StateService struct {
	stateRepo domain.StateRepository
	logger    *zerolog.Logger
}

func NewStateService(stateRepo domain.StateRepository, logger *zerolog.Logger) *StateService {
	return &StateService{
		stateRepo: stateRepo,
		logger:    logger,
	}
}

func (s *StateService) GetConversationState(ctx context.Context, conversationID string) (*models.ConversationState, error) {
	state, err := s.stateRepo.GetState(ctx, conversationID)
	if err != nil {
		s.logger.Error().Err(err).Str("conversation_id", conversationID).Msg("failed to get conversation state")
		return nil, err
	}

	return state, nil
}

func (s *StateService) SaveConversationState(ctx context.Context, state *models.ConversationState) error {
	return s.stateRepo.SetState(ctx, state)
}

func (s *StateService) ClearConversationState(ctx context.Context, conversationID string) error {
	return s.stateRepo.ClearState(ctx, conversationID)
}

func (s *StateService) CheckRateLimit(ctx context.Context, conversationID string, limit int, window time.Duration) (bool, error) {
	return s.stateRepo.CheckRateLimit(ctx, conversationID, limit, window)
}
