package bot

import (
	"context"
	"strings"
	"time"

	"courierbot/internal/config"
	"courierbot/internal/dialog"
	"courierbot/internal/domain"
	"courierbot/internal/metrics"
	"courierbot/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TurnHandler owns the per-turn lifecycle: rate limiting, state load, dialog
// dispatch, state save. It is channel-agnostic; adapters feed it normalized
// activities.
type TurnHandler struct {
	engine *dialog.Engine
	states domain.StateManager
	cfg    config.BotConfig
	logger *zerolog.Logger
}

func NewTurnHandler(engine *dialog.Engine, states domain.StateManager, cfg config.BotConfig, logger *zerolog.Logger) *TurnHandler {
	return &TurnHandler{
		engine: engine,
		states: states,
		cfg:    cfg,
		logger: logger,
	}
}

// OnTurn processes one activity end to end. State is saved even when a step
// fails, so a broken dialog never wedges the conversation.
func (h *TurnHandler) OnTurn(ctx context.Context, activity *models.Activity, out domain.Responder) error {
	metrics.IncTurn(activity.Type)

	requestID := uuid.New().String()
	logger := h.logger.With().
		Str("request_id", requestID).
		Str("conversation_id", activity.ConversationID).
		Str("activity_type", activity.Type).
		Logger()
	ctx = logger.WithContext(ctx)

	allowed, err := h.states.CheckRateLimit(ctx, activity.ConversationID,
		h.cfg.RateLimitMessages, time.Duration(h.cfg.RateLimitWindow)*time.Second)
	if err != nil {
		logger.Warn().Err(err).Msg("rate limit check failed, allowing turn")
	} else if !allowed {
		logger.Warn().Msg("rate limit exceeded, dropping activity")
		return nil
	}

	state, err := h.states.GetConversationState(ctx, activity.ConversationID)
	if err != nil {
		logger.Error().Err(err).Msg("state load failed, starting fresh")
	}
	if state == nil {
		state = &models.ConversationState{ConversationID: activity.ConversationID}
	}

	switch activity.Type {
	case models.ActivityMessage:
		err = h.onMessage(ctx, state, activity, out)
	case models.ActivityConversationUpdate:
		err = h.onConversationUpdate(ctx, state, activity, out)
	default:
		logger.Debug().Msg("ignoring unsupported activity type")
	}

	if err != nil {
		logger.Error().Err(err).Int("depth", state.Depth()).Msg("turn failed, clearing dialog stack")
		// Leave the conversation idle instead of stuck on a broken frame.
		h.engine.CancelAll(state)
	}

	if saveErr := h.states.SaveConversationState(ctx, state); saveErr != nil {
		logger.Error().Err(saveErr).Msg("state save failed")
		if err == nil {
			err = saveErr
		}
	}

	return err
}

func (h *TurnHandler) onMessage(ctx context.Context, state *models.ConversationState, activity *models.Activity, out domain.Responder) error {
	text := strings.TrimSpace(activity.Text)

	// The cancel keyword bypasses any pending prompt.
	if strings.EqualFold(text, h.cancelKeyword()) {
		if state.Depth() > 0 {
			h.engine.CancelAll(state)
			return out.SendText(ctx, "Ok... canceled.")
		}
		return out.SendText(ctx, "Nothing to cancel.")
	}

	handled, err := h.engine.ContinueDialog(ctx, state, out, text)
	if err != nil {
		return err
	}
	if handled {
		return nil
	}

	return h.engine.BeginDialog(ctx, state, out, models.DialogMainMenu)
}

func (h *TurnHandler) onConversationUpdate(ctx context.Context, state *models.ConversationState, activity *models.Activity, out domain.Responder) error {
	greeted := false
	for _, member := range activity.MembersAdded {
		if member.ID == activity.RecipientID {
			continue
		}
		if err := out.SendText(ctx, "Hello Welcome to courier Booking and Tracking bot."); err != nil {
			return err
		}
		greeted = true
	}
	if !greeted {
		return nil
	}

	if state.Depth() > 0 {
		// Already mid-dialog (a rejoin); leave the stack alone.
		return nil
	}
	return h.engine.BeginDialog(ctx, state, out, models.DialogMainMenu)
}

func (h *TurnHandler) cancelKeyword() string {
	if h.cfg.CancelKeyword != "" {
		return h.cfg.CancelKeyword
	}
	return models.DefaultCancelKeyword
}
