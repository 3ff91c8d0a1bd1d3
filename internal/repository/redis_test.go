package repository

import (
	"context"
	"testing"
	"time"

	"courierbot/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStateRepository(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	defer client.Close()

	repo := NewRedisStateRepository(client, time.Hour)
	ctx := context.Background()

	t.Run("SetAndGetState", func(t *testing.T) {
		state := &models.ConversationState{
			ConversationID: "chat-123",
			Frames: []models.DialogFrame{
				{
					Dialog:  "bookCourier",
					Step:    4,
					Scratch: map[string]interface{}{"origin_address": "12 Dock Road"},
					Pending: &models.PendingPrompt{Prompt: "textPrompt", Text: "What would be the Origin address?"},
				},
			},
		}

		err := repo.SetState(ctx, state)
		require.NoError(t, err)

		got, err := repo.GetState(ctx, "chat-123")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, state.ConversationID, got.ConversationID)
		require.Len(t, got.Frames, 1)
		assert.Equal(t, "bookCourier", got.Frames[0].Dialog)
		assert.Equal(t, 4, got.Frames[0].Step)
		assert.Equal(t, "12 Dock Road", got.Frames[0].GetString("origin_address"))
		require.NotNil(t, got.Frames[0].Pending)
		assert.Equal(t, "textPrompt", got.Frames[0].Pending.Prompt)
	})

	t.Run("GetNonExistentState", func(t *testing.T) {
		got, err := repo.GetState(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("ClearState", func(t *testing.T) {
		state := &models.ConversationState{ConversationID: "chat-456"}
		require.NoError(t, repo.SetState(ctx, state))

		err := repo.ClearState(ctx, "chat-456")
		require.NoError(t, err)

		got, _ := repo.GetState(ctx, "chat-456")
		assert.Nil(t, got)
	})

	t.Run("StateExpires", func(t *testing.T) {
		short := NewRedisStateRepository(client, time.Second)
		state := &models.ConversationState{ConversationID: "chat-789"}
		require.NoError(t, short.SetState(ctx, state))

		s.FastForward(2 * time.Second)

		got, err := short.GetState(ctx, "chat-789")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("RateLimit", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			allowed, err := repo.CheckRateLimit(ctx, "chat-rl", 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, allowed)
		}

		allowed, err := repo.CheckRateLimit(ctx, "chat-rl", 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)

		s.FastForward(2 * time.Minute)

		allowed, err = repo.CheckRateLimit(ctx, "chat-rl", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("NilClientErrors", func(t *testing.T) {
		nilRepo := NewRedisStateRepository(nil, time.Hour)
		_, err := nilRepo.GetState(ctx, "any")
		assert.Error(t, err)
		assert.Error(t, nilRepo.SetState(ctx, &models.ConversationState{ConversationID: "any"}))
	})
}
