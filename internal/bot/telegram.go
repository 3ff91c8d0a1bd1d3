package bot

import (
	"context"
	"strconv"
	"time"

	"courierbot/internal/config"
	"courierbot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// TelegramAPI is the slice of the bot API client the adapter consumes.
type TelegramAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	StopReceivingUpdates()
	GetSelf() tgbotapi.User
}

type tgClient struct {
	api *tgbotapi.BotAPI
}

func (c *tgClient) GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return c.api.GetUpdatesChan(cfg)
}

func (c *tgClient) Send(m tgbotapi.Chattable) (tgbotapi.Message, error) {
	return c.api.Send(m)
}

func (c *tgClient) StopReceivingUpdates() {
	c.api.StopReceivingUpdates()
}

func (c *tgClient) GetSelf() tgbotapi.User {
	return c.api.Self
}

// TelegramBot pulls long-poll updates, normalizes them into activities and
// feeds the turn handler. Outbound sends share one global limiter to stay
// under the Bot API flood ceiling.
type TelegramBot struct {
	api     TelegramAPI
	handler *TurnHandler
	limiter *rate.Limiter
	logger  *zerolog.Logger
}

func NewTelegramBot(cfg config.TelegramConfig, handler *TurnHandler, logger *zerolog.Logger) (*TelegramBot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	api.Debug = cfg.Debug

	return &TelegramBot{
		api:     &tgClient{api: api},
		handler: handler,
		limiter: rate.NewLimiter(rate.Limit(30), 5),
		logger:  logger,
	}, nil
}

// NewTelegramBotWithAPI wires a prebuilt client, used by tests.
func NewTelegramBotWithAPI(api TelegramAPI, handler *TurnHandler, logger *zerolog.Logger) *TelegramBot {
	return &TelegramBot{
		api:     api,
		handler: handler,
		limiter: rate.NewLimiter(rate.Limit(30), 5),
		logger:  logger,
	}
}

func (b *TelegramBot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	b.logger.Info().Str("username", b.api.GetSelf().UserName).Msg("Authorized on account")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Bot stopping...")
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

func (b *TelegramBot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil {
		return
	}

	updateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	activity, chatID := b.toActivity(update.Message)
	if activity == nil {
		return
	}

	out := &telegramResponder{bot: b, chatID: chatID}
	if activity.Type == models.ActivityMessage {
		// Pending choice keyboards are one-shot; a plain reply removes them.
		out.removeKeyboard = true
	}

	if err := b.handler.OnTurn(updateCtx, activity, out); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("turn processing failed")
	}
}

// toActivity maps a Telegram message onto a normalized activity. Joins become
// conversationUpdate so the greeting logic stays channel-independent.
func (b *TelegramBot) toActivity(msg *tgbotapi.Message) (*models.Activity, int64) {
	chatID := msg.Chat.ID
	conversationID := strconv.FormatInt(chatID, 10)

	if len(msg.NewChatMembers) > 0 {
		self := b.api.GetSelf()
		activity := &models.Activity{
			Type:           models.ActivityConversationUpdate,
			ConversationID: conversationID,
			RecipientID:    strconv.FormatInt(self.ID, 10),
		}
		for _, member := range msg.NewChatMembers {
			activity.MembersAdded = append(activity.MembersAdded, models.ChannelAccount{
				ID:   strconv.FormatInt(member.ID, 10),
				Name: member.UserName,
			})
		}
		return activity, chatID
	}

	if msg.Text == "" {
		return nil, 0
	}

	return &models.Activity{
		Type:           models.ActivityMessage,
		ConversationID: conversationID,
		Text:           msg.Text,
	}, chatID
}

func (b *TelegramBot) send(ctx context.Context, msg tgbotapi.MessageConfig) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := b.api.Send(msg)
	return err
}

// telegramResponder renders choices as a one-time reply keyboard.
type telegramResponder struct {
	bot            *TelegramBot
	chatID         int64
	removeKeyboard bool
}

func (r *telegramResponder) SendText(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(r.chatID, text)
	if r.removeKeyboard {
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
		r.removeKeyboard = false
	}
	return r.bot.send(ctx, msg)
}

func (r *telegramResponder) SendChoices(ctx context.Context, text string, choices []string) error {
	buttons := make([]tgbotapi.KeyboardButton, 0, len(choices))
	for _, choice := range choices {
		buttons = append(buttons, tgbotapi.NewKeyboardButton(choice))
	}

	keyboard := tgbotapi.NewOneTimeReplyKeyboard(buttons)
	msg := tgbotapi.NewMessage(r.chatID, text)
	msg.ReplyMarkup = keyboard
	r.removeKeyboard = false
	return r.bot.send(ctx, msg)
}
