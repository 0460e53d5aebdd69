package delivery

import (
	"context"
	"fmt"

	"gopkg.in/telebot.v3"

	"github.com/kotche/notes/internal/model"
)

const ChannelTelegram = "telegram"

// Sender is the part of *telebot.Bot the channel needs.
type Sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// TelegramChannel writes the reminder straight into the user's linked chat.
type TelegramChannel struct {
	bot Sender
}

func NewTelegramChannel(bot Sender) *TelegramChannel {
	return &TelegramChannel{bot: bot}
}

func (t *TelegramChannel) Name() string { return ChannelTelegram }

func (t *TelegramChannel) Ready(settings *model.UserSettings) bool {
	return settings.TelegramChatID != nil
}

// Deliver sends the message and gives up when ctx ends. telebot has no
// context support, so an abandoned send finishes in the background.
func (t *TelegramChannel) Deliver(ctx context.Context, settings *model.UserSettings, n Notification) error {
	if settings.TelegramChatID == nil {
		return model.ErrCapabilityMissing
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	chatID := *settings.TelegramChatID
	message := fmt.Sprintf("%s\n%s (id %d)", n.Title, n.Body, n.NoteID)

	sent := make(chan error, 1)
	go func() {
		_, err := t.bot.Send(&telebot.Chat{ID: chatID}, message)
		sent <- err
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("failed to send notification to chat %d: %w", chatID, ctx.Err())
	case err := <-sent:
		if err != nil {
			return fmt.Errorf("failed to send notification to chat %d: %w", chatID, err)
		}
		return nil
	}
}
