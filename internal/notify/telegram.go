package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/room_scheduler/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// messageSender часть *bot.Bot, которая нужна уведомлениям
type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Telegram пишет события в чат администраторов
type Telegram struct {
	sender   messageSender
	chatID   int64
	location *time.Location
}

// NewTelegram создаёт бота по токену
func NewTelegram(token string, chatID int64, location *time.Location) (*Telegram, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return newTelegram(b, chatID, location), nil
}

func newTelegram(sender messageSender, chatID int64, location *time.Location) *Telegram {
	return &Telegram{sender: sender, chatID: chatID, location: location}
}

func (t *Telegram) Notify(ctx context.Context, event model.BookingEvent) error {
	if event.Booking == nil {
		return nil
	}

	_, err := t.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: t.chatID,
		Text:   FormatEvent(event, t.location),
	})
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
