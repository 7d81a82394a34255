// Package notify дублирует объявления бота в Telegram-чаты.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"
)

type sender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

// Telegram отправляет текст во все настроенные чаты.
type Telegram struct {
	bot   sender
	chats []int64
}

// NewTelegram создаёт отправителя по токену бота.
func NewTelegram(token string, chats []int64) (*Telegram, error) {
	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	return &Telegram{bot: bot, chats: chats}, nil
}

// Announce отправляет text во все чаты. Ошибка одного чата не мешает остальным.
func (t *Telegram) Announce(ctx context.Context, text string) error {
	var errs []error
	for _, chatID := range t.chats {
		msg := tu.Message(tu.ID(chatID), text).WithParseMode(telego.ModeMarkdown)
		if _, err := t.bot.SendMessage(ctx, msg); err != nil {
			log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
			continue
		}
		log.WithField("chat_id", chatID).Debug("message sent")
	}
	return errors.Join(errs...)
}
