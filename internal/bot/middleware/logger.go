// Package middleware содержит промежуточные обработчики для логирования,
// восстановления после паники и ограничения частоты запросов.
package middleware

import (
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"github.com/awmitch/GME-bot/internal/features/reputation"
)

// LogEvent логирует входящее событие ленты.
// Записывает: id, автора, сообщество, текст (первые 50 символов).
func LogEvent(variant string, ev reputation.Event) {
	text := ev.Body
	if utf8.RuneCountInString(text) > 50 {
		text = string([]rune(text)[:50]) + "..."
	}

	log.WithFields(log.Fields{
		"variant":   variant,
		"event_id":  ev.ID,
		"author":    ev.Author,
		"subreddit": ev.Subreddit,
		"text":      text,
	}).Debug("Входящее сообщение")
}
