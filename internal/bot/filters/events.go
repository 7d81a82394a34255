// Package filters отсекает события, которые бот не должен обрабатывать.
package filters

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/awmitch/GME-bot/internal/features/reputation"
)

// EventFilter пропускает только чужие комментарии из нашего сообщества.
type EventFilter struct {
	botName   string
	subreddit string
}

// NewEventFilter создаёт фильтр. botName — аккаунт бота, subreddit — наше сообщество.
func NewEventFilter(botName, subreddit string) *EventFilter {
	return &EventFilter{botName: botName, subreddit: subreddit}
}

// Allow сообщает, нужно ли обрабатывать событие.
func (f *EventFilter) Allow(ev reputation.Event) bool {
	logger := log.WithFields(log.Fields{
		"component": "EventFilter",
		"event_id":  ev.ID,
		"author":    ev.Author,
		"subreddit": ev.Subreddit,
	})

	// 1) Автор удалён: выдавать некому и не от кого
	if ev.Author == "" {
		logger.Debug("deny: deleted author")
		return false
	}

	// 2) Свои сообщения не обрабатываем, иначе бот отвечает сам себе
	if f.botName != "" && strings.EqualFold(ev.Author, f.botName) {
		logger.Debug("deny: self-authored")
		return false
	}

	// 3) Чужие сообщества игнорируем
	if f.subreddit != "" && ev.Subreddit != "" && !strings.EqualFold(ev.Subreddit, f.subreddit) {
		logger.Debug("deny: other subreddit")
		return false
	}

	return true
}
