// Package bot содержит главный модуль бота: слушателей ленты, их супервизор
// и запуск всех слушателей.
package bot

import (
	"context"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Bot — набор слушателей, по одному на вариант репутации.
type Bot struct {
	listeners []*Listener
	backoff   Backoff
	clock     clockwork.Clock
}

// New создаёт бота.
func New(listeners []*Listener, backoff Backoff, clock clockwork.Clock) *Bot {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Bot{listeners: listeners, backoff: backoff, clock: clock}
}

// Start запускает всех слушателей под супервизором и ждёт отмены ctx.
func (b *Bot) Start(ctx context.Context) error {
	names := make([]string, len(b.listeners))
	for i, l := range b.listeners {
		names[i] = l.Name()
	}
	log.WithFields(log.Fields{
		"listeners": names,
		"backoff":   b.backoff.Initial.String(),
	}).Info("Бот запущен и ожидает сообщения...")

	g, ctx := errgroup.WithContext(ctx)
	for _, l := range b.listeners {
		g.Go(func() error {
			Supervise(ctx, l.Name(), l.Run, b.backoff, b.clock)
			return nil
		})
	}
	err := g.Wait()
	log.Info("Бот останавливается (ctx done)...")
	return err
}
