package bot

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/awmitch/GME-bot/internal/bot/filters"
	"github.com/awmitch/GME-bot/internal/bot/middleware"
	"github.com/awmitch/GME-bot/internal/features/reputation"
)

// Stream — лента входящих событий. Next опрашивает источник один раз.
type Stream interface {
	Next(ctx context.Context) ([]reputation.Event, error)
}

// EventHandler обрабатывает одно событие.
type EventHandler interface {
	Handle(ctx context.Context, ev reputation.Event) bool
}

// Listener читает ленту и передаёт события обработчику варианта.
// При каждом запуске Run создаётся новая лента (skip existing).
type Listener struct {
	name      string
	newStream func() Stream
	handler   EventHandler
	filter    *filters.EventFilter
	poll      time.Duration
	clock     clockwork.Clock
}

// NewListener создаёт слушателя варианта name.
func NewListener(name string, newStream func() Stream, handler EventHandler, filter *filters.EventFilter, poll time.Duration, clock clockwork.Clock) *Listener {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if poll <= 0 {
		poll = 5 * time.Second
	}
	return &Listener{
		name:      name,
		newStream: newStream,
		handler:   handler,
		filter:    filter,
		poll:      poll,
		clock:     clock,
	}
}

// Name возвращает имя варианта.
func (l *Listener) Name() string { return l.name }

// Run читает ленту до отмены ctx или ошибки источника.
// Ошибка или паника в обработке одного события не останавливает цикл.
func (l *Listener) Run(ctx context.Context) (err error) {
	defer middleware.CapturePanic(&err)

	stream := l.newStream()
	log.WithField("variant", l.name).Info("Слушатель запущен")

	for {
		events, err := stream.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		for _, ev := range events {
			if ctx.Err() != nil {
				return nil
			}
			l.dispatch(ctx, ev)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-l.clock.After(l.poll):
		}
	}
}

func (l *Listener) dispatch(ctx context.Context, ev reputation.Event) {
	defer middleware.RecoverFromPanic(log.Fields{"variant": l.name, "event_id": ev.ID})

	middleware.LogEvent(l.name, ev)
	if l.filter != nil && !l.filter.Allow(ev) {
		return
	}
	l.handler.Handle(ctx, ev)
}
