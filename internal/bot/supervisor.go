package bot

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/awmitch/GME-bot/internal/metrics"
)

// Backoff — пауза перед перезапуском упавшей задачи.
// Пауза удваивается после каждого сбоя подряд, но не больше Max.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
}

// next возвращает паузу после attempt сбоев подряд (attempt >= 1).
func (b Backoff) next(attempt int) time.Duration {
	d := b.Initial
	for i := 1; i < attempt && d < b.Max; i++ {
		d *= 2
	}
	if d > b.Max {
		d = b.Max
	}
	return d
}

// Supervise запускает run и перезапускает его после ошибки или паники с паузой.
// Если задача проработала дольше Max, счётчик сбоев сбрасывается.
// Возвращается, когда ctx отменён.
func Supervise(ctx context.Context, name string, run func(context.Context) error, b Backoff, clock clockwork.Clock) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if b.Initial <= 0 {
		b.Initial = 5 * time.Second
	}
	if b.Max < b.Initial {
		b.Max = b.Initial
	}

	failures := 0
	for {
		started := clock.Now()
		err := run(ctx)
		if ctx.Err() != nil {
			log.WithField("variant", name).Info("Слушатель остановлен")
			return
		}

		if clock.Since(started) > b.Max {
			failures = 0
		}
		failures++
		wait := b.next(failures)

		metrics.ListenerRestarts.WithLabelValues(name).Inc()
		entry := log.WithFields(log.Fields{
			"variant": name,
			"attempt": failures,
			"backoff": wait.String(),
		})
		if err != nil {
			entry = entry.WithError(err)
		}
		entry.Error("Слушатель упал, перезапуск")

		select {
		case <-ctx.Done():
			return
		case <-clock.After(wait):
		}
	}
}
