package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/awmitch/GME-bot/internal/metrics"
)

// RateLimiter ограничивает исходящие вызовы к API платформы.
// Использует алгоритм скользящего окна: не больше limit вызовов за любые window.
// Один экземпляр на процесс, через него проходят все слушатели и задачи.
type RateLimiter struct {
	mu     sync.Mutex
	calls  []time.Time // моменты выданных разрешений, от старых к новым
	limit  int
	window time.Duration
	clock  clockwork.Clock
}

// NewRateLimiter создаёт ограничитель limit вызовов за window.
func NewRateLimiter(limit int, window time.Duration, clock clockwork.Clock) *RateLimiter {
	if limit < 1 {
		limit = 1
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RateLimiter{
		calls:  make([]time.Time, 0, limit),
		limit:  limit,
		window: window,
		clock:  clock,
	}
}

// Acquire блокирует вызывающего, пока не станет можно сделать один вызов.
// Приоритетов нет, таймаутов нет: ждём, сколько нужно.
// Отмена ctx прерывает ожидание только при остановке бота.
func (rl *RateLimiter) Acquire(ctx context.Context) error {
	started := rl.clock.Now()
	for {
		rl.mu.Lock()
		now := rl.clock.Now()
		rl.prune(now)

		if len(rl.calls) < rl.limit {
			rl.calls = append(rl.calls, now)
			rl.mu.Unlock()
			if waited := now.Sub(started); waited > 0 {
				metrics.RateLimitWait.Observe(waited.Seconds())
			}
			return nil
		}

		// Окно заполнено: ждём, пока выпадет самый старый вызов.
		// Лок отпускаем на время сна, после пробуждения проверяем заново.
		wait := rl.window - now.Sub(rl.calls[0])
		rl.mu.Unlock()

		log.WithFields(log.Fields{
			"component": "RateLimiter",
			"wait":      wait.String(),
		}).Debug("outbound call throttled")

		select {
		case <-rl.clock.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// InFlight возвращает количество вызовов в текущем окне.
func (rl *RateLimiter) InFlight() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.prune(rl.clock.Now())
	return len(rl.calls)
}

// prune выбрасывает вызовы старше окна. Вызывается под локом.
func (rl *RateLimiter) prune(now time.Time) {
	i := 0
	for i < len(rl.calls) && now.Sub(rl.calls[i]) >= rl.window {
		i++
	}
	if i > 0 {
		rl.calls = append(rl.calls[:0], rl.calls[i:]...)
	}
}
