// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: проверка еженедельного поста таблицы лидеров.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron     *cron.Cron
	schedule string
	posters  []*WeeklyPoster
}

// NewScheduler создаёт планировщик задач в UTC (метки в файлах тоже в UTC).
func NewScheduler(schedule string, posters []*WeeklyPoster) *Scheduler {
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		schedule: schedule,
		posters:  posters,
	}
}

// Start проверяет посты один раз сразу и затем по расписанию.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.schedule, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("некорректное расписание %q: %w", s.schedule, err)
	}

	s.RunOnce(ctx)
	s.cron.Start()
	log.WithField("schedule", s.schedule).Info("Планировщик задач запущен (UTC)")
	return nil
}

// RunOnce проверяет все еженедельные посты.
func (s *Scheduler) RunOnce(ctx context.Context) {
	for _, p := range s.posters {
		if ctx.Err() != nil {
			return
		}
		log.WithField("job", p.Name()).Debug("[CRON] Проверка еженедельного поста")
		if _, err := p.Run(ctx); err != nil {
			log.WithError(err).WithField("job", p.Name()).Error("[CRON] Ошибка еженедельного поста")
		}
	}
}

// Stop останавливает планировщик и ждёт завершения задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
