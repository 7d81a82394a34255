package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/awmitch/GME-bot/internal/db/filestore"
	"github.com/awmitch/GME-bot/internal/features/reputation"
)

// WeeklyTopSize — сколько строк в таблицах еженедельного поста.
const WeeklyTopSize = 10

// Submitter публикует пост в сообществе.
type Submitter interface {
	Submit(ctx context.Context, title, text string) error
}

// Announcer дублирует объявление в другой канал.
type Announcer interface {
	Announce(ctx context.Context, text string) error
}

// WeeklyPoster публикует таблицу лидеров варианта не чаще раза в interval.
// Время последнего поста хранится в файле, поэтому перезапуск не публикует пост повторно.
type WeeklyPoster struct {
	service   *reputation.Service
	submitter Submitter
	announcer Announcer // может быть nil
	statePath string
	interval  time.Duration
	signature string
	clock     clockwork.Clock
}

// NewWeeklyPoster создаёт задачу еженедельного поста.
func NewWeeklyPoster(service *reputation.Service, submitter Submitter, announcer Announcer, statePath string, interval time.Duration, signature string, clock clockwork.Clock) *WeeklyPoster {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &WeeklyPoster{
		service:   service,
		submitter: submitter,
		announcer: announcer,
		statePath: statePath,
		interval:  interval,
		signature: signature,
		clock:     clock,
	}
}

// Name возвращает имя задачи для логов.
func (w *WeeklyPoster) Name() string {
	return "weekly_" + w.service.Variant().Name
}

// Due сообщает, пора ли публиковать.
func (w *WeeklyPoster) Due() bool {
	last, ok := filestore.ReadStamp(w.statePath)
	if !ok {
		return true
	}
	return w.clock.Now().UTC().Sub(last) >= w.interval
}

// Run публикует пост, если пора. Возвращает true, если пост опубликован.
func (w *WeeklyPoster) Run(ctx context.Context) (bool, error) {
	if !w.Due() {
		return false, nil
	}

	v := w.service.Variant()
	text := reputation.WeeklyPostText(v, w.service.Top(WeeklyTopSize), w.service.TopGiven(WeeklyTopSize))
	body := text
	if w.signature != "" {
		body += "\n\n---\n" + w.signature
	}

	if err := w.submitter.Submit(ctx, reputation.WeeklyPostTitle(v), body); err != nil {
		return false, fmt.Errorf("submit weekly post: %w", err)
	}
	log.WithField("variant", v.Name).Info("Еженедельная таблица лидеров опубликована")

	if err := filestore.WriteStamp(w.statePath, w.clock.Now().UTC()); err != nil {
		log.WithError(err).WithField("variant", v.Name).Error("Не удалось сохранить время поста")
	}

	if w.announcer != nil {
		if err := w.announcer.Announce(ctx, text); err != nil {
			log.WithError(err).WithField("variant", v.Name).Warn("announce failed")
		}
	}
	return true, nil
}
