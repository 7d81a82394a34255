// Package reputation — service.go содержит бизнес-логику выдачи репутации.
package reputation

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/awmitch/GME-bot/internal/common"
	"github.com/awmitch/GME-bot/internal/db/filestore"
)

// Stores — файлы состояния одного варианта.
type Stores struct {
	Ledger    *filestore.Ledger
	Given     *filestore.Ledger // nil, если TrackGiven выключен
	Cooldowns *filestore.Cooldowns
	Processed *filestore.Processed
}

// OpenStores открывает файлы варианта в store.
// Варианты с одинаковыми именами файлов получают общие экземпляры.
func OpenStores(store *filestore.Store, v Variant) Stores {
	s := Stores{
		Ledger:    store.Ledger(v.LedgerFile),
		Cooldowns: store.Cooldowns(v.CooldownFile),
		Processed: store.Processed(v.ProcessedFile),
	}
	if v.TrackGiven && v.GivenFile != "" {
		s.Given = store.Ledger(v.GivenFile)
	}
	return s
}

// Result — итог удачной выдачи.
type Result struct {
	Awarder string // как написано на платформе
	Target  string // без префикса u/, как написано в команде
	Count   int    // новый счётчик получателя
	Reason  string
}

// Service управляет выдачей репутации одного варианта.
type Service struct {
	variant  Variant
	rules    Rules
	platform Platform
	stores   Stores
	journal  Journal
	pipeline *Pipeline
	clock    clockwork.Clock
}

// NewService создаёт сервис варианта. journal может быть nil.
func NewService(v Variant, rules Rules, platform Platform, stores Stores, journal Journal, community string, clock clockwork.Clock) *Service {
	if journal == nil {
		journal = nopJournal{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		variant:  v,
		rules:    rules,
		platform: platform,
		stores:   stores,
		journal:  journal,
		pipeline: NewPipeline(platform, stores.Cooldowns, rules, community),
		clock:    clock,
	}
}

// Variant возвращает настройки варианта.
func (s *Service) Variant() Variant { return s.variant }

// Rules возвращает пороги проверок.
func (s *Service) Rules() Rules { return s.rules }

// Award выполняет выдачу по команде ev.
//
// Порядок записи после прохождения проверок: кулдаун (атомарно с повторной
// проверкой), журнал обработанных
// команд, счётчик получателя, счётчик выдающего, журнал в БД. Сбой посередине
// в худшем случае съедает кулдаун без начисления, но никогда не начисляет дважды.
//
// Ошибки записи файлов логируются и не прерывают выдачу: значение в памяти главное.
func (s *Service) Award(ctx context.Context, ev Event, cmd Command) (Result, error) {
	target, err := s.resolveTarget(ctx, ev, cmd)
	if err != nil {
		return Result{Target: target}, err
	}

	profile, err := s.platform.Profile(ctx, ev.Author)
	if err != nil {
		return Result{Target: target}, fmt.Errorf("%w: profile: %v", common.ErrAwarderUnverified, err)
	}

	now := s.clock.Now().UTC()
	c := &Candidate{
		AwarderHandle:         ev.Author,
		AwarderAccountAgeDays: profile.AccountAgeDays(now),
		AwarderCommentKarma:   profile.CommentKarma,
		TargetHandleRaw:       target,
		ReasonText:            cmd.Reason,
		Source:                ev,
	}
	if err := s.pipeline.Evaluate(ctx, c, now); err != nil {
		return Result{Target: target}, err
	}

	// Проверка кулдауна в цепочке могла устареть: параллельная выдача того же
	// выдающего успела пройти. Claim проверяет и записывает под одним локом.
	remaining, ok, err := s.stores.Cooldowns.Claim(c.AwarderHandle, now, s.rules.Cooldown)
	if !ok {
		return Result{Target: target}, &common.Rejection{Reason: common.ErrCooldownActive, Remaining: remaining}
	}

	count := s.commit(ctx, c, now, err)
	return Result{Awarder: ev.Author, Target: target, Count: count, Reason: cmd.Reason}, nil
}

// commit записывает выдачу после занятого кулдауна. claimErr — ошибка записи кулдауна.
func (s *Service) commit(ctx context.Context, c *Candidate, now time.Time, claimErr error) int {
	st := s.stores
	fields := log.Fields{
		"variant":  s.variant.Name,
		"event_id": c.Source.ID,
		"awarder":  c.AwarderHandle,
		"target":   c.TargetHandleRaw,
	}

	s.persisted(claimErr, fields)
	_, err := st.Processed.Mark(c.Source.ID, now)
	s.persisted(err, fields)

	count, err := st.Ledger.Increment(c.TargetHandleRaw)
	s.persisted(err, fields)

	if st.Given != nil {
		_, err := st.Given.Increment(c.AwarderHandle)
		s.persisted(err, fields)
	}

	rec := AwardRecord{
		Variant: s.variant.Name,
		EventID: c.Source.ID,
		Awarder: common.NormalizeHandle(c.AwarderHandle),
		Target:  common.NormalizeHandle(c.TargetHandleRaw),
		Reason:  c.ReasonText,
		At:      now,
	}
	if err := s.journal.Record(ctx, rec); err != nil {
		log.WithFields(fields).WithError(err).Warn("award journal write failed")
	}

	return count
}

// persisted логирует сбой записи с контекстом команды. Сам сбой уже
// залогирован и посчитан хранилищем, выдача продолжается.
func (s *Service) persisted(err error, fields log.Fields) {
	if err == nil {
		return
	}
	log.WithFields(fields).WithError(err).Warn("award state not persisted, will retry on next write")
}

// resolveTarget возвращает имя получателя без префикса.
func (s *Service) resolveTarget(ctx context.Context, ev Event, cmd Command) (string, error) {
	raw := cmd.Target
	if raw == "" {
		if s.variant.RequireHandlePrefix {
			return "", common.ErrInvalidHandle
		}
		author, err := s.platform.ParentAuthor(ctx, ev)
		if err != nil {
			return "", fmt.Errorf("%w: parent: %v", common.ErrCouldNotVerify, err)
		}
		if author == "" {
			return "", common.ErrNoTarget
		}
		return author, nil
	}

	if s.variant.RequireHandlePrefix && !common.HasHandlePrefix(raw) {
		return "", common.ErrInvalidHandle
	}
	handle := common.StripHandlePrefix(raw)
	if !common.IsValidHandle(handle) {
		return handle, common.ErrInvalidHandle
	}
	return handle, nil
}

// Count возвращает счётчик пользователя.
func (s *Service) Count(handle string) int {
	return s.stores.Ledger.Get(handle)
}

// Top возвращает n лидеров по полученной репутации.
func (s *Service) Top(n int) []filestore.Standing {
	return s.stores.Ledger.TopN(n)
}

// TopGiven возвращает n лидеров по выданной репутации (nil, если не считаем).
func (s *Service) TopGiven(n int) []filestore.Standing {
	if s.stores.Given == nil {
		return nil
	}
	return s.stores.Given.TopN(n)
}

// Handled сообщает, обрабатывалась ли команда ev.
func (s *Service) Handled(ev Event) bool {
	return s.stores.Processed.Seen(ev.ID)
}

// MarkHandled записывает команду как обработанную (запросы и отказы).
// Для удачной выдачи это уже сделал Award.
func (s *Service) MarkHandled(ev Event) {
	if _, err := s.stores.Processed.Mark(ev.ID, s.clock.Now().UTC()); err != nil {
		s.persisted(err, log.Fields{"variant": s.variant.Name, "event_id": ev.ID})
	}
}

// RefreshBadge обновляет плашку получателя под новый счётчик.
// Ошибки возвращаются вызывающему, который их логирует.
func (s *Service) RefreshBadge(ctx context.Context, handle string, count int) error {
	current, err := s.platform.Badge(ctx, handle)
	if err != nil {
		return fmt.Errorf("read badge: %w", err)
	}
	next := Badge{Text: BadgeText(current.Text, s.variant.BadgeToken, count), Class: current.Class}
	if err := s.platform.SetBadge(ctx, handle, next); err != nil {
		return fmt.Errorf("set badge: %w", err)
	}
	return nil
}
