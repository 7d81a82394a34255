// Package reputation — validation.go: цепочка проверок попытки выдачи.
package reputation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/awmitch/GME-bot/internal/common"
)

// CooldownSource отдаёт время последней удачной выдачи выдающего.
type CooldownSource interface {
	Last(handle string) (time.Time, bool)
}

// Check — одна проверка. Возвращает nil, *common.Rejection или ошибку,
// обёрнутую в common.ErrCouldNotVerify.
type Check struct {
	Name string
	Run  func(ctx context.Context, c *Candidate, now time.Time) error
}

// Pipeline — упорядоченная цепочка проверок. Первая неудачная прерывает цепочку.
// Побочных эффектов нет: сохранение только после прохождения всей цепочки.
type Pipeline struct {
	checks []Check
}

// NewPipeline собирает проверки в фиксированном порядке:
// существование получателя, активность получателя в сообществе, выдача себе,
// кулдаун, возраст аккаунта, карма за комментарии.
// Первые две делают исходящие запросы.
func NewPipeline(identity Identity, cooldowns CooldownSource, rules Rules, community string) *Pipeline {
	return &Pipeline{checks: []Check{
		{Name: "target_exists", Run: targetExists(identity)},
		{Name: "target_member", Run: targetMember(identity, community, rules.ActivityLookback)},
		{Name: "self_award", Run: notSelf},
		{Name: "cooldown", Run: cooldown(cooldowns, rules.Cooldown)},
		{Name: "account_age", Run: accountAge(rules.MinAccountAgeDays)},
		{Name: "comment_karma", Run: commentKarma(rules.MinCommentKarma)},
	}}
}

// Evaluate прогоняет кандидата через цепочку.
func (p *Pipeline) Evaluate(ctx context.Context, c *Candidate, now time.Time) error {
	for _, check := range p.checks {
		if err := check.Run(ctx, c, now); err != nil {
			return err
		}
	}
	return nil
}

// Names возвращает имена проверок по порядку.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.checks))
	for i, c := range p.checks {
		names[i] = c.Name
	}
	return names
}

func targetExists(identity Identity) func(context.Context, *Candidate, time.Time) error {
	return func(ctx context.Context, c *Candidate, _ time.Time) error {
		ok, err := identity.Exists(ctx, common.StripHandlePrefix(c.TargetHandleRaw))
		if err != nil {
			return fmt.Errorf("%w: exists: %v", common.ErrCouldNotVerify, err)
		}
		if !ok {
			return common.Reject(common.ErrTargetNotFound)
		}
		return nil
	}
}

func targetMember(identity Identity, community string, lookback int) func(context.Context, *Candidate, time.Time) error {
	return func(ctx context.Context, c *Candidate, _ time.Time) error {
		subs, err := identity.RecentActivity(ctx, common.StripHandlePrefix(c.TargetHandleRaw), lookback)
		if err != nil {
			return fmt.Errorf("%w: activity: %v", common.ErrCouldNotVerify, err)
		}
		for _, s := range subs {
			if strings.EqualFold(s, community) {
				return nil
			}
		}
		return common.Reject(common.ErrTargetNotMember)
	}
}

func notSelf(_ context.Context, c *Candidate, _ time.Time) error {
	if common.SameHandle(c.AwarderHandle, c.TargetHandleRaw) {
		return common.Reject(common.ErrSelfAward)
	}
	return nil
}

func cooldown(cooldowns CooldownSource, window time.Duration) func(context.Context, *Candidate, time.Time) error {
	return func(_ context.Context, c *Candidate, now time.Time) error {
		last, ok := cooldowns.Last(c.AwarderHandle)
		if !ok {
			return nil
		}
		if elapsed := now.Sub(last); elapsed < window {
			return &common.Rejection{Reason: common.ErrCooldownActive, Remaining: window - elapsed}
		}
		return nil
	}
}

func accountAge(minDays int) func(context.Context, *Candidate, time.Time) error {
	return func(_ context.Context, c *Candidate, _ time.Time) error {
		if c.AwarderAccountAgeDays < minDays {
			return common.Reject(common.ErrAccountTooYoung)
		}
		return nil
	}
}

func commentKarma(minKarma int) func(context.Context, *Candidate, time.Time) error {
	return func(_ context.Context, c *Candidate, _ time.Time) error {
		if c.AwarderCommentKarma < minKarma {
			return common.Reject(common.ErrLowKarma)
		}
		return nil
	}
}
