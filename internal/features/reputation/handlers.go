// Package reputation — handlers.go обрабатывает команды варианта из ленты.
package reputation

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/awmitch/GME-bot/internal/common"
	"github.com/awmitch/GME-bot/internal/metrics"
)

// Handler обрабатывает команды одного варианта.
type Handler struct {
	service   *Service
	detector  *Detector
	replier   Replier
	signature string
}

// NewHandler создаёт обработчик. signature дописывается к каждому ответу.
func NewHandler(service *Service, replier Replier, signature string) *Handler {
	return &Handler{
		service:   service,
		detector:  NewDetector(service.Variant()),
		replier:   replier,
		signature: signature,
	}
}

// Handle обрабатывает одно сообщение. Возвращает false, если команды варианта в нём нет.
func (h *Handler) Handle(ctx context.Context, ev Event) bool {
	cmd, ok := h.detector.Detect(ev.Body)
	if !ok {
		return false
	}

	v := h.service.Variant()
	entry := log.WithFields(log.Fields{
		"variant":  v.Name,
		"event_id": ev.ID,
		"awarder":  ev.Author,
		"command":  cmd.Kind.String(),
	})

	if h.service.Handled(ev) {
		entry.Debug("command already handled, skipping")
		metrics.AwardsTotal.WithLabelValues(v.Name, metrics.OutcomeSkipped).Inc()
		return true
	}

	switch cmd.Kind {
	case CommandSelf:
		h.reply(ctx, ev, SelfCountText(v, h.service.Count(ev.Author)))
		h.service.MarkHandled(ev)
		metrics.AwardsTotal.WithLabelValues(v.Name, metrics.OutcomeQuery).Inc()
	case CommandTop:
		h.reply(ctx, ev, LeaderboardText(v, h.service.Top(LeaderboardSize)))
		h.service.MarkHandled(ev)
		metrics.AwardsTotal.WithLabelValues(v.Name, metrics.OutcomeQuery).Inc()
	default:
		h.handleAward(ctx, ev, cmd, entry)
	}
	return true
}

func (h *Handler) handleAward(ctx context.Context, ev Event, cmd Command, entry *log.Entry) {
	v := h.service.Variant()

	res, err := h.service.Award(ctx, ev, cmd)
	if err != nil {
		entry = entry.WithField("target", res.Target)
		if errors.Is(err, common.ErrCouldNotVerify) {
			entry.WithError(err).Warn("award not verified")
			metrics.AwardsTotal.WithLabelValues(v.Name, metrics.OutcomeError).Inc()
		} else {
			entry.WithField("reason", err.Error()).Info("award rejected")
			metrics.AwardsTotal.WithLabelValues(v.Name, metrics.OutcomeRejected).Inc()
		}
		h.reply(ctx, ev, RejectionText(v, h.service.Rules(), res.Target, err))
		h.service.MarkHandled(ev)
		return
	}

	entry.WithFields(log.Fields{"target": res.Target, "count": res.Count}).Info("award accepted")
	metrics.AwardsTotal.WithLabelValues(v.Name, metrics.OutcomeAccepted).Inc()

	if err := h.service.RefreshBadge(ctx, res.Target, res.Count); err != nil {
		entry.WithError(err).WithField("target", res.Target).Error("badge update failed")
	}

	reason := ""
	if v.ReasonEnabled {
		reason = res.Reason
	}
	h.reply(ctx, ev, AwardedText(v, res.Awarder, res.Target, res.Count, reason))
}

func (h *Handler) reply(ctx context.Context, ev Event, text string) {
	if h.signature != "" {
		text += "\n\n---\n" + h.signature
	}
	if err := h.replier.Reply(ctx, ev, text); err != nil {
		log.WithFields(log.Fields{
			"variant":  h.service.Variant().Name,
			"event_id": ev.ID,
		}).WithError(err).Error("Ошибка отправки ответа")
	}
}
