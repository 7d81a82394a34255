// Package metrics описывает метрики Prometheus бота.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Исходы обработки команды
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
	OutcomeQuery    = "query"
	OutcomeSkipped  = "skipped"
)

var (
	// AwardsTotal считает обработанные команды по варианту и исходу
	AwardsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reputation_awards_total",
			Help: "Handled reputation commands by variant and outcome",
		},
		[]string{"variant", "outcome"},
	)

	// RateLimitWait — сколько вызовы ждали в ограничителе
	RateLimitWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reputation_ratelimit_wait_seconds",
			Help:    "Time outbound calls spent waiting for the rate limiter",
			Buckets: []float64{.01, .1, .5, 1, 5, 15, 30, 60},
		},
	)

	// ListenerRestarts считает перезапуски слушателей после сбоя
	ListenerRestarts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reputation_listener_restarts_total",
			Help: "Supervised listener restarts by variant",
		},
		[]string{"variant"},
	)

	// PersistErrors считает неудачные записи файлов состояния
	PersistErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reputation_persist_errors_total",
			Help: "Failed state file flushes by file",
		},
		[]string{"file"},
	)
)

// Handler отдаёт метрики для /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
