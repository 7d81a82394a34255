// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт хранилище, ограничитель, клиент Reddit,
// необязательные журнал в БД и отправку в Telegram, сервисы и слушатели
// вариантов репутации, планировщик и сервер метрик.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/awmitch/GME-bot/internal/bot"
	"github.com/awmitch/GME-bot/internal/bot/filters"
	"github.com/awmitch/GME-bot/internal/bot/middleware"
	"github.com/awmitch/GME-bot/internal/config"
	"github.com/awmitch/GME-bot/internal/db/filestore"
	"github.com/awmitch/GME-bot/internal/db/postgres"
	"github.com/awmitch/GME-bot/internal/features/reputation"
	"github.com/awmitch/GME-bot/internal/jobs"
	"github.com/awmitch/GME-bot/internal/metrics"
	"github.com/awmitch/GME-bot/internal/notify"
	"github.com/awmitch/GME-bot/internal/reddit"
)

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler
	Store     *filestore.Store
	DB        *pgxpool.Pool // nil, если DATABASE_URL не задан
	Metrics   *http.Server  // nil, если METRICS_ADDR не задан
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. Файлы состояния ===
	store, err := filestore.NewStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	// === 2. Клиент Reddit за общим ограничителем ===
	limiter := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow, nil)
	client := reddit.NewClient(reddit.Options{
		ClientID:     cfg.RedditClientID,
		ClientSecret: cfg.RedditClientSecret,
		Username:     cfg.RedditUsername,
		Password:     cfg.RedditPassword,
		UserAgent:    cfg.RedditUserAgent,
		Subreddit:    cfg.RedditSubreddit,
		AuthURL:      cfg.RedditAuthURL,
		APIURL:       cfg.RedditAPIURL,
	}, limiter, nil, nil)

	me, err := client.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка авторизации в Reddit: %w", err)
	}
	log.Infof("Авторизован как u/%s", me)

	a := &App{Store: store}

	// === 3. Журнал выдач в БД (необязательно) ===
	var journal reputation.Journal
	if cfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ошибка миграций: %w", err)
		}
		a.DB = pool
		journal = postgres.NewJournal(pool)
	}

	// === 4. Telegram (необязательно) ===
	var announcer jobs.Announcer
	if cfg.TelegramEnabled() {
		tg, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatIDs)
		if err != nil {
			a.Close()
			return nil, err
		}
		announcer = tg
	}

	// === 5. Варианты репутации ===
	filter := filters.NewEventFilter(me, cfg.RedditSubreddit)
	newStream := func() bot.Stream { return client.Comments() }

	var listeners []*bot.Listener
	var posters []*jobs.WeeklyPoster
	for _, v := range cfg.Variants() {
		service := reputation.NewService(v, cfg.Rules(), client, reputation.OpenStores(store, v), journal, cfg.RedditSubreddit, nil)
		handler := reputation.NewHandler(service, client, cfg.BotSignature)
		listeners = append(listeners, bot.NewListener(v.Name, newStream, handler, filter, cfg.StreamPollInterval, nil))

		if v.WeeklyPost && v.WeeklyFile != "" {
			posters = append(posters, jobs.NewWeeklyPoster(
				service, client, announcer, store.Path(v.WeeklyFile),
				cfg.WeeklyPostInterval, cfg.BotSignature, nil,
			))
		}
		log.WithField("variant", v.Name).Info("Вариант репутации включён")
	}

	a.Bot = bot.New(listeners, bot.Backoff{Initial: cfg.ListenerBackoffInitial, Max: cfg.ListenerBackoffMax}, nil)

	// === 6. Планировщик задач ===
	a.Scheduler = jobs.NewScheduler(cfg.WeeklyPostSchedule, posters)

	// === 7. Метрики ===
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		a.Metrics = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	}

	return a, nil
}

// Run запускает слушателей, планировщик и сервер метрик и ждёт отмены ctx.
func (a *App) Run(ctx context.Context) error {
	if err := a.Scheduler.Start(ctx); err != nil {
		return err
	}
	defer a.Scheduler.Stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Bot.Start(ctx) })

	if a.Metrics != nil {
		g.Go(func() error {
			log.WithField("addr", a.Metrics.Addr).Info("Сервер метрик запущен")
			if err := a.Metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("сервер метрик: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return a.Metrics.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

// Close сбрасывает несохранённые файлы и закрывает соединения.
func (a *App) Close() {
	if err := a.Store.Flush(); err != nil {
		log.WithError(err).Error("Не удалось сохранить файлы состояния при остановке")
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
