// Package config загружает конфигурацию бота из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры,
// файл .env (если есть) подгружается через godotenv.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"

	"github.com/awmitch/GME-bot/internal/features/reputation"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Reddit ---
	RedditClientID     string `envconfig:"REDDIT_CLIENT_ID" required:"true"`
	RedditClientSecret string `envconfig:"REDDIT_CLIENT_SECRET" required:"true"`
	RedditUsername     string `envconfig:"REDDIT_USERNAME" required:"true"`
	RedditPassword     string `envconfig:"REDDIT_PASSWORD" required:"true"`
	RedditUserAgent    string `envconfig:"REDDIT_USER_AGENT" default:"GME-bot/1.0"`
	RedditSubreddit    string `envconfig:"REDDIT_SUBREDDIT" default:"Gamestop_Enthusiasts"`
	// Адреса API переопределяются только в тестах и для прокси
	RedditAuthURL string `envconfig:"REDDIT_AUTH_URL"`
	RedditAPIURL  string `envconfig:"REDDIT_API_URL"`

	// Подпись в конце каждого ответа бота
	BotSignature string `envconfig:"BOT_SIGNATURE" default:"*This is an automated bot. Contact the moderators for help.*"`

	// --- Storage ---
	// Папка с файлами счётчиков и кулдаунов
	DataDir string `envconfig:"DATA_DIR" default:"."`

	// --- Database (необязательный журнал выдач) ---
	DatabaseURL string `envconfig:"DATABASE_URL"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"5"`
	DBMinConns  int32  `envconfig:"DB_MIN_CONNS" default:"0"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"production"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"info"`
	MetricsAddr string `envconfig:"METRICS_ADDR"`

	// --- Rate Limiting ---
	// Reddit разрешает 60 запросов в минуту, оставляем запас
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"55"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"60s"`

	// --- Listeners ---
	StreamPollInterval     time.Duration `envconfig:"STREAM_POLL_INTERVAL" default:"5s"`
	ListenerBackoffInitial time.Duration `envconfig:"LISTENER_BACKOFF_INITIAL" default:"5s"`
	ListenerBackoffMax     time.Duration `envconfig:"LISTENER_BACKOFF_MAX" default:"60s"`

	// --- Reputation ---
	ReputationCooldown          time.Duration `envconfig:"REPUTATION_COOLDOWN" default:"10m"`
	ReputationMinAccountAgeDays int           `envconfig:"REPUTATION_MIN_ACCOUNT_AGE_DAYS" default:"7"`
	ReputationMinCommentKarma   int           `envconfig:"REPUTATION_MIN_COMMENT_KARMA" default:"50"`
	ReputationActivityLookback  int           `envconfig:"REPUTATION_ACTIVITY_LOOKBACK" default:"10"`

	// --- Weekly post ---
	// Как часто проверять, не пора ли публиковать (cron-выражение)
	WeeklyPostSchedule string        `envconfig:"WEEKLY_POST_SCHEDULE" default:"@hourly"`
	WeeklyPostInterval time.Duration `envconfig:"WEEKLY_POST_INTERVAL" default:"168h"`

	// --- Telegram (необязательное дублирование еженедельного поста) ---
	TelegramBotToken   string  `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatIDsRaw string  `envconfig:"TELEGRAM_CHAT_IDS"`
	TelegramChatIDs    []int64 `envconfig:"-"` // заполним вручную

	// --- Feature Flags ---
	FeatureCheersEnabled bool `envconfig:"FEATURE_CHEERS_ENABLED" default:"true"`
	FeatureKudosEnabled  bool `envconfig:"FEATURE_KUDOS_ENABLED" default:"false"`
}

// Rules возвращает пороги проверок выдачи.
func (c *Config) Rules() reputation.Rules {
	return reputation.Rules{
		Cooldown:          c.ReputationCooldown,
		MinAccountAgeDays: c.ReputationMinAccountAgeDays,
		MinCommentKarma:   c.ReputationMinCommentKarma,
		ActivityLookback:  c.ReputationActivityLookback,
	}
}

// Variants возвращает включённые варианты репутации.
func (c *Config) Variants() []reputation.Variant {
	var out []reputation.Variant
	if c.FeatureCheersEnabled {
		out = append(out, reputation.Cheers())
	}
	if c.FeatureKudosEnabled {
		out = append(out, reputation.Kudos())
	}
	return out
}

// TelegramEnabled сообщает, нужно ли дублировать посты в Telegram.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && len(c.TelegramChatIDs) > 0
}

func (c *Config) Validate() error {
	if c.RateLimitRequests <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS должен быть > 0")
	}
	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW должен быть > 0")
	}
	if c.StreamPollInterval <= 0 {
		return fmt.Errorf("STREAM_POLL_INTERVAL должен быть > 0")
	}
	if c.ListenerBackoffInitial <= 0 || c.ListenerBackoffMax < c.ListenerBackoffInitial {
		return fmt.Errorf("некорректные LISTENER_BACKOFF_INITIAL/LISTENER_BACKOFF_MAX")
	}
	if c.ReputationCooldown < 0 || c.ReputationMinAccountAgeDays < 0 || c.ReputationMinCommentKarma < 0 {
		return fmt.Errorf("пороги репутации не могут быть отрицательными")
	}
	if c.ReputationActivityLookback <= 0 {
		return fmt.Errorf("REPUTATION_ACTIVITY_LOOKBACK должен быть > 0")
	}
	if c.WeeklyPostInterval <= 0 {
		return fmt.Errorf("WEEKLY_POST_INTERVAL должен быть > 0")
	}
	if c.DatabaseURL != "" && (c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns) {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if c.TelegramChatIDsRaw != "" && c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_CHAT_IDS задан без TELEGRAM_BOT_TOKEN")
	}
	if len(c.Variants()) == 0 {
		return fmt.Errorf("не включён ни один вариант репутации (FEATURE_CHEERS_ENABLED/FEATURE_KUDOS_ENABLED)")
	}
	return nil
}

// Load читает .env (если есть) и переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("не удалось прочитать .env: %w", err)
		}
		log.Debug("Файл .env не найден, используем переменные окружения")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	ids, err := parseInt64CSV(cfg.TelegramChatIDsRaw)
	if err != nil {
		return nil, fmt.Errorf("TELEGRAM_CHAT_IDS parse: %w", err)
	}
	cfg.TelegramChatIDs = ids

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parseInt64CSV(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad int64 %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}
