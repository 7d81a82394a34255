// Package reputation реализует систему репутации: выдачу очков командой,
// проверки против злоупотреблений, счётчики и плашку с числом очков.
//
// Cheers и kudos — один и тот же механизм, различаются только настройками Variant.
package reputation

import (
	"context"
	"time"
)

// Variant описывает один вид репутации.
type Variant struct {
	Name       string // имя для логов и метрик: "cheers"
	Keyword    string // команда в тексте: "!cheers"
	Unit       string // слово в ответах: "cheers"
	BadgeToken string // метка счётчика в плашке: ":1DFV1:" → "(:1DFV1:12)"

	LedgerFile    string // полученные очки
	GivenFile     string // выданные очки (если TrackGiven)
	CooldownFile  string // время последней выдачи по выдающему
	ProcessedFile string // id уже обработанных команд
	WeeklyFile    string // время последнего еженедельного поста

	ReasonEnabled       bool // текст после имени — причина, её цитируем в ответе
	TrackGiven          bool // считать, сколько выдал каждый
	RequireHandlePrefix bool // получатель только в виде u/имя
	WeeklyPost          bool // еженедельный пост с таблицей лидеров
}

// Rules — пороги проверок, общие для всех вариантов.
type Rules struct {
	Cooldown          time.Duration // между двумя выдачами одного выдающего
	MinAccountAgeDays int
	MinCommentKarma   int
	ActivityLookback  int // сколько последних постов и комментариев смотреть
}

// DefaultRules — пороги по умолчанию.
func DefaultRules() Rules {
	return Rules{
		Cooldown:          10 * time.Minute,
		MinAccountAgeDays: 7,
		MinCommentKarma:   50,
		ActivityLookback:  10,
	}
}

// Event — входящее сообщение из ленты комментариев.
type Event struct {
	ID        string // полный id сообщения (t1_…), на него отвечаем
	Author    string // "" — автор удалён
	Body      string
	Parent    string // полный id родителя (t1_… или t3_…)
	Subreddit string
	Created   time.Time
}

// CommandKind — вид подкоманды.
type CommandKind int

const (
	CommandAward CommandKind = iota // выдать очко
	CommandSelf                     // "me": сколько у меня
	CommandTop                      // "top": таблица лидеров
)

func (k CommandKind) String() string {
	switch k {
	case CommandSelf:
		return "self"
	case CommandTop:
		return "top"
	default:
		return "award"
	}
}

// Command — разобранная команда.
type Command struct {
	Kind   CommandKind
	Target string // как написано, может быть пустым (тогда — автор родителя)
	Reason string
}

// Profile — данные аккаунта выдающего.
type Profile struct {
	Handle       string
	Created      time.Time
	CommentKarma int
}

// AccountAgeDays возвращает возраст аккаунта в полных днях на момент now.
func (p Profile) AccountAgeDays(now time.Time) int {
	if p.Created.IsZero() || now.Before(p.Created) {
		return 0
	}
	return int(now.Sub(p.Created) / (24 * time.Hour))
}

// Candidate — попытка выдачи, собранная из одной команды. Не сохраняется.
type Candidate struct {
	AwarderHandle         string
	AwarderAccountAgeDays int
	AwarderCommentKarma   int
	TargetHandleRaw       string
	ReasonText            string
	Source                Event
}

// Badge — плашка пользователя в сообществе.
type Badge struct {
	Text  string
	Class string
}

// Identity отвечает на вопросы об аккаунтах. Каждый вызов — исходящий запрос.
type Identity interface {
	Exists(ctx context.Context, handle string) (bool, error)
	Profile(ctx context.Context, handle string) (Profile, error)
	// RecentActivity возвращает сообщества последних n постов и n комментариев.
	RecentActivity(ctx context.Context, handle string, n int) ([]string, error)
}

// Badges читает и ставит плашки.
type Badges interface {
	Badge(ctx context.Context, handle string) (Badge, error)
	SetBadge(ctx context.Context, handle string, badge Badge) error
}

// Replier отвечает на сообщения и находит автора родителя.
type Replier interface {
	Reply(ctx context.Context, ev Event, text string) error
	// ParentAuthor возвращает автора родительского сообщения ("" — удалён).
	ParentAuthor(ctx context.Context, ev Event) (string, error)
}

// Platform — всё, что нужно от платформы для выдачи репутации.
type Platform interface {
	Identity
	Badges
	Replier
}

// AwardRecord — запись журнала выдач.
type AwardRecord struct {
	Variant string
	EventID string
	Awarder string
	Target  string
	Reason  string
	At      time.Time
}

// Journal — дополнительный журнал выдач (например, в PostgreSQL).
type Journal interface {
	Record(ctx context.Context, rec AwardRecord) error
}

type nopJournal struct{}

func (nopJournal) Record(context.Context, AwardRecord) error { return nil }
