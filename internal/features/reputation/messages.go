// Package reputation — messages.go формирует тексты ответов и плашек.
package reputation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/awmitch/GME-bot/internal/common"
	"github.com/awmitch/GME-bot/internal/db/filestore"
)

// MaxBadgeLen — лимит длины плашки на платформе (в символах).
const MaxBadgeLen = 64

// LeaderboardSize — сколько строк в ответе на "top".
const LeaderboardSize = 5

// BadgeText убирает из текущей плашки старую метку счётчика и дописывает новую.
// Если результат длиннее MaxBadgeLen, обрезается старый текст, метка остаётся целой.
//
// Пример (token ":1DFV1:"):
//
//	BadgeText("Diamond Hands (:1DFV1:4)", ":1DFV1:", 5) → "Diamond Hands (:1DFV1:5)"
func BadgeText(current, token string, count int) string {
	strip := regexp.MustCompile(`\(` + regexp.QuoteMeta(token) + `\d+\)$`)
	base := strings.TrimSpace(strip.ReplaceAllString(strings.TrimSpace(current), ""))

	suffix := fmt.Sprintf("(%s%d)", token, count)
	text := strings.TrimSpace(base + " " + suffix)
	if utf8.RuneCountInString(text) <= MaxBadgeLen {
		return text
	}

	allowed := MaxBadgeLen - utf8.RuneCountInString(" "+suffix)
	if allowed <= 0 {
		return suffix
	}
	base = strings.TrimRight(string([]rune(base)[:allowed]), " ")
	return strings.TrimSpace(base + " " + suffix)
}

// AwardedText — ответ на удачную выдачу.
func AwardedText(v Variant, awarder, target string, count int, reason string) string {
	text := fmt.Sprintf("u/%s has awarded %s to u/%s! They now have %d %s.",
		awarder, v.Unit, target, count, v.Unit)
	if reason != "" {
		text += fmt.Sprintf("\n\n\"*%s*\"", reason)
	}
	return text
}

// SelfCountText — ответ на "me".
func SelfCountText(v Variant, count int) string {
	return fmt.Sprintf("You have %d %s.", count, v.Unit)
}

// LeaderboardText — ответ на "top".
func LeaderboardText(v Variant, top []filestore.Standing) string {
	if len(top) == 0 {
		return fmt.Sprintf("No %s have been awarded yet.", v.Unit)
	}
	return fmt.Sprintf("**%s Leaderboard:**\n\n%s", title(v.Unit), standings(top, v.Unit))
}

// WeeklyPostTitle — заголовок еженедельного поста.
func WeeklyPostTitle(v Variant) string {
	return fmt.Sprintf("Weekly %s Leaderboard and Instructions", title(v.Unit))
}

// WeeklyPostText — текст еженедельного поста: получатели, выдающие и справка.
func WeeklyPostText(v Variant, recipients, givers []filestore.Standing) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s Leaderboard (Recipients):**\n\n%s\n\n", title(v.Unit), standings(recipients, v.Unit))
	if v.TrackGiven {
		fmt.Fprintf(&b, "**Top %s Givers:**\n\n%s\n\n", title(v.Unit), standings(givers, v.Unit+" awarded"))
	}
	fmt.Fprintf(&b, "You can award %s to fellow community members by commenting:\n\n", v.Unit)
	fmt.Fprintf(&b, "- `%s u/username` - award %s to a user\n", v.Keyword, v.Unit)
	fmt.Fprintf(&b, "- `%s me` - see how many %s you have\n", v.Keyword, v.Unit)
	fmt.Fprintf(&b, "- `%s top` - see the top users with the most %s\n", v.Keyword, v.Unit)
	if !v.RequireHandlePrefix {
		fmt.Fprintf(&b, "- `%s` - award %s to the user you are replying to\n", v.Keyword, v.Unit)
	}
	fmt.Fprintf(&b, "\n%s help recognize and appreciate valuable contributions in our community!", title(v.Unit))
	return b.String()
}

// UsageText — подсказка при неверном имени получателя.
func UsageText(v Variant) string {
	return fmt.Sprintf("Invalid username format. Please use 'u/username' to mention a Reddit user.\n\n"+
		"Other commands include:\n\n"+
		"`%s me` - see your own %s\n\n"+
		"`%s top` - see the leaderboard", v.Keyword, v.Unit, v.Keyword)
}

// RejectionText переводит отказ или ошибку проверки в ответ пользователю.
func RejectionText(v Variant, rules Rules, target string, err error) string {
	var rej *common.Rejection
	errors.As(err, &rej)

	switch {
	case errors.Is(err, common.ErrTargetNotFound):
		return fmt.Sprintf("User u/%s does not exist on Reddit.", target)
	case errors.Is(err, common.ErrTargetNotMember):
		return fmt.Sprintf("User u/%s is not active in this subreddit.", target)
	case errors.Is(err, common.ErrSelfAward):
		return fmt.Sprintf("You cannot award %s to yourself!", v.Unit)
	case errors.Is(err, common.ErrCooldownActive):
		text := fmt.Sprintf("You can only award %s once every %s.", v.Unit, humanDuration(rules.Cooldown))
		if rej != nil && rej.Remaining > 0 {
			text += fmt.Sprintf(" Try again in %s.", common.FormatRemaining(rej.Remaining))
		}
		return text
	case errors.Is(err, common.ErrAccountTooYoung):
		return fmt.Sprintf("Your account must be at least %d days old to award %s.", rules.MinAccountAgeDays, v.Unit)
	case errors.Is(err, common.ErrLowKarma):
		return fmt.Sprintf("You need at least %d comment karma to award %s.", rules.MinCommentKarma, v.Unit)
	case errors.Is(err, common.ErrNoTarget):
		return fmt.Sprintf("Cannot find the user to award %s to.", v.Unit)
	case errors.Is(err, common.ErrInvalidHandle):
		return UsageText(v)
	case errors.Is(err, common.ErrAwarderUnverified):
		return "Could not verify your account right now. Please try again later."
	default:
		if target == "" {
			return "Could not verify the user right now. Please try again later."
		}
		return fmt.Sprintf("Could not verify u/%s right now. Please try again later.", target)
	}
}

func standings(rows []filestore.Standing, unit string) string {
	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = fmt.Sprintf("%d. u/%s - %d %s", i+1, r.Handle, r.Count, unit)
	}
	return strings.Join(lines, "\n")
}

func title(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return strings.ToUpper(string(r)) + s[size:]
}

// humanDuration: 10m → "10 minutes", 1h → "1 hour".
func humanDuration(d time.Duration) string {
	m := int(d.Minutes())
	switch {
	case m >= 60 && m%60 == 0:
		if m == 60 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", m/60)
	case m == 1:
		return "1 minute"
	default:
		return fmt.Sprintf("%d minutes", m)
	}
}
