package reputation

import (
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/awmitch/GME-bot/internal/common"
	"github.com/awmitch/GME-bot/internal/db/filestore"
)

func TestBadgeText(t *testing.T) {
	tests := []struct {
		name    string
		current string
		token   string
		count   int
		want    string
	}{
		{"empty", "", ":1DFV1:", 1, "(:1DFV1:1)"},
		{"replaces old count", "Diamond Hands (:1DFV1:4)", ":1DFV1:", 5, "Diamond Hands (:1DFV1:5)"},
		{"keeps other text", "Ape (:other:3)", ":1DFV1:", 2, "Ape (:other:3) (:1DFV1:2)"},
		{"emoji token", "HODL (🎖9)", "🎖", 10, "HODL (🎖10)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BadgeText(tt.current, tt.token, tt.count))
		})
	}
}

func TestBadgeText_TruncatesToLimit(t *testing.T) {
	long := strings.Repeat("x", 70)

	got := BadgeText(long, ":1DFV1:", 12)
	assert.Equal(t, MaxBadgeLen, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, " (:1DFV1:12)"))
	assert.Equal(t, strings.Repeat("x", 52)+" (:1DFV1:12)", got)
}

func TestBadgeText_TruncatesByRunes(t *testing.T) {
	long := strings.Repeat("ж", 80)
	got := BadgeText(long, "🎖", 3)
	assert.Equal(t, MaxBadgeLen, utf8.RuneCountInString(got))
	assert.True(t, utf8.ValidString(got))
}

func TestAwardedText(t *testing.T) {
	v := Cheers()
	assert.Equal(t,
		"u/alice has awarded cheers to u/bob! They now have 3 cheers.",
		AwardedText(v, "alice", "bob", 3, ""))
	assert.Equal(t,
		"u/alice has awarded cheers to u/bob! They now have 3 cheers.\n\n\"*great DD*\"",
		AwardedText(v, "alice", "bob", 3, "great DD"))
}

func TestLeaderboardText(t *testing.T) {
	v := Cheers()
	assert.Equal(t, "No cheers have been awarded yet.", LeaderboardText(v, nil))

	top := []filestore.Standing{{Handle: "b", Count: 5}, {Handle: "c", Count: 5}, {Handle: "a", Count: 3}}
	assert.Equal(t,
		"**Cheers Leaderboard:**\n\n1. u/b - 5 cheers\n2. u/c - 5 cheers\n3. u/a - 3 cheers",
		LeaderboardText(v, top))
}

func TestWeeklyPostText(t *testing.T) {
	recipients := []filestore.Standing{{Handle: "bob", Count: 4}}
	givers := []filestore.Standing{{Handle: "alice", Count: 2}}

	text := WeeklyPostText(Cheers(), recipients, givers)
	assert.Contains(t, text, "**Cheers Leaderboard (Recipients):**\n\n1. u/bob - 4 cheers")
	assert.Contains(t, text, "**Top Cheers Givers:**\n\n1. u/alice - 2 cheers awarded")
	assert.Contains(t, text, "- `!cheers` - award cheers to the user you are replying to")

	kudos := WeeklyPostText(Kudos(), recipients, nil)
	assert.NotContains(t, kudos, "Givers")
	assert.NotContains(t, kudos, "replying to")
	assert.Equal(t, "Weekly Kudos Leaderboard and Instructions", WeeklyPostTitle(Kudos()))
}

func TestRejectionText(t *testing.T) {
	v, r := Cheers(), DefaultRules()

	assert.Equal(t, "User u/ghost does not exist on Reddit.",
		RejectionText(v, r, "ghost", common.Reject(common.ErrTargetNotFound)))
	assert.Equal(t, "You cannot award cheers to yourself!",
		RejectionText(v, r, "alice", common.Reject(common.ErrSelfAward)))
	assert.Equal(t, "You can only award cheers once every 10 minutes. Try again in 4m12s.",
		RejectionText(v, r, "bob", &common.Rejection{Reason: common.ErrCooldownActive, Remaining: 252 * time.Second}))
	assert.Equal(t, "Your account must be at least 7 days old to award cheers.",
		RejectionText(v, r, "bob", common.Reject(common.ErrAccountTooYoung)))
	assert.Equal(t, "You need at least 50 comment karma to award cheers.",
		RejectionText(v, r, "bob", common.Reject(common.ErrLowKarma)))
	assert.Equal(t, "Cannot find the user to award cheers to.",
		RejectionText(v, r, "", common.ErrNoTarget))
	assert.Equal(t, UsageText(v), RejectionText(v, r, "", common.ErrInvalidHandle))
	assert.Equal(t, "Could not verify u/bob right now. Please try again later.",
		RejectionText(v, r, "bob", common.ErrCouldNotVerify))
	assert.Equal(t, "Could not verify your account right now. Please try again later.",
		RejectionText(v, r, "bob", fmt.Errorf("%w: profile: timeout", common.ErrAwarderUnverified)))
}

func TestHumanDuration(t *testing.T) {
	assert.Equal(t, "10 minutes", humanDuration(10*time.Minute))
	assert.Equal(t, "1 minute", humanDuration(time.Minute))
	assert.Equal(t, "1 hour", humanDuration(time.Hour))
	assert.Equal(t, "2 hours", humanDuration(2*time.Hour))
}
