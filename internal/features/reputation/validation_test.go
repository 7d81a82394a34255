package reputation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awmitch/GME-bot/internal/common"
)

type fakeCooldowns map[string]time.Time

func (f fakeCooldowns) Last(handle string) (time.Time, bool) {
	t, ok := f[common.NormalizeHandle(handle)]
	return t, ok
}

var validationNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func validCandidate() *Candidate {
	return &Candidate{
		AwarderHandle:         "Alice",
		AwarderAccountAgeDays: 30,
		AwarderCommentKarma:   100,
		TargetHandleRaw:       "bob",
	}
}

func newValidationPipeline(cooldowns fakeCooldowns) (*Pipeline, *fakePlatform) {
	p := newFakePlatform()
	p.addUser("alice", validationNow, 30, 100)
	p.addUser("bob", validationNow, 30, 100)
	return NewPipeline(p, cooldowns, DefaultRules(), testCommunity), p
}

func TestPipeline_Order(t *testing.T) {
	pipe, _ := newValidationPipeline(fakeCooldowns{})
	assert.Equal(t, []string{
		"target_exists", "target_member", "self_award", "cooldown", "account_age", "comment_karma",
	}, pipe.Names())
}

func TestPipeline_Accepts(t *testing.T) {
	pipe, _ := newValidationPipeline(fakeCooldowns{})
	assert.NoError(t, pipe.Evaluate(context.Background(), validCandidate(), validationNow))
}

func TestPipeline_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Candidate, p *fakePlatform)
		want   error
	}{
		{"unknown target", func(c *Candidate, _ *fakePlatform) { c.TargetHandleRaw = "ghost" }, common.ErrTargetNotFound},
		{"target not in community", func(_ *Candidate, p *fakePlatform) { p.activity["bob"] = []string{"stocks"} }, common.ErrTargetNotMember},
		{"self", func(c *Candidate, _ *fakePlatform) { c.TargetHandleRaw = "u/ALICE" }, common.ErrSelfAward},
		{"young account", func(c *Candidate, _ *fakePlatform) { c.AwarderAccountAgeDays = 6 }, common.ErrAccountTooYoung},
		{"low karma", func(c *Candidate, _ *fakePlatform) { c.AwarderCommentKarma = 49 }, common.ErrLowKarma},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipe, p := newValidationPipeline(fakeCooldowns{})
			c := validCandidate()
			tt.mutate(c, p)

			err := pipe.Evaluate(context.Background(), c, validationNow)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, common.IsRejection(err))
		})
	}
}

func TestPipeline_ThresholdsAreInclusive(t *testing.T) {
	pipe, _ := newValidationPipeline(fakeCooldowns{})
	c := validCandidate()
	c.AwarderAccountAgeDays = 7
	c.AwarderCommentKarma = 50
	assert.NoError(t, pipe.Evaluate(context.Background(), c, validationNow))
}

func TestPipeline_Cooldown(t *testing.T) {
	last := validationNow
	pipe, _ := newValidationPipeline(fakeCooldowns{"alice": last})

	err := pipe.Evaluate(context.Background(), validCandidate(), last.Add(599*time.Second))
	var rej *common.Rejection
	require.ErrorAs(t, err, &rej)
	assert.ErrorIs(t, err, common.ErrCooldownActive)
	assert.Equal(t, time.Second, rej.Remaining)

	assert.NoError(t, pipe.Evaluate(context.Background(), validCandidate(), last.Add(601*time.Second)))
	assert.NoError(t, pipe.Evaluate(context.Background(), validCandidate(), last.Add(600*time.Second)))
}

func TestPipeline_FirstFailureWins(t *testing.T) {
	pipe, _ := newValidationPipeline(fakeCooldowns{"alice": validationNow})
	c := validCandidate()
	c.TargetHandleRaw = "alice"
	c.AwarderCommentKarma = 0

	// Выдача себе проверяется раньше кулдауна и кармы.
	err := pipe.Evaluate(context.Background(), c, validationNow)
	assert.ErrorIs(t, err, common.ErrSelfAward)
}

func TestPipeline_LookupFailureIsTransient(t *testing.T) {
	pipe, p := newValidationPipeline(fakeCooldowns{})
	p.existsErr = errPlatformDown

	err := pipe.Evaluate(context.Background(), validCandidate(), validationNow)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrCouldNotVerify)
	assert.False(t, common.IsRejection(err))
	assert.False(t, errors.Is(err, common.ErrTargetNotFound))
}
