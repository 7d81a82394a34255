package common

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripHandlePrefix(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"u/Alice", "Alice"},
		{"/u/Alice", "Alice"},
		{"U/Alice", "Alice"},
		{"ursula", "ursula"},
		{"  u/bob ", "bob"},
		{"u/", "u/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripHandlePrefix(tt.in), tt.in)
	}
}

func TestNormalizeAndSameHandle(t *testing.T) {
	assert.Equal(t, "alice", NormalizeHandle("/u/ALICE"))
	assert.True(t, SameHandle("u/Alice", "alice"))
	assert.False(t, SameHandle("alice", "alice2"))
}

func TestHasHandlePrefix(t *testing.T) {
	assert.True(t, HasHandlePrefix("u/bob"))
	assert.True(t, HasHandlePrefix("/u/bob"))
	assert.False(t, HasHandlePrefix("bob"))
	assert.False(t, HasHandlePrefix("u/"))
}

func TestIsValidHandle(t *testing.T) {
	assert.True(t, IsValidHandle("Actual-Captain_6649"))
	assert.False(t, IsValidHandle("ab"))
	assert.False(t, IsValidHandle("has space"))
	assert.False(t, IsValidHandle("waaaaaaaaaaaaaaaaaaay_too_long"))
}

func TestFormatRemaining(t *testing.T) {
	assert.Equal(t, "4m12s", FormatRemaining(252*time.Second))
	assert.Equal(t, "1m05s", FormatRemaining(65*time.Second))
	assert.Equal(t, "59s", FormatRemaining(59*time.Second))
	assert.Equal(t, "1s", FormatRemaining(300*time.Millisecond))
}

func TestStampRoundTrip(t *testing.T) {
	at := time.Date(2024, 2, 29, 23, 59, 58, 0, time.FixedZone("X", 3*3600))
	s := FormatStamp(at)
	assert.Equal(t, "2024-02-29 20:59:58", s)

	got, err := ParseStamp(s)
	require.NoError(t, err)
	assert.True(t, got.Equal(at))
	assert.Equal(t, time.UTC, got.Location())
}

func TestStamp_KeepsFractionalSeconds(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 900_000_000, time.UTC)
	s := FormatStamp(at)
	assert.Equal(t, "2024-06-01 12:00:00.9", s)

	got, err := ParseStamp(s)
	require.NoError(t, err)
	assert.True(t, got.Equal(at))

	legacy, err := ParseStamp("2024-05-01 12:30:45")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC), legacy)
}

func TestRejection(t *testing.T) {
	err := fmt.Errorf("check: %w", &Rejection{Reason: ErrCooldownActive, Remaining: 90 * time.Second})

	assert.True(t, errors.Is(err, ErrCooldownActive))
	assert.True(t, IsRejection(err))
	assert.Contains(t, err.Error(), "1m30s left")

	assert.False(t, IsRejection(ErrCouldNotVerify))
	assert.Equal(t, "cannot award to yourself", Reject(ErrSelfAward).Error())
}
