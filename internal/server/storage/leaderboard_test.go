package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaderboard_RecordAndRank(t *testing.T) {
	client, mr := newTestClient(t)
	lm := NewLeaderboardManager(client)
	lm.now = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	require.NoError(t, lm.RecordWin(ctx, "Alice"))
	require.NoError(t, lm.RecordWin(ctx, "Alice", "Bob"))
	require.NoError(t, lm.RecordWin(ctx, "Carol"))
	require.NoError(t, lm.RecordWin(ctx, "Alice"))

	entries, err := lm.GetLeaderboard(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, LeaderboardEntry{Rank: 1, Name: "Alice", Wins: 3}, entries[0])
	assert.Equal(t, 2, entries[1].Rank)
	assert.Equal(t, int64(1), entries[1].Wins)

	daily, err := lm.GetDailyLeaderboard(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, daily, 3)
	assert.Positive(t, mr.TTL("leaderboard:daily:2026-05-01"))

	wins, err := lm.GetWins(ctx, "Bob")
	require.NoError(t, err)
	assert.Equal(t, int64(1), wins)

	wins, err = lm.GetWins(ctx, "Nobody")
	require.NoError(t, err)
	assert.Zero(t, wins)
}

func TestLeaderboard_Disabled(t *testing.T) {
	lm := NewLeaderboardManager(nil)
	ctx := context.Background()

	assert.False(t, lm.Enabled())
	assert.NoError(t, lm.RecordWin(ctx, "Alice"))

	entries, err := lm.GetLeaderboard(ctx, 10)
	assert.NoError(t, err)
	assert.Empty(t, entries)
}
