package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Redis key
	leaderboardKey   = "leaderboard:wins"
	dailyLeaderboard = "leaderboard:daily:"

	dailyExpiration = 48 * time.Hour
)

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Rank int
	Name string
	Wins int64
}

// LeaderboardManager 胜场排行榜，按玩家名统计
type LeaderboardManager struct {
	redis *redis.Client
	now   func() time.Time
}

// NewLeaderboardManager 创建排行榜管理器，client 为 nil 时为空操作
func NewLeaderboardManager(client *redis.Client) *LeaderboardManager {
	return &LeaderboardManager{redis: client, now: time.Now}
}

// Enabled 是否可用
func (lm *LeaderboardManager) Enabled() bool {
	return lm != nil && lm.redis != nil
}

// RecordWin 记录一次胜利（并列获胜者各记一次）
func (lm *LeaderboardManager) RecordWin(ctx context.Context, names ...string) error {
	if !lm.Enabled() || len(names) == 0 {
		return nil
	}

	dailyKey := dailyLeaderboard + lm.now().Format("2006-01-02")
	pipe := lm.redis.TxPipeline()
	for _, name := range names {
		pipe.ZIncrBy(ctx, leaderboardKey, 1, name)
		pipe.ZIncrBy(ctx, dailyKey, 1, name)
	}
	pipe.Expire(ctx, dailyKey, dailyExpiration)
	_, err := pipe.Exec(ctx)
	return err
}

// GetLeaderboard 总榜
func (lm *LeaderboardManager) GetLeaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	return lm.top(ctx, leaderboardKey, limit)
}

// GetDailyLeaderboard 今日榜
func (lm *LeaderboardManager) GetDailyLeaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	return lm.top(ctx, dailyLeaderboard+lm.now().Format("2006-01-02"), limit)
}

// GetWins 某个玩家的总胜场
func (lm *LeaderboardManager) GetWins(ctx context.Context, name string) (int64, error) {
	if !lm.Enabled() {
		return 0, nil
	}
	score, err := lm.redis.ZScore(ctx, leaderboardKey, name).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return int64(score), err
}

func (lm *LeaderboardManager) top(ctx context.Context, key string, limit int) ([]LeaderboardEntry, error) {
	if !lm.Enabled() {
		return nil, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	results, err := lm.redis.ZRevRangeWithScores(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(results))
	for i, z := range results {
		name, _ := z.Member.(string)
		entries = append(entries, LeaderboardEntry{
			Rank: i + 1,
			Name: name,
			Wins: int64(z.Score),
		})
	}
	return entries, nil
}
