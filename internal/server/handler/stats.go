package handler

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/palemoky/beer-pong/internal/protocol"
	"github.com/palemoky/beer-pong/internal/protocol/codec"
	"github.com/palemoky/beer-pong/internal/types"
)

// handleGetLeaderboard 获取胜场排行榜，未启用 Redis 时不可用
func (h *Handler) handleGetLeaderboard(client types.ClientInterface, msg *protocol.Message) {
	if h.leaderboard == nil || !h.leaderboard.Enabled() {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeUnavailable))
		return
	}

	payload, err := codec.ParsePayload[protocol.GetLeaderboardPayload](msg)
	if err != nil {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	fetch := h.leaderboard.GetLeaderboard
	if payload.Daily {
		fetch = h.leaderboard.GetDailyLeaderboard
	}
	entries, err := fetch(ctx, payload.Limit)
	if err != nil {
		log.Warn().Err(err).Msg("⚠️ 获取排行榜失败")
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeUnavailable))
		return
	}

	result := protocol.LeaderboardPayload{
		Daily:   payload.Daily,
		Entries: make([]protocol.LeaderboardEntry, 0, len(entries)),
	}
	for _, e := range entries {
		result.Entries = append(result.Entries, protocol.LeaderboardEntry{
			Rank: e.Rank,
			Name: e.Name,
			Wins: e.Wins,
		})
	}
	client.SendMessage(codec.MustNewMessage(protocol.MsgLeaderboard, result))
}
