package handler

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/palemoky/beer-pong/internal/game/room"
	"github.com/palemoky/beer-pong/internal/protocol"
	"github.com/palemoky/beer-pong/internal/protocol/codec"
	"github.com/palemoky/beer-pong/internal/types"
)

// Connect 新连接：分配玩家身份并下发重连令牌
func (h *Handler) Connect(client types.ClientInterface) {
	h.hub.Register(client)

	sess := h.sessions.CreateSession(client.GetName())
	client.SetPlayerID(sess.PlayerID)

	client.SendMessage(codec.MustNewMessage(protocol.MsgConnected, protocol.ConnectedPayload{
		PlayerID:       sess.PlayerID,
		PlayerName:     sess.PlayerName,
		ReconnectToken: sess.ReconnectToken,
	}))

	log.Info().Str("conn", client.GetID()).Str("player", sess.PlayerID).Msg("✅ 玩家已连接")
}

// Disconnect 连接断开是一次状态转换，不是错误
func (h *Handler) Disconnect(client types.ClientInterface) {
	if client.GetRoom() != "" {
		h.leaveRoom(client)
	}
	h.hub.Unregister(client)

	// 身份已被新连接接管时会话保持在线
	if !h.hub.HasPlayer(client.GetPlayerID()) {
		h.sessions.SetOffline(client.GetPlayerID())
	}

	log.Info().Str("conn", client.GetID()).Str("player", client.GetPlayerID()).Msg("❌ 玩家已断开")
}

// leaveRoom 当前连接离开所在房间
func (h *Handler) leaveRoom(client types.ClientInterface) {
	roomID := client.GetRoom()
	playerID := client.GetPlayerID()

	err := h.withRoom(roomID, func(r *room.Room) ([]room.Event, error) {
		h.hub.Leave(roomID, client)
		return r.Disconnect(playerID, client.GetID()), nil
	})
	if err != nil {
		h.hub.Leave(roomID, client)
	}
}

// handlePing 处理心跳
func (h *Handler) handlePing(client types.ClientInterface, msg *protocol.Message) {
	payload, err := codec.ParsePayload[protocol.PingPayload](msg)
	if err != nil {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}

	client.SendMessage(codec.MustNewMessage(protocol.MsgPong, protocol.PongPayload{
		ClientTimestamp: payload.Timestamp,
		ServerTimestamp: h.clock.Now().UnixMilli(),
	}))
}

// handleReconnect 用重连令牌恢复稳定身份，客户端随后重新 joinRoom
func (h *Handler) handleReconnect(client types.ClientInterface, msg *protocol.Message) {
	payload, err := codec.ParsePayload[protocol.ReconnectPayload](msg)
	if err != nil {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}

	sess, err := h.sessions.Resume(context.Background(), payload.Token)
	if err != nil {
		h.sendError(client, err)
		return
	}

	if client.GetRoom() != "" {
		h.leaveRoom(client)
	}

	old := client.GetPlayerID()
	data := sess.Snapshot()
	client.SetPlayerID(data.PlayerID)
	client.SetName(data.PlayerName)
	if old != data.PlayerID && !h.hub.HasPlayer(old) {
		h.sessions.SetOffline(old)
	}

	client.SendMessage(codec.MustNewMessage(protocol.MsgReconnected, protocol.ReconnectedPayload{
		PlayerID:   data.PlayerID,
		PlayerName: data.PlayerName,
		RoomID:     data.RoomID,
	}))

	log.Info().Str("conn", client.GetID()).Str("player", data.PlayerID).Msg("📶 玩家已重连")
}
