package handler

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/palemoky/beer-pong/internal/apperrors"
	"github.com/palemoky/beer-pong/internal/game/room"
	"github.com/palemoky/beer-pong/internal/protocol"
	"github.com/palemoky/beer-pong/internal/protocol/codec"
	"github.com/palemoky/beer-pong/internal/types"
)

// handleCreateRoom 处理创建房间，创建者自动成为主持人
func (h *Handler) handleCreateRoom(client types.ClientInterface, msg *protocol.Message) {
	if h.IsMaintenanceMode() {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeMaintenance))
		return
	}

	payload, err := codec.ParsePayload[protocol.CreateRoomPayload](msg)
	if err != nil {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}

	// 如果已在房间中，先离开
	if client.GetRoom() != "" {
		h.leaveRoom(client)
	}

	created := h.rooms.Create(payload.HostToken)
	playerID := client.GetPlayerID()

	err = h.withRoom(created.ID, func(r *room.Room) ([]room.Event, error) {
		events, err := r.JoinAsHost(playerID, client.GetID(), r.HostToken)
		if err != nil {
			return nil, err
		}
		h.hub.Join(r.ID, client)
		client.SendMessage(codec.MustNewMessage(protocol.MsgRoomCreated, protocol.RoomCreatedPayload{
			RoomID:    r.ID,
			HostToken: r.HostToken,
			Players:   r.PlayerInfos(),
		}))
		return events, nil
	})
	if err != nil {
		h.sendError(client, err)
		return
	}

	h.sessions.SetRoom(playerID, created.ID)
	h.broadcastRoomList()
}

// handleJoinRoom 处理加入房间：主持人、玩家或观众
func (h *Handler) handleJoinRoom(client types.ClientInterface, msg *protocol.Message) {
	if h.IsMaintenanceMode() {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeMaintenance))
		return
	}

	payload, err := codec.ParsePayload[protocol.JoinRoomPayload](msg)
	if err != nil {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}

	roomID := strings.ToUpper(strings.TrimSpace(payload.RoomID))
	if roomID == "" {
		h.joinFailed(client, roomID, apperrors.ErrInvalidJoin)
		return
	}

	// 切换房间时先离开之前的房间
	if cur := client.GetRoom(); cur != "" && cur != roomID {
		h.leaveRoom(client)
	}

	playerID := client.GetPlayerID()
	connID := client.GetID()
	err = h.withRoom(roomID, func(r *room.Room) ([]room.Event, error) {
		// 同一身份此前绑定的连接，加入成功后被踢出分组
		var stale string
		if p, ok := r.Player(playerID); ok && p.ConnID != connID && !payload.IsSpectator {
			stale = p.ConnID
		}

		var (
			events []room.Event
			err    error
		)
		switch {
		case payload.IsHost:
			events, err = r.JoinAsHost(playerID, connID, payload.HostToken)
		case payload.IsSpectator:
			// 观众只订阅广播，不改变房间状态
		case payload.IsController:
			events, err = r.JoinAsPlayer(playerID, connID, payload.Name)
		default:
			err = apperrors.ErrInvalidJoin
		}
		if err != nil {
			return nil, err
		}

		h.hub.Join(roomID, client)
		if stale != "" {
			h.hub.Evict(roomID, stale, codec.MustNewMessage(protocol.MsgRoomClosed, protocol.RoomClosedPayload{
				Reason: room.ReasonReplaced,
			}))
		}

		resp := protocol.JoinResponsePayload{
			Success:     true,
			RoomID:      roomID,
			IsHost:      payload.IsHost,
			IsSpectator: payload.IsSpectator,
		}
		if !payload.IsSpectator {
			info := r.PlayerInfo(playerID)
			resp.PlayerInfo = &info
		}
		gs := r.GameState()
		resp.GameState = &gs
		client.SendMessage(codec.MustNewMessage(protocol.MsgJoinResponse, resp))

		if payload.IsSpectator {
			client.SendMessage(codec.MustNewMessage(protocol.MsgRoomUpdate, protocol.RoomUpdatePayload{
				RoomID:  r.ID,
				Players: r.PlayerInfos(),
				Status:  string(r.Status),
			}))
		}
		return events, nil
	})
	if err != nil {
		h.joinFailed(client, roomID, err)
		return
	}

	if !payload.IsSpectator {
		h.sessions.SetRoom(playerID, roomID)
		if payload.Name != "" {
			h.sessions.SetName(playerID, payload.Name)
			client.SetName(payload.Name)
		}
	}
}

// joinFailed 加入失败只回 joinResponse
func (h *Handler) joinFailed(client types.ClientInterface, roomID string, err error) {
	log.Debug().Err(err).Str("conn", client.GetID()).Str("room", roomID).Msg("加入房间失败")
	client.SendMessage(codec.MustNewMessage(protocol.MsgJoinResponse, protocol.JoinResponsePayload{
		Success: false,
		Message: err.Error(),
		RoomID:  roomID,
	}))
}

// handleCloseRoom 主持人关闭房间
func (h *Handler) handleCloseRoom(client types.ClientInterface) {
	err := h.inRoom(client, func(r *room.Room, playerID string) ([]room.Event, error) {
		return r.Close(playerID)
	})
	if err != nil {
		h.sendError(client, err)
	}
}

// handleGetRoomList 处理获取房间列表
func (h *Handler) handleGetRoomList(client types.ClientInterface) {
	client.SendMessage(h.roomListMessage())
}

// inRoom 在连接当前所在的房间上执行命令
// 玩家身份已绑定到其他连接时，旧连接的命令一律拒绝
func (h *Handler) inRoom(client types.ClientInterface, fn func(r *room.Room, playerID string) ([]room.Event, error)) error {
	roomID := client.GetRoom()
	if roomID == "" {
		return apperrors.ErrNotInRoom
	}
	playerID := client.GetPlayerID()
	connID := client.GetID()
	return h.withRoom(roomID, func(r *room.Room) ([]room.Event, error) {
		if p, ok := r.Player(playerID); ok && p.ConnID != connID {
			return nil, apperrors.ErrNotInRoom
		}
		return fn(r, playerID)
	})
}
