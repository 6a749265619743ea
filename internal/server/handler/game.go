package handler

import (
	"github.com/palemoky/beer-pong/internal/game/room"
	"github.com/palemoky/beer-pong/internal/protocol"
	"github.com/palemoky/beer-pong/internal/protocol/codec"
	"github.com/palemoky/beer-pong/internal/types"
)

// handleStartGame 主持人开始游戏
func (h *Handler) handleStartGame(client types.ClientInterface) {
	err := h.inRoom(client, func(r *room.Room, playerID string) ([]room.Event, error) {
		return r.StartGame(playerID)
	})
	if err != nil {
		h.sendError(client, err)
	}
}

// handleThrow 转发投掷速度
func (h *Handler) handleThrow(client types.ClientInterface, msg *protocol.Message) {
	payload, err := codec.ParsePayload[protocol.ThrowPayload](msg)
	if err != nil {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}

	err = h.inRoom(client, func(r *room.Room, playerID string) ([]room.Event, error) {
		return r.RecordThrow(playerID, payload.Velocity)
	})
	if err != nil {
		h.sendError(client, err)
	}
}

// handleCupHit 画面端上报命中
func (h *Handler) handleCupHit(client types.ClientInterface, msg *protocol.Message) {
	payload, err := codec.ParsePayload[protocol.CupHitPayload](msg)
	if err != nil {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}

	err = h.inRoom(client, func(r *room.Room, _ string) ([]room.Event, error) {
		return r.RecordCupHit(payload.PlayerID, payload.CupIndex)
	})
	if err != nil {
		h.sendError(client, err)
	}
}

// handleCupMiss 画面端上报未命中
func (h *Handler) handleCupMiss(client types.ClientInterface) {
	err := h.inRoom(client, func(r *room.Room, _ string) ([]room.Event, error) {
		return r.RecordCupMiss()
	})
	if err != nil {
		h.sendError(client, err)
	}
}

// handleResetGame 主持人重置游戏
func (h *Handler) handleResetGame(client types.ClientInterface) {
	err := h.inRoom(client, func(r *room.Room, playerID string) ([]room.Event, error) {
		return r.ResetGame(playerID)
	})
	if err != nil {
		h.sendError(client, err)
	}
}
