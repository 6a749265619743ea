package handler

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/palemoky/beer-pong/internal/apperrors"
	"github.com/palemoky/beer-pong/internal/common/clock"
	"github.com/palemoky/beer-pong/internal/game/room"
	"github.com/palemoky/beer-pong/internal/logger"
	"github.com/palemoky/beer-pong/internal/protocol"
	"github.com/palemoky/beer-pong/internal/protocol/codec"
	"github.com/palemoky/beer-pong/internal/server/relay"
	"github.com/palemoky/beer-pong/internal/server/session"
	"github.com/palemoky/beer-pong/internal/server/storage"
	"github.com/palemoky/beer-pong/internal/types"
)

// Leaderboard 胜场排行榜
type Leaderboard interface {
	Enabled() bool
	RecordWin(ctx context.Context, names ...string) error
	GetLeaderboard(ctx context.Context, limit int) ([]storage.LeaderboardEntry, error)
	GetDailyLeaderboard(ctx context.Context, limit int) ([]storage.LeaderboardEntry, error)
}

// RoomSnapshots 房间快照缓存
type RoomSnapshots interface {
	SaveRoom(ctx context.Context, data *storage.RoomData) error
	DeleteRoom(ctx context.Context, id string) error
}

// HandlerDeps 处理器依赖
type HandlerDeps struct {
	Rooms       room.Store
	Sessions    *session.SessionManager
	Hub         *relay.Hub
	Snapshots   RoomSnapshots // 可选
	Leaderboard Leaderboard   // 可选
	Clock       clock.Clock
}

// Handler 消息处理器：入站命令 → 房间状态机 → 出站事件
type Handler struct {
	rooms       room.Store
	sessions    *session.SessionManager
	hub         *relay.Hub
	snapshots   RoomSnapshots
	leaderboard Leaderboard
	clock       clock.Clock
	handlers    map[protocol.MessageType]handlerFunc
	maintenance atomic.Bool

	// runAsync 执行持久化等旁路任务
	runAsync func(func())
}

// handlerFunc 统一的处理器函数签名
type handlerFunc func(client types.ClientInterface, msg *protocol.Message)

// roomFunc 在持有房间锁时执行的状态机调用
type roomFunc func(r *room.Room) ([]room.Event, error)

// NewHandler 创建处理器
func NewHandler(deps HandlerDeps) *Handler {
	if deps.Clock == nil {
		deps.Clock = clock.System{}
	}
	h := &Handler{
		rooms:       deps.Rooms,
		sessions:    deps.Sessions,
		hub:         deps.Hub,
		snapshots:   deps.Snapshots,
		leaderboard: deps.Leaderboard,
		clock:       deps.Clock,
		runAsync:    func(f func()) { go f() },
	}
	h.initHandlers()
	return h
}

// initHandlers 初始化消息处理器映射
func (h *Handler) initHandlers() {
	h.handlers = map[protocol.MessageType]handlerFunc{
		// 连接操作
		protocol.MsgPing:      h.handlePing,
		protocol.MsgReconnect: h.handleReconnect,

		// 房间操作
		protocol.MsgCreateRoom:  h.handleCreateRoom,
		protocol.MsgJoinRoom:    h.handleJoinRoom,
		protocol.MsgCloseRoom:   func(c types.ClientInterface, _ *protocol.Message) { h.handleCloseRoom(c) },
		protocol.MsgGetRoomList: func(c types.ClientInterface, _ *protocol.Message) { h.handleGetRoomList(c) },

		// 游戏操作
		protocol.MsgStartGame: func(c types.ClientInterface, _ *protocol.Message) { h.handleStartGame(c) },
		protocol.MsgThrow:     h.handleThrow,
		protocol.MsgCupHit:    h.handleCupHit,
		protocol.MsgCupMiss:   func(c types.ClientInterface, _ *protocol.Message) { h.handleCupMiss(c) },
		protocol.MsgResetGame: func(c types.ClientInterface, _ *protocol.Message) { h.handleResetGame(c) },

		// 信息查询
		protocol.MsgGetLeaderboard: h.handleGetLeaderboard,
	}
}

// Handle 处理消息
func (h *Handler) Handle(client types.ClientInterface, msg *protocol.Message) {
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r)
			client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeUnknown))
		}
	}()

	if handler, ok := h.handlers[msg.Type]; ok {
		handler(client, msg)
		return
	}

	log.Warn().
		Str("type", string(msg.Type)).
		Str("conn", client.GetID()).
		Int("payload_bytes", len(msg.Payload)).
		Msg("⚠️ 未知消息类型")
	client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
}

// SetMaintenance 维护模式下不再创建/加入房间
func (h *Handler) SetMaintenance(on bool) {
	h.maintenance.Store(on)
}

// IsMaintenanceMode 是否处于维护模式
func (h *Handler) IsMaintenanceMode() bool {
	return h.maintenance.Load()
}

// sendError 错误只发给发起者
func (h *Handler) sendError(client types.ClientInterface, err error) {
	log.Debug().Err(err).Str("conn", client.GetID()).Str("room", client.GetRoom()).Msg("命令被拒绝")
	client.SendMessage(codec.ErrorMessageFor(err))
}

// withRoom 在房间锁内执行状态机调用，发布事件并保存快照
func (h *Handler) withRoom(roomID string, fn roomFunc) error {
	r, err := h.rooms.Get(roomID)
	if err != nil {
		return err
	}

	lobbyChanged, err := h.apply(r, fn)
	if err != nil {
		return err
	}
	if lobbyChanged {
		h.broadcastRoomList()
	}
	return nil
}

func (h *Handler) apply(r *room.Room, fn roomFunc) (bool, error) {
	r.Lock()
	defer r.Unlock()

	if r.Closed() {
		return false, apperrors.ErrRoomNotFound
	}

	before := r.Summary()
	events, err := fn(r)
	if err != nil {
		return false, err
	}
	r.Touch(h.clock.Now())
	h.publish(r.ID, events)

	if r.Closed() {
		h.rooms.Delete(r.ID)
		h.hub.CloseGroup(r.ID)
		h.deleteSnapshot(r.ID)
		log.Info().Str("room", r.ID).Msg("🏠 房间已关闭")
		return true, nil
	}

	h.saveSnapshot(r.ToRoomData())
	return before != r.Summary(), nil
}

// publish 将状态机事件发送到房间分组
func (h *Handler) publish(roomID string, events []room.Event) {
	for _, ev := range events {
		msg := codec.MustNewMessage(ev.Type, ev.Payload)

		switch {
		case ev.To != "":
			h.hub.SendToPlayer(roomID, ev.To, msg)
			if ev.Type == protocol.MsgRoomClosed {
				h.hub.LeavePlayer(roomID, ev.To)
			}
		default:
			h.hub.Publish(roomID, msg, ev.Except)
		}

		if ev.Type == protocol.MsgPlayerWon {
			h.recordWin(roomID, ev.Payload)
		}
	}
}

// Expire 处理清理协程拆除的房间
func (h *Handler) Expire(e room.Expired) {
	h.publish(e.RoomID, e.Events)
	h.hub.CloseGroup(e.RoomID)
	h.deleteSnapshot(e.RoomID)
	h.broadcastRoomList()
}

func (h *Handler) recordWin(roomID string, payload any) {
	won, ok := payload.(protocol.PlayerWonPayload)
	if !ok || h.leaderboard == nil || !h.leaderboard.Enabled() {
		return
	}

	names := []string{won.Player.Name}
	if won.IsTie {
		names = names[:0]
		for _, p := range won.TiedPlayers {
			names = append(names, p.Name)
		}
	}

	h.runAsync(func() {
		if err := h.leaderboard.RecordWin(context.Background(), names...); err != nil {
			log.Warn().Err(err).Str("room", roomID).Msg("⚠️ 记录胜场失败")
		}
	})
}

func (h *Handler) saveSnapshot(data *storage.RoomData) {
	if h.snapshots == nil {
		return
	}
	h.runAsync(func() {
		if err := h.snapshots.SaveRoom(context.Background(), data); err != nil {
			log.Warn().Err(err).Str("room", data.ID).Msg("⚠️ 保存房间快照失败")
		}
	})
}

func (h *Handler) deleteSnapshot(roomID string) {
	if h.snapshots == nil {
		return
	}
	h.runAsync(func() {
		if err := h.snapshots.DeleteRoom(context.Background(), roomID); err != nil {
			log.Warn().Err(err).Str("room", roomID).Msg("⚠️ 删除房间快照失败")
		}
	})
}

// broadcastRoomList 大厅列表发给所有连接
func (h *Handler) broadcastRoomList() {
	h.hub.BroadcastAll(h.roomListMessage())
}

func (h *Handler) roomListMessage() *protocol.Message {
	return codec.MustNewMessage(protocol.MsgRoomList, h.rooms.List(room.Waiting))
}
