package protocol

import "encoding/json"

// Message 基础消息结构
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MessageType 消息类型
type MessageType string

// 客户端 → 服务端 消息类型
const (
	// 连接操作
	MsgReconnect MessageType = "reconnect" // 用重连令牌恢复玩家身份
	MsgPing      MessageType = "ping"      // 心跳 ping

	// 房间操作
	MsgCreateRoom  MessageType = "createRoom"
	MsgJoinRoom    MessageType = "joinRoom"
	MsgCloseRoom   MessageType = "closeRoom"
	MsgGetRoomList MessageType = "getRoomList"

	// 游戏操作
	MsgStartGame MessageType = "startGame"
	MsgThrow     MessageType = "throw" // 双向：控制器上报，服务端转发给画面端
	MsgCupHit    MessageType = "cupHit"
	MsgCupMiss   MessageType = "cupMiss"
	MsgResetGame MessageType = "resetGame"

	// 排行榜
	MsgGetLeaderboard MessageType = "getLeaderboard"
)

// 服务端 → 客户端 消息类型
const (
	// 连接相关
	MsgConnected   MessageType = "connected"
	MsgReconnected MessageType = "reconnected"
	MsgPong        MessageType = "pong"

	// 房间相关
	MsgRoomCreated  MessageType = "roomCreated"
	MsgJoinResponse MessageType = "joinResponse"
	MsgRoomUpdate   MessageType = "roomUpdate"
	MsgRoomClosed   MessageType = "roomClosed"
	MsgRoomList     MessageType = "roomList"

	// 游戏流程
	MsgGameStarted        MessageType = "gameStarted"
	MsgTurnChange         MessageType = "turnChange"
	MsgNewRound           MessageType = "newRound"
	MsgPlayerWon          MessageType = "playerWon"
	MsgPlayerDisconnected MessageType = "playerDisconnected"
	MsgGameReset          MessageType = "gameReset"

	// 排行榜
	MsgLeaderboard MessageType = "leaderboard"

	// 错误
	MsgError MessageType = "error"
)
