package types

import (
	"github.com/palemoky/beer-pong/internal/protocol"
)

// ClientInterface 定义客户端接口（用于打破 server 与 handler/relay 的循环依赖）
// ID 是连接 ID，每次连接都不同；PlayerID 是会话层的稳定玩家身份
type ClientInterface interface {
	GetID() string
	GetPlayerID() string
	SetPlayerID(id string)
	GetName() string
	SetName(name string)
	GetRoom() string
	SetRoom(id string)
	SendMessage(msg *protocol.Message)
	Close()
}
