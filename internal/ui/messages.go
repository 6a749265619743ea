package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/palemoky/beer-pong/internal/protocol"
)

// ServerMessage 服务器消息（用于 tea.Msg）
type ServerMessage struct {
	Msg *protocol.Message
}

// ConnectionErrorMsg 连接错误消息
type ConnectionErrorMsg struct {
	Err error
}

// ReconnectingMsg 正在重连消息
type ReconnectingMsg struct {
	Attempt  int
	MaxTries int
}

// ReconnectSuccessMsg 重连成功消息
type ReconnectSuccessMsg struct{}

// DisconnectedMsg 连接已彻底断开
type DisconnectedMsg struct{}

// listen 从通道读取下一条消息
func listen(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return DisconnectedMsg{}
		}
		return msg
	}
}
