package transport

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/palemoky/beer-pong/internal/protocol"
	"github.com/palemoky/beer-pong/internal/protocol/codec"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// 心跳检测间隔
	heartbeatInterval = 5 * time.Second
	// 最大重连次数
	maxReconnectAttempts = 5

	bufferSize = 256
)

var (
	// ErrClosed 客户端已关闭
	ErrClosed = errors.New("transport: client closed")
	// ErrSendBufferFull 发送队列已满
	ErrSendBufferFull = errors.New("transport: send buffer full")
)

// Client WebSocket 客户端，断线后用重连令牌恢复身份
type Client struct {
	ServerURL string

	// ReconnectInterval 首次重连等待时间，之后指数退避（最大 30 秒）
	ReconnectInterval time.Duration

	// 回调
	OnMessage      func(*protocol.Message) // 消息回调
	OnError        func(error)             // 错误回调
	OnClose        func()                  // 关闭回调（不再重连）
	OnReconnecting func(attempt, max int)  // 正在重连
	OnReconnect    func()                  // 重连成功回调

	codec   codec.Codec
	conn    *websocket.Conn
	send    chan []byte
	receive chan *protocol.Message
	done    chan struct{}

	playerID       string
	playerName     string
	reconnectToken string
	fresh          *protocol.ConnectedPayload
	latency        atomic.Int64

	mu           sync.RWMutex
	closed       bool
	reconnecting atomic.Bool
}

// NewClient 创建客户端，codecName 为 "proto" 时使用二进制帧
func NewClient(serverURL, codecName string) *Client {
	return &Client{
		ServerURL:         serverURL,
		ReconnectInterval: 2 * time.Second,
		codec:             codec.ByName(codecName),
		send:              make(chan []byte, bufferSize),
		receive:           make(chan *protocol.Message, bufferSize),
		done:              make(chan struct{}),
	}
}

// Connect 连接服务器
func (c *Client) Connect(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.start(conn)
	return nil
}

func (c *Client) start(conn *websocket.Conn) {
	stop := make(chan struct{})
	go c.readPump(conn, stop)
	go c.writePump(conn, stop)
}

// adopt 采用服务端下发的身份（需持有锁）
func (c *Client) adopt(p *protocol.ConnectedPayload) {
	c.playerID = p.PlayerID
	c.playerName = p.PlayerName
	c.reconnectToken = p.ReconnectToken
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	u := c.ServerURL
	if c.codec.Name() == codec.NameProto {
		u += "?codec=" + codec.NameProto
	}
	conn, resp, err := dialer.DialContext(ctx, u, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// Messages 收到的消息
func (c *Client) Messages() <-chan *protocol.Message {
	return c.receive
}

// SendMessage 编码并排队发送
func (c *Client) SendMessage(msg *protocol.Message) error {
	data, err := c.codec.Encode(msg)
	if err != nil {
		return err
	}

	if c.IsClosed() {
		return ErrClosed
	}

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrClosed
	default:
		return ErrSendBufferFull
	}
}

// Send 发送指定类型的消息
func (c *Client) Send(typ protocol.MessageType, payload any) error {
	msg, err := codec.NewMessage(typ, payload)
	if err != nil {
		return err
	}
	return c.SendMessage(msg)
}

// Ping 发送心跳，pong 回来后更新延迟
func (c *Client) Ping() error {
	return c.Send(protocol.MsgPing, protocol.PingPayload{Timestamp: time.Now().UnixMilli()})
}

// StartHeartbeat 启动心跳检测
func (c *Client) StartHeartbeat() {
	go func() {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if !c.reconnecting.Load() {
					_ = c.Ping()
				}
			case <-c.done:
				return
			}
		}
	}()
}

// Close 关闭客户端，不再重连
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// IsClosed 是否已关闭
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// PlayerID 服务端分配的稳定玩家 ID
func (c *Client) PlayerID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// PlayerName 服务端分配的玩家名
func (c *Client) PlayerName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerName
}

// ReconnectToken 重连令牌
func (c *Client) ReconnectToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reconnectToken
}

// Latency 当前延迟（毫秒）
func (c *Client) Latency() int64 {
	return c.latency.Load()
}

// IsReconnecting 是否正在重连
func (c *Client) IsReconnecting() bool {
	return c.reconnecting.Load()
}
