package transport

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/palemoky/beer-pong/internal/logger"
	"github.com/palemoky/beer-pong/internal/protocol"
	"github.com/palemoky/beer-pong/internal/protocol/codec"
)

// readPump 从服务器读取消息
// 退出时关闭 stop，让同一连接的 writePump 退出
func (c *Client) readPump(conn *websocket.Conn, stop chan struct{}) {
	defer c.handleReadExit()
	defer close(stop)

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) && c.OnError != nil {
				c.OnError(err)
			}
			return
		}

		msg, err := c.codec.Decode(data)
		if err != nil {
			log.Debug().Err(err).Msg("消息解析错误")
			continue
		}
		c.processMessage(msg)
	}
}

func (c *Client) handleReadExit() {
	if r := recover(); r != nil {
		logger.LogPanic(r)
	}
	if c.IsClosed() {
		return
	}
	// 有重连令牌时尝试重连
	if c.ReconnectToken() != "" && !c.reconnecting.Load() {
		go c.tryReconnect()
		return
	}
	c.Close()
	if c.OnClose != nil {
		c.OnClose()
	}
}

func (c *Client) processMessage(msg *protocol.Message) {
	reconnected := c.handleInternalMessage(msg)

	if c.OnMessage != nil {
		c.OnMessage(msg)
	}

	select {
	case c.receive <- msg:
	default:
	}

	// 重连成功回调放在最后，确保消息已经发送到 channel
	if reconnected && c.OnReconnect != nil {
		c.OnReconnect()
	}
}

func (c *Client) handleInternalMessage(msg *protocol.Message) bool {
	switch msg.Type {
	case protocol.MsgConnected:
		if p, err := codec.ParsePayload[protocol.ConnectedPayload](msg); err == nil {
			c.mu.Lock()
			// 重连期间新连接的身份先暂存，令牌失效时才采用
			if c.reconnecting.Load() {
				c.fresh = p
			} else {
				c.adopt(p)
			}
			c.mu.Unlock()
		}
	case protocol.MsgError:
		p, err := codec.ParsePayload[protocol.ErrorPayload](msg)
		if err == nil && p.Code == protocol.ErrCodeInvalidToken && c.reconnecting.Load() {
			c.mu.Lock()
			if c.fresh != nil {
				c.adopt(c.fresh)
				c.fresh = nil
			}
			c.mu.Unlock()
			c.reconnecting.Store(false)
		}
	case protocol.MsgReconnected:
		if p, err := codec.ParsePayload[protocol.ReconnectedPayload](msg); err == nil {
			c.mu.Lock()
			c.playerID = p.PlayerID
			c.playerName = p.PlayerName
			c.fresh = nil
			c.mu.Unlock()
		}
		c.reconnecting.Store(false)
		return true
	case protocol.MsgPong:
		if p, err := codec.ParsePayload[protocol.PongPayload](msg); err == nil {
			c.latency.Store(time.Now().UnixMilli() - p.ClientTimestamp)
		}
	}
	return false
}

// writePump 向服务器写入消息
func (c *Client) writePump(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	kind := websocket.TextMessage
	if c.codec.Binary() {
		kind = websocket.BinaryMessage
	}

	for {
		select {
		case data := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(kind, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-stop:
			return

		case <-c.done:
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// tryReconnect 指数退避重连，成功后发送重连令牌
func (c *Client) tryReconnect() {
	if !c.reconnecting.CompareAndSwap(false, true) {
		return
	}

	backoff := c.ReconnectInterval
	for attempt := 1; attempt <= maxReconnectAttempts; attempt++ {
		if c.OnReconnecting != nil {
			c.OnReconnecting(attempt, maxReconnectAttempts)
		}

		select {
		case <-time.After(backoff):
		case <-c.done:
			return
		}
		backoff = min(backoff*2, 30*time.Second)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		conn, err := c.dial(ctx)
		cancel()
		if err != nil {
			log.Debug().Err(err).Int("attempt", attempt).Msg("重连失败")
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = conn.Close()
			return
		}
		c.conn = conn
		token := c.reconnectToken
		c.mu.Unlock()

		c.start(conn)

		if err := c.Send(protocol.MsgReconnect, protocol.ReconnectPayload{Token: token}); err != nil {
			_ = conn.Close()
			continue
		}
		return
	}

	c.reconnecting.Store(false)
	c.Close()
	if c.OnClose != nil {
		c.OnClose()
	}
}
