package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/beer-pong/internal/protocol"
	"github.com/palemoky/beer-pong/internal/protocol/codec"
)

// fakeServer 第一条连接在收到 ping 后断开，后续连接响应重连
type fakeServer struct {
	conns      atomic.Int32
	reconnects chan string
	dropFirst  bool
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	c := codec.ByName(r.URL.Query().Get("codec"))
	n := f.conns.Add(1)
	write := func(typ protocol.MessageType, payload any) {
		data, _ := c.Encode(codec.MustNewMessage(typ, payload))
		kind := websocket.TextMessage
		if c.Binary() {
			kind = websocket.BinaryMessage
		}
		_ = conn.WriteMessage(kind, data)
	}

	write(protocol.MsgConnected, protocol.ConnectedPayload{
		PlayerID:       fmt.Sprintf("p%d", n),
		PlayerName:     "Player",
		ReconnectToken: fmt.Sprintf("tok-%d", n),
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := c.Decode(data)
		if err != nil {
			return
		}
		switch msg.Type {
		case protocol.MsgPing:
			ping, _ := codec.ParsePayload[protocol.PingPayload](msg)
			write(protocol.MsgPong, protocol.PongPayload{ClientTimestamp: ping.Timestamp, ServerTimestamp: time.Now().UnixMilli()})
			if f.dropFirst && n == 1 {
				return
			}
		case protocol.MsgReconnect:
			p, _ := codec.ParsePayload[protocol.ReconnectPayload](msg)
			f.reconnects <- p.Token
			if p.Token != "tok-1" {
				write(protocol.MsgError, protocol.ErrorPayload{Code: protocol.ErrCodeInvalidToken})
				continue
			}
			write(protocol.MsgReconnected, protocol.ReconnectedPayload{PlayerID: "p1", PlayerName: "Player"})
		}
	}
}

func startFake(t *testing.T, dropFirst bool) (*fakeServer, string) {
	t.Helper()
	f := &fakeServer{reconnects: make(chan string, 4), dropFirst: dropFirst}
	ts := httptest.NewServer(f)
	t.Cleanup(ts.Close)
	return f, "ws" + strings.TrimPrefix(ts.URL, "http")
}

func waitFor(t *testing.T, ch <-chan *protocol.Message, typ protocol.MessageType) *protocol.Message {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case msg := <-ch:
			if msg.Type == typ {
				return msg
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", typ)
			return nil
		}
	}
}

func TestClient_ConnectAndPing(t *testing.T) {
	for _, name := range []string{codec.NameJSON, codec.NameProto} {
		t.Run(name, func(t *testing.T) {
			_, url := startFake(t, false)
			c := NewClient(url, name)
			require.NoError(t, c.Connect(context.Background()))
			defer c.Close()

			waitFor(t, c.Messages(), protocol.MsgConnected)
			assert.Equal(t, "p1", c.PlayerID())
			assert.Equal(t, "tok-1", c.ReconnectToken())

			require.NoError(t, c.Ping())
			waitFor(t, c.Messages(), protocol.MsgPong)
			assert.GreaterOrEqual(t, c.Latency(), int64(0))
		})
	}
}

func TestClient_ReconnectWithToken(t *testing.T) {
	f, url := startFake(t, true)
	c := NewClient(url, codec.NameJSON)
	c.ReconnectInterval = 10 * time.Millisecond

	reconnected := make(chan struct{}, 1)
	c.OnReconnect = func() { reconnected <- struct{}{} }

	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()
	waitFor(t, c.Messages(), protocol.MsgConnected)

	// 服务端回 pong 后断开第一条连接
	require.NoError(t, c.Ping())

	select {
	case token := <-f.reconnects:
		assert.Equal(t, "tok-1", token)
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw reconnect")
	}

	select {
	case <-reconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("OnReconnect not called")
	}
	assert.Equal(t, "p1", c.PlayerID())
	assert.Equal(t, "tok-1", c.ReconnectToken())
	assert.False(t, c.IsReconnecting())
}

func TestClient_Close(t *testing.T) {
	_, url := startFake(t, false)
	c := NewClient(url, codec.NameJSON)
	require.NoError(t, c.Connect(context.Background()))

	c.Close()
	c.Close()
	assert.True(t, c.IsClosed())
	assert.ErrorIs(t, c.Ping(), ErrClosed)
}

func TestClient_ConnectFails(t *testing.T) {
	c := NewClient("ws://127.0.0.1:1/ws", codec.NameJSON)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Error(t, c.Connect(ctx))
}

func TestClient_FullBufferDoesNotBlockClose(t *testing.T) {
	// 未连接时没有写协程消费队列
	c := NewClient("ws://127.0.0.1:1/ws", codec.NameJSON)
	for range bufferSize {
		require.NoError(t, c.Ping())
	}
	assert.ErrorIs(t, c.Ping(), ErrSendBufferFull)

	closed := make(chan struct{})
	go func() {
		c.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close blocked behind a full send buffer")
	}
	assert.ErrorIs(t, c.Ping(), ErrClosed)
}
