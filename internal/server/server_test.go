package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/beer-pong/internal/config"
	"github.com/palemoky/beer-pong/internal/protocol"
	"github.com/palemoky/beer-pong/internal/protocol/codec"
	"github.com/palemoky/beer-pong/internal/server/storage"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := newServer(config.Default(), nil)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

type wsClient struct {
	t     *testing.T
	conn  *websocket.Conn
	codec codec.Codec
}

func dial(t *testing.T, ts *httptest.Server, codecName string) *wsClient {
	t.Helper()
	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	if codecName != "" {
		u += "?codec=" + codecName
	}
	conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return &wsClient{t: t, conn: conn, codec: codec.ByName(codecName)}
}

func (c *wsClient) send(typ protocol.MessageType, payload any) {
	c.t.Helper()
	data, err := c.codec.Encode(codec.MustNewMessage(typ, payload))
	require.NoError(c.t, err)

	kind := websocket.TextMessage
	if c.codec.Binary() {
		kind = websocket.BinaryMessage
	}
	require.NoError(c.t, c.conn.WriteMessage(kind, data))
}

// expect 读取消息直到遇到指定类型
func (c *wsClient) expect(typ protocol.MessageType) *protocol.Message {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		kind, data, err := c.conn.ReadMessage()
		require.NoError(c.t, err, "waiting for %s", typ)
		if c.codec.Binary() {
			require.Equal(c.t, websocket.BinaryMessage, kind)
		}
		msg, err := c.codec.Decode(data)
		require.NoError(c.t, err)
		if msg.Type == typ {
			return msg
		}
	}
}

func parse[T any](t *testing.T, msg *protocol.Message) *T {
	t.Helper()
	p, err := codec.ParsePayload[T](msg)
	require.NoError(t, err)
	return p
}

func TestServer_WebSocketGameFlow(t *testing.T) {
	_, ts := newTestServer(t)

	host := dial(t, ts, "")
	parse[protocol.ConnectedPayload](t, host.expect(protocol.MsgConnected))
	host.send(protocol.MsgCreateRoom, nil)
	created := parse[protocol.RoomCreatedPayload](t, host.expect(protocol.MsgRoomCreated))
	require.Len(t, created.RoomID, 6)

	// 手机控制器使用二进制帧
	phone := dial(t, ts, codec.NameProto)
	connected := parse[protocol.ConnectedPayload](t, phone.expect(protocol.MsgConnected))
	assert.NotEmpty(t, connected.ReconnectToken)

	phone.send(protocol.MsgJoinRoom, protocol.JoinRoomPayload{RoomID: created.RoomID, Name: "Alice", IsController: true})
	resp := parse[protocol.JoinResponsePayload](t, phone.expect(protocol.MsgJoinResponse))
	require.True(t, resp.Success, resp.Message)
	assert.Equal(t, "Alice", resp.PlayerInfo.Name)

	// 第一条 roomUpdate 是主持人自己加入
	update := parse[protocol.RoomUpdatePayload](t, host.expect(protocol.MsgRoomUpdate))
	assert.Len(t, update.Players, 1)
	update = parse[protocol.RoomUpdatePayload](t, host.expect(protocol.MsgRoomUpdate))
	assert.Len(t, update.Players, 2)

	host.send(protocol.MsgStartGame, nil)
	started := parse[protocol.GameStartedPayload](t, phone.expect(protocol.MsgGameStarted))
	assert.Equal(t, connected.PlayerID, started.FirstPlayer)

	phone.send(protocol.MsgThrow, protocol.ThrowPayload{Velocity: protocol.Velocity{X: 0.5, Y: 4, Z: -2}})
	throw := parse[protocol.ThrowPayload](t, host.expect(protocol.MsgThrow))
	assert.InDelta(t, 4.0, throw.Velocity.Y, 1e-9)

	host.send(protocol.MsgCupMiss, nil)
	turn := parse[protocol.TurnChangePayload](t, phone.expect(protocol.MsgTurnChange))
	assert.Equal(t, connected.PlayerID, turn.ActivePlayer.ID)
}

func TestServer_InvalidFrame(t *testing.T) {
	_, ts := newTestServer(t)
	c := dial(t, ts, "")
	c.expect(protocol.MsgConnected)

	require.NoError(t, c.conn.WriteMessage(websocket.TextMessage, []byte("{nope")))
	errPayload := parse[protocol.ErrorPayload](t, c.expect(protocol.MsgError))
	assert.Equal(t, protocol.ErrCodeInvalidMsg, errPayload.Code)
}

func TestServer_HTTPRoutes(t *testing.T) {
	s, ts := newTestServer(t)
	created := s.rooms.Create("")

	get := func(path string) (*http.Response, []byte) {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp, body
	}

	resp, body := get("/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	_, body = get("/version")
	assert.Contains(t, string(body), Version)

	resp, body = get("/api/rooms")
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var rooms []protocol.RoomListItem
	require.NoError(t, json.Unmarshal(body, &rooms))
	require.Len(t, rooms, 1)
	assert.Equal(t, created.ID, rooms[0].ID)
	assert.NotContains(t, string(body), created.HostToken)

	resp, body = get("/api/rooms/" + strings.ToLower(created.ID) + "/qr")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(body, []byte("\x89PNG")))

	resp, _ = get("/api/rooms/NOPE00/qr")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_JoinURL(t *testing.T) {
	cfg := config.Default()
	s := newServer(cfg, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/rooms/ABCDEF/qr", nil)
	req.Host = "pong.local:3001"
	assert.Equal(t, "http://pong.local:3001/controller.html?room=ABCDEF", s.joinURL(req, "ABCDEF"))

	req.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https://pong.local:3001/controller.html?room=ABCDEF", s.joinURL(req, "ABCDEF"))

	cfg.Server.PublicURL = "https://party.example/"
	assert.Equal(t, "https://party.example/controller.html?room=ABCDEF", s.joinURL(req, "ABCDEF"))
}

func TestServer_MaintenanceRejectsConnections(t *testing.T) {
	s, ts := newTestServer(t)

	assert.False(t, s.IsMaintenanceMode())
	s.EnterMaintenanceMode()
	assert.True(t, s.IsMaintenanceMode())

	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServer_OriginRejected(t *testing.T) {
	cfg := config.Default()
	cfg.Security.AllowedOrigins = []string{"https://pong.example"}
	ts := httptest.NewServer(newServer(cfg, nil).Handler())
	defer ts.Close()

	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(u, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestServer_RestoreRoomsFromRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	require.NoError(t, storage.NewRedisStore(rdb).SaveRoom(ctx, &storage.RoomData{
		ID:        "KEEP22",
		HostToken: "tok",
		HostID:    "h",
		Status:    "waiting",
		Players:   []storage.PlayerData{{ID: "h", Name: "Host", IsHost: true}},
	}))

	cfg := config.Default()
	cfg.Redis.Enabled = true
	s := newServer(cfg, rdb)
	s.restoreRooms(ctx)

	r, err := s.rooms.Get("KEEP22")
	require.NoError(t, err)
	assert.Equal(t, "tok", r.HostToken)
}

func TestServer_PlayerWins(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := config.Default()
	cfg.Redis.Enabled = true
	s := newServer(cfg, rdb)
	require.NoError(t, s.leaderboard.RecordWin(context.Background(), "Alice"))
	require.NoError(t, s.leaderboard.RecordWin(context.Background(), "Alice"))

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/api/players/Alice/wins")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Name string `json:"name"`
		Wins int64  `json:"wins"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Alice", body.Name)
	assert.EqualValues(t, 2, body.Wins)

	// 未启用 Redis
	_, plain := newTestServer(t)
	resp2, err := http.Get(plain.URL + "/api/players/Alice/wins")
	require.NoError(t, err)
	_ = resp2.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp2.StatusCode)
}

func TestNewServer_RedisUnavailable(t *testing.T) {
	cfg := config.Default()
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = "127.0.0.1:1"

	_, err := NewServer(cfg)
	assert.Error(t, err)
}
