package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/palemoky/beer-pong/internal/apperrors"
	"github.com/palemoky/beer-pong/internal/common/clock/mocks"
	"github.com/palemoky/beer-pong/internal/server/storage"
)

// fakeNow 可推进的时间
type fakeNow struct{ t time.Time }

func newManager(t *testing.T, store *storage.RedisStore) (*SessionManager, *fakeNow) {
	t.Helper()
	now := &fakeNow{t: time.Date(2026, 3, 1, 21, 0, 0, 0, time.UTC)}
	clk := mocks.NewMockClock(gomock.NewController(t))
	clk.EXPECT().Now().DoAndReturn(func() time.Time { return now.t }).AnyTimes()
	return NewSessionManager(clk, store), now
}

func TestSessionManager_CRUD(t *testing.T) {
	t.Parallel()
	sm, _ := newManager(t, nil)

	session := sm.CreateSession("Player1")
	require.NotNil(t, session)
	assert.NotEmpty(t, session.PlayerID)
	assert.Equal(t, "Player1", session.PlayerName)
	assert.Len(t, session.ReconnectToken, 64)
	assert.True(t, session.IsOnline)

	assert.Same(t, session, sm.GetSession(session.PlayerID))
	assert.Same(t, session, sm.GetSessionByToken(session.ReconnectToken))
	assert.Nil(t, sm.GetSessionByToken("nope"))

	other := sm.CreateSession("Player2")
	assert.NotEqual(t, session.PlayerID, other.PlayerID)
	assert.Equal(t, 2, sm.Count())
}

func TestSessionManager_Resume(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		offline time.Duration
		token   func(s *PlayerSession) string
		wantErr bool
	}{
		{name: "online", offline: -1, token: func(s *PlayerSession) string { return s.ReconnectToken }},
		{name: "recently offline", offline: 5 * time.Minute, token: func(s *PlayerSession) string { return s.ReconnectToken }},
		{name: "offline too long", offline: reconnectTimeout + time.Second, token: func(s *PlayerSession) string { return s.ReconnectToken }, wantErr: true},
		{name: "unknown token", offline: -1, token: func(*PlayerSession) string { return "bad" }, wantErr: true},
		{name: "empty token", offline: -1, token: func(*PlayerSession) string { return "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm, now := newManager(t, nil)
			session := sm.CreateSession("Alice")
			if tt.offline >= 0 {
				sm.SetOffline(session.PlayerID)
				now.t = now.t.Add(tt.offline)
			}

			got, err := sm.Resume(context.Background(), tt.token(session))
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, session.PlayerID, got.PlayerID)
			assert.True(t, sm.IsOnline(session.PlayerID))
		})
	}
}

func TestSessionManager_RoomAndName(t *testing.T) {
	t.Parallel()
	sm, _ := newManager(t, nil)
	session := sm.CreateSession("Player1")

	sm.SetRoom(session.PlayerID, "ABCDEF")
	sm.SetName(session.PlayerID, "Alice")
	sm.SetName(session.PlayerID, "")

	assert.Equal(t, "ABCDEF", session.Snapshot().RoomID)
	assert.Equal(t, "Alice", session.Snapshot().PlayerName)
}

func TestSessionManager_Cleanup(t *testing.T) {
	t.Parallel()
	sm, now := newManager(t, nil)

	online := sm.CreateSession("online")
	offline := sm.CreateSession("offline")
	sm.SetOffline(offline.PlayerID)

	assert.Zero(t, sm.Cleanup(now.t.Add(time.Minute)))
	assert.Equal(t, 1, sm.Cleanup(now.t.Add(sessionExpireTime+time.Minute)))

	assert.NotNil(t, sm.GetSession(online.PlayerID))
	assert.Nil(t, sm.GetSession(offline.PlayerID))
	assert.Nil(t, sm.GetSessionByToken(offline.ReconnectToken))
}

func TestSessionManager_ResumeFromRedis(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := storage.NewRedisStore(client)

	before, _ := newManager(t, store)
	session := before.CreateSession("Alice")
	before.SetRoom(session.PlayerID, "ROOM22")

	// 模拟重启：新的管理器只有 Redis 中的数据
	after, _ := newManager(t, store)
	got, err := after.Resume(context.Background(), session.ReconnectToken)
	require.NoError(t, err)
	assert.Equal(t, session.PlayerID, got.PlayerID)
	assert.Equal(t, "Alice", got.PlayerName)
	assert.Equal(t, "ROOM22", got.Snapshot().RoomID)
	assert.Same(t, got, after.GetSession(session.PlayerID))
}
