package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/palemoky/beer-pong/internal/apperrors"
	"github.com/palemoky/beer-pong/internal/common/clock"
	"github.com/palemoky/beer-pong/internal/server/storage"
)

const (
	// 断线后可重连的时间
	reconnectTimeout = 30 * time.Minute
	// 离线会话保留时间
	sessionExpireTime = time.Hour
)

// PlayerSession 玩家会话
// PlayerID 在重连之间保持不变，房间内的玩家记录以它为键
type PlayerSession struct {
	PlayerID       string
	PlayerName     string
	ReconnectToken string
	RoomID         string

	DisconnectedAt time.Time // 断线时间
	IsOnline       bool      // 是否在线

	mu sync.RWMutex
}

// Snapshot 会话数据的拷贝
func (s *PlayerSession) Snapshot() storage.PlayerSessionData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return storage.PlayerSessionData{
		PlayerID:       s.PlayerID,
		PlayerName:     s.PlayerName,
		ReconnectToken: s.ReconnectToken,
		RoomID:         s.RoomID,
	}
}

// SessionManager 会话管理器
type SessionManager struct {
	clock    clock.Clock
	store    *storage.RedisStore
	sessions map[string]*PlayerSession // playerID -> session
	tokens   map[string]string         // token -> playerID
	mu       sync.RWMutex
}

// NewSessionManager 创建会话管理器，store 可为 nil
func NewSessionManager(c clock.Clock, store *storage.RedisStore) *SessionManager {
	if c == nil {
		c = clock.System{}
	}
	return &SessionManager{
		clock:    c,
		store:    store,
		sessions: make(map[string]*PlayerSession),
		tokens:   make(map[string]string),
	}
}

// CreateSession 为新连接创建会话
func (sm *SessionManager) CreateSession(playerName string) *PlayerSession {
	session := &PlayerSession{
		PlayerID:       uuid.NewString(),
		PlayerName:     playerName,
		ReconnectToken: generateToken(),
		IsOnline:       true,
	}

	sm.mu.Lock()
	sm.sessions[session.PlayerID] = session
	sm.tokens[session.ReconnectToken] = session.PlayerID
	sm.mu.Unlock()

	sm.persist(session)
	return session
}

// GetSession 获取会话
func (sm *SessionManager) GetSession(playerID string) *PlayerSession {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[playerID]
}

// GetSessionByToken 通过 token 获取会话
func (sm *SessionManager) GetSessionByToken(token string) *PlayerSession {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	playerID, ok := sm.tokens[token]
	if !ok {
		return nil
	}
	return sm.sessions[playerID]
}

// Resume 用重连令牌恢复身份
// 内存中没有时尝试从 Redis 加载（服务重启后）
func (sm *SessionManager) Resume(ctx context.Context, token string) (*PlayerSession, error) {
	if token == "" {
		return nil, apperrors.ErrInvalidToken
	}

	session := sm.GetSessionByToken(token)
	if session == nil {
		data, err := sm.store.LoadSession(ctx, token)
		if err != nil {
			log.Warn().Err(err).Msg("⚠️ 加载会话失败")
		}
		if data == nil || data.PlayerID == "" {
			return nil, apperrors.ErrInvalidToken
		}
		session = &PlayerSession{
			PlayerID:       data.PlayerID,
			PlayerName:     data.PlayerName,
			ReconnectToken: data.ReconnectToken,
			RoomID:         data.RoomID,
		}
		sm.mu.Lock()
		sm.sessions[session.PlayerID] = session
		sm.tokens[token] = session.PlayerID
		sm.mu.Unlock()
	} else if !sm.canReconnect(session) {
		return nil, apperrors.ErrInvalidToken
	}

	session.mu.Lock()
	session.IsOnline = true
	session.DisconnectedAt = time.Time{}
	session.mu.Unlock()
	return session, nil
}

func (sm *SessionManager) canReconnect(session *PlayerSession) bool {
	session.mu.RLock()
	defer session.mu.RUnlock()
	return session.IsOnline || sm.clock.Now().Sub(session.DisconnectedAt) <= reconnectTimeout
}

// SetOffline 设置玩家离线
func (sm *SessionManager) SetOffline(playerID string) {
	if session := sm.GetSession(playerID); session != nil {
		session.mu.Lock()
		session.IsOnline = false
		session.DisconnectedAt = sm.clock.Now()
		session.mu.Unlock()
	}
}

// SetRoom 记录玩家所在房间
func (sm *SessionManager) SetRoom(playerID, roomID string) {
	if session := sm.GetSession(playerID); session != nil {
		session.mu.Lock()
		session.RoomID = roomID
		session.mu.Unlock()
		sm.persist(session)
	}
}

// SetName 更新玩家名
func (sm *SessionManager) SetName(playerID, name string) {
	if session := sm.GetSession(playerID); session != nil && name != "" {
		session.mu.Lock()
		session.PlayerName = name
		session.mu.Unlock()
		sm.persist(session)
	}
}

// IsOnline 检查玩家是否在线
func (sm *SessionManager) IsOnline(playerID string) bool {
	session := sm.GetSession(playerID)
	if session == nil {
		return false
	}
	session.mu.RLock()
	defer session.mu.RUnlock()
	return session.IsOnline
}

// Count 会话数量
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// Run 定期清理过期会话
func (sm *SessionManager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sm.Cleanup(sm.clock.Now())
		}
	}
}

// Cleanup 清理离线超过过期时间的会话
func (sm *SessionManager) Cleanup(now time.Time) int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	removed := 0
	for playerID, session := range sm.sessions {
		session.mu.RLock()
		expired := !session.IsOnline && now.Sub(session.DisconnectedAt) > sessionExpireTime
		session.mu.RUnlock()
		if expired {
			delete(sm.tokens, session.ReconnectToken)
			delete(sm.sessions, playerID)
			removed++
		}
	}
	return removed
}

func (sm *SessionManager) persist(session *PlayerSession) {
	data := session.Snapshot()
	if err := sm.store.SaveSession(context.Background(), &data); err != nil {
		log.Warn().Err(err).Str("player", data.PlayerID).Msg("⚠️ 保存会话失败")
	}
}

// generateToken 生成随机 token
func generateToken() string {
	bytes := make([]byte, 32)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
