package room

import (
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/palemoky/beer-pong/internal/apperrors"
	"github.com/palemoky/beer-pong/internal/common/clock"
	"github.com/palemoky/beer-pong/internal/protocol"
)

const (
	roomCodeLength = 6                                  // 房间号长度
	roomCodeChars  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // 房间号字符集，去掉易混淆的 0/O、1/I
)

// Filter 大厅列表过滤条件
type Filter func(r *Room) bool

// Waiting 大厅只展示等待中的房间
func Waiting(r *Room) bool { return r.Status == StatusWaiting }

// Playing 对局进行中的房间
func Playing(r *Room) bool { return r.Status == StatusPlaying }

// Store 房间存储
type Store interface {
	Create(hostToken string) *Room
	Get(id string) (*Room, error)
	Delete(id string)
	List(filter Filter) []protocol.RoomListItem
	Len() int
}

// MemoryStore 进程内房间存储
type MemoryStore struct {
	clock       clock.Clock
	opts        Options
	idleTimeout time.Duration
	rooms       map[string]*Room
	mu          sync.RWMutex
}

// NewMemoryStore 创建房间存储
func NewMemoryStore(c clock.Clock, opts Options, idleTimeout time.Duration) *MemoryStore {
	if c == nil {
		c = clock.System{}
	}
	return &MemoryStore{
		clock:       c,
		opts:        opts,
		idleTimeout: idleTimeout,
		rooms:       make(map[string]*Room),
	}
}

// Create 创建房间，hostToken 为空时随机生成
func (s *MemoryStore) Create(hostToken string) *Room {
	if hostToken == "" {
		hostToken = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	room := newRoom(s.generateRoomCode(), hostToken, s.clock.Now(), s.opts)
	s.rooms[room.ID] = room

	log.Info().Str("room", room.ID).Msg("🏠 房间已创建")
	return room
}

// Get 获取房间
func (s *MemoryStore) Get(id string) (*Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[id]
	if !ok {
		return nil, apperrors.ErrRoomNotFound
	}
	return room, nil
}

// Delete 删除房间
func (s *MemoryStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, id)
}

// List 房间列表，按创建时间排序
func (s *MemoryStore) List(filter Filter) []protocol.RoomListItem {
	s.mu.RLock()
	rooms := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, r)
	}
	s.mu.RUnlock()

	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})

	items := make([]protocol.RoomListItem, 0, len(rooms))
	for _, r := range rooms {
		r.Lock()
		if !r.closed && (filter == nil || filter(r)) {
			items = append(items, r.Summary())
		}
		r.Unlock()
	}
	return items
}

// Len 房间数量
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// generateRoomCode 生成房间号（需持有写锁）
func (s *MemoryStore) generateRoomCode() string {
	for {
		code := make([]byte, roomCodeLength)
		for i := range code {
			code[i] = roomCodeChars[rand.IntN(len(roomCodeChars))]
		}
		codeStr := string(code)
		if _, exists := s.rooms[codeStr]; !exists {
			return codeStr
		}
	}
}
