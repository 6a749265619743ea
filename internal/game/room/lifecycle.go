package room

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// emptyGrace 等待中的空房间在此时间后才会被清理，避免刚创建的房间被误删
const emptyGrace = time.Minute

// Expired 被清理的房间及其需要广播的事件
type Expired struct {
	RoomID string
	Events []Event
}

// Cleanup 清理超时房间
// 与命令处理使用同一把房间锁，被清理的房间标记为已关闭
func (s *MemoryStore) Cleanup(now time.Time) []Expired {
	s.mu.RLock()
	rooms := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, r)
	}
	s.mu.RUnlock()

	var expired []Expired
	for _, r := range rooms {
		r.Lock()
		if r.closed || s.shouldExpire(r, now) {
			var events []Event
			if !r.closed {
				events = r.Expire()
			}
			expired = append(expired, Expired{RoomID: r.ID, Events: events})
		}
		r.Unlock()
	}

	for _, e := range expired {
		s.Delete(e.RoomID)
		log.Info().Str("room", e.RoomID).Msg("🧹 房间超时已清理")
	}
	return expired
}

func (s *MemoryStore) shouldExpire(r *Room, now time.Time) bool {
	idle := now.Sub(r.LastActivity)
	if s.idleTimeout > 0 && idle > s.idleTimeout {
		return true
	}
	if r.Status != StatusWaiting || idle < emptyGrace {
		return false
	}
	for _, p := range r.Players {
		if p.Connected {
			return false
		}
	}
	return true
}

// Run 定期清理，直到 ctx 取消
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration, onExpire func(Expired)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, e := range s.Cleanup(s.clock.Now()) {
				if onExpire != nil {
					onExpire(e)
				}
			}
		}
	}
}
