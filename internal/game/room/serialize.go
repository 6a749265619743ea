package room

import (
	"slices"
	"time"

	"github.com/palemoky/beer-pong/internal/server/storage"
)

// ToRoomData 将 Room 转换为可序列化的 RoomData（需持有锁）
func (r *Room) ToRoomData() *storage.RoomData {
	data := &storage.RoomData{
		ID:         r.ID,
		HostToken:  r.HostToken,
		HostID:     r.HostID,
		Status:     string(r.Status),
		Players:    make([]storage.PlayerData, 0, len(r.Order)),
		Round:      r.Round,
		Cups:       make(map[string][]bool, len(r.Cups)),
		Scores:     make(map[string]int, len(r.Scores)),
		CreatedAt:  r.CreatedAt.Unix(),
		LastActive: r.LastActivity.Unix(),
	}

	for _, id := range r.Order {
		p := r.Players[id]
		data.Players = append(data.Players, storage.PlayerData{
			ID:     p.ID,
			Name:   p.Name,
			IsHost: p.IsHost,
		})
	}
	for id, cups := range r.Cups {
		data.Cups[id] = slices.Clone(cups)
	}
	for id, score := range r.Scores {
		data.Scores[id] = score
	}
	return data
}

// Restore 从快照恢复房间
// 所有玩家视为离线；对局中的房间无法继续，回到等待状态
func (s *MemoryStore) Restore(snapshots []*storage.RoomData) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	restored := 0
	for _, data := range snapshots {
		if data == nil || data.ID == "" {
			continue
		}
		if _, exists := s.rooms[data.ID]; exists {
			continue
		}

		r := newRoom(data.ID, data.HostToken, time.Unix(data.CreatedAt, 0), s.opts)
		r.HostID = data.HostID
		// 恢复后重新计算空闲时间，给玩家留出重连窗口
		r.LastActivity = s.clock.Now()
		r.Status = Status(data.Status)
		r.Round = max(data.Round, 1)

		for _, pd := range data.Players {
			r.addPlayer(&Player{ID: pd.ID, Name: pd.Name, IsHost: pd.IsHost})
		}
		for id, cups := range data.Cups {
			if len(cups) == s.opts.CupsPerPlayer {
				r.Cups[id] = slices.Clone(cups)
			}
		}
		for id, score := range data.Scores {
			r.Scores[id] = score
		}

		if r.Status != StatusEnded {
			r.resetBoard()
		}
		for _, id := range r.Order {
			if _, ok := r.Cups[id]; !ok && !r.Players[id].IsHost {
				r.Cups[id] = r.freshCups()
			}
		}
		s.rooms[r.ID] = r
		restored++
	}
	return restored
}
