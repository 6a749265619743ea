package server

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/palemoky/beer-pong/internal/game/room"
	"github.com/palemoky/beer-pong/internal/protocol"
	"github.com/palemoky/beer-pong/internal/protocol/codec"
)

// monitorStats 定期监控服务器状态
func (s *Server) monitorStats(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)

			log.Info().
				Int("online", s.hub.Count()).
				Int("rooms", s.rooms.Len()).
				Int("sessions", s.sessions.Count()).
				Int("goroutines", runtime.NumGoroutine()).
				Str("conns", fmt.Sprintf("%d/%d", len(s.semaphore), s.maxConnections)).
				Float64("mem_mb", float64(m.Alloc)/1024/1024).
				Msg("📊 [监控]")
		}
	}
}

// EnterMaintenanceMode 进入维护模式：拒绝新连接和新房间，进行中的对局不受影响
func (s *Server) EnterMaintenanceMode() {
	s.handler.SetMaintenance(true)
	s.hub.BroadcastAll(codec.NewErrorMessage(protocol.ErrCodeMaintenance))
	log.Info().Msg("🔧 进入维护模式：停止新连接和房间创建")
}

// IsMaintenanceMode 检查是否在维护模式
func (s *Server) IsMaintenanceMode() bool {
	return s.handler.IsMaintenanceMode()
}

// activeGames 进行中的对局数量
func (s *Server) activeGames() int {
	return len(s.rooms.List(room.Playing))
}

// GracefulShutdown 等待进行中的对局结束后关闭，超时强制关闭
func (s *Server) GracefulShutdown(timeout time.Duration) {
	s.EnterMaintenanceMode()

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		active := s.activeGames()
		if active == 0 {
			log.Info().Msg("✅ 所有对局已结束")
			break
		}
		log.Info().Int("games", active).Msg("⏳ 等待对局结束...")
		<-ticker.C
	}

	if active := s.activeGames(); active > 0 {
		log.Warn().Int("games", active).Msg("⚠️ 超时，仍有对局进行中，强制关闭")
	}

	s.Shutdown()
}

// Shutdown 关闭所有连接和 Redis
func (s *Server) Shutdown() {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(ctx)
	}

	s.hub.CloseAll()

	if s.redis != nil {
		_ = s.redis.Close()
	}

	log.Info().Msg("服务器已关闭")
}
