package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/palemoky/beer-pong/internal/config"
	"github.com/palemoky/beer-pong/internal/game/room"
	"github.com/palemoky/beer-pong/internal/server/handler"
	"github.com/palemoky/beer-pong/internal/server/relay"
	"github.com/palemoky/beer-pong/internal/server/session"
	"github.com/palemoky/beer-pong/internal/server/storage"
)

// Version 构建时通过 -ldflags 注入
var Version = "dev"

// Server WebSocket 服务器
type Server struct {
	config      *config.Config
	redis       *redis.Client // 未启用时为 nil
	redisStore  *storage.RedisStore
	leaderboard *storage.LeaderboardManager
	rooms       *room.MemoryStore
	sessions    *session.SessionManager
	hub         *relay.Hub
	handler     *handler.Handler
	router      *httprouter.Router
	httpServer  *http.Server
	upgrader    websocket.Upgrader

	// 安全组件
	rateLimiter   *RateLimiter
	originChecker *OriginChecker

	// 连接控制
	maxConnections int
	semaphore      chan struct{} // 信号量控制并发连接数
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config) (*Server, error) {
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis 连接失败: %w", err)
		}
	}
	return newServer(cfg, rdb), nil
}

func newServer(cfg *config.Config, rdb *redis.Client) *Server {
	opts := room.DefaultOptions()
	opts.MaxPlayers = cfg.Game.MaxPlayers
	opts.CupsPerPlayer = cfg.Game.CupsPerPlayer
	opts.FullFirstRound = cfg.Game.FullFirstRound

	s := &Server{
		config:         cfg,
		redis:          rdb,
		redisStore:     storage.NewRedisStore(rdb),
		leaderboard:    storage.NewLeaderboardManager(rdb),
		rooms:          room.NewMemoryStore(nil, opts, cfg.Game.RoomIdleTimeoutDuration()),
		hub:            relay.NewHub(),
		rateLimiter:    NewRateLimiter(cfg.Security.ConnectLimit.PerSecond, cfg.Security.ConnectLimit.Burst),
		originChecker:  NewOriginChecker(cfg.Security.AllowedOrigins),
		maxConnections: cfg.Server.MaxConnections,
		semaphore:      make(chan struct{}, cfg.Server.MaxConnections),
	}
	s.sessions = session.NewSessionManager(nil, s.redisStore)

	deps := handler.HandlerDeps{
		Rooms:    s.rooms,
		Sessions: s.sessions,
		Hub:      s.hub,
	}
	if s.redisStore.Enabled() {
		deps.Snapshots = s.redisStore
		deps.Leaderboard = s.leaderboard
	}
	s.handler = handler.NewHandler(deps)

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.originChecker.Check,
	}
	s.router = s.routes()

	log.Info().
		Float64("connect_per_second", cfg.Security.ConnectLimit.PerSecond).
		Float64("message_per_second", cfg.Security.MessageLimit.PerSecond).
		Int("max_connections", cfg.Server.MaxConnections).
		Bool("redis", rdb != nil).
		Msg("🔒 安全配置")
	return s
}

// Handler HTTP 入口
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start 启动服务器，ctx 取消后优雅关闭
func (s *Server) Start(ctx context.Context) error {
	s.restoreRooms(ctx)

	bg, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.rooms.Run(bg, s.config.Game.CleanupIntervalDuration(), s.handler.Expire)
	go s.sessions.Run(bg, time.Minute)
	go s.rateLimiter.Run(bg)
	go s.monitorStats(bg)

	s.httpServer = &http.Server{
		Addr:              s.config.Server.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second, // 防止 Slowloris 攻击
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.config.Server.Addr()).Str("version", Version).Msg("🚀 服务器启动")
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.GracefulShutdown(s.config.Server.ShutdownTimeoutDuration())
		return nil
	}
}

// restoreRooms 从 Redis 快照恢复房间
func (s *Server) restoreRooms(ctx context.Context) {
	if !s.redisStore.Enabled() {
		return
	}
	snapshots, err := s.redisStore.LoadAllRooms(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("⚠️ 加载房间快照失败")
		return
	}
	if n := s.rooms.Restore(snapshots); n > 0 {
		log.Info().Int("rooms", n).Msg("♻️ 已从 Redis 恢复房间")
	}
}
