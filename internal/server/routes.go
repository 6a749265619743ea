package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"

	"github.com/palemoky/beer-pong/internal/game/room"
)

const qrSize = 320 // 手机扫码友好的尺寸

// routes 注册 HTTP 路由
func (s *Server) routes() *httprouter.Router {
	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
		log.Error().Interface("panic", v).Str("path", r.URL.Path).Msg("💥 HTTP handler panic")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}

	mux.GET("/ws", s.handleWebSocket)
	mux.GET("/health", s.handleHealth)
	mux.GET("/version", s.handleVersion)
	mux.GET("/api/rooms", s.handleRoomList)
	mux.GET("/api/rooms/:id/qr", s.handleRoomQR)
	mux.GET("/api/players/:name/wins", s.handlePlayerWins)

	// 前端页面（控制器、游戏画面、大厅）
	if dir := s.config.Server.StaticDir; dir != "" {
		mux.NotFound = http.FileServer(http.Dir(dir))
	}

	return mux
}

// handleHealth 健康检查接口
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := s.redisStore.Ping(r.Context()); err != nil {
		http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleVersion 版本信息
func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("beer-pong " + Version + "\n"))
}

// handleRoomList 大厅房间列表
func (s *Server) handleRoomList(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.rooms.List(room.Waiting)); err != nil {
		log.Warn().Err(err).Msg("写入房间列表失败")
	}
}

// handleRoomQR 生成手机控制器加入链接的二维码
func (s *Server) handleRoomQR(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	roomID := strings.ToUpper(ps.ByName("id"))
	if _, err := s.rooms.Get(roomID); err != nil {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	png, err := qrcode.Encode(s.joinURL(r, roomID), qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

// handlePlayerWins 玩家总胜场，未启用 Redis 时 503
func (s *Server) handlePlayerWins(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if !s.leaderboard.Enabled() {
		http.Error(w, "leaderboard disabled", http.StatusServiceUnavailable)
		return
	}

	name := ps.ByName("name")
	wins, err := s.leaderboard.GetWins(r.Context(), name)
	if err != nil {
		log.Warn().Err(err).Str("player", name).Msg("⚠️ 查询胜场失败")
		http.Error(w, "leaderboard unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"name": name, "wins": wins})
}

// joinURL 控制器加入链接，未配置 public_url 时从请求推导
func (s *Server) joinURL(r *http.Request, roomID string) string {
	base := strings.TrimSuffix(s.config.Server.PublicURL, "/")
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}
	return base + s.config.Server.ControllerPath + "?room=" + url.QueryEscape(roomID)
}
