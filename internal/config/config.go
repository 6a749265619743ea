package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 服务端配置
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Redis    RedisConfig    `yaml:"redis"`
	Game     GameConfig     `yaml:"game"`
	Security SecurityConfig `yaml:"security"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig HTTP / WebSocket 服务器配置
type ServerConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	StaticDir       string `yaml:"static_dir"`      // 前端静态文件目录，空则不提供
	PublicURL       string `yaml:"public_url"`      // 生成二维码时使用的外部地址
	ControllerPath  string `yaml:"controller_path"` // 手机控制器页面路径
	MaxConnections  int    `yaml:"max_connections"`
	ShutdownTimeout int    `yaml:"shutdown_timeout"` // 优雅关闭时等待对局结束的时长（秒）
}

// RedisConfig Redis 配置（可选，用于房间快照和排行榜）
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// GameConfig 游戏配置
type GameConfig struct {
	MaxPlayers      int  `yaml:"max_players"`       // 每个房间的非主持人玩家上限
	CupsPerPlayer   int  `yaml:"cups_per_player"`   // 每位玩家的杯子数
	RoomIdleTimeout int  `yaml:"room_idle_timeout"` // 房间空闲超时（分钟）
	CleanupInterval int  `yaml:"cleanup_interval"`  // 清理间隔（秒）
	FullFirstRound  bool `yaml:"full_first_round"`  // 第一轮淘汰时是否让其他玩家投完再结算
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	AllowedOrigins []string           `yaml:"allowed_origins"`
	ConnectLimit   ConnectLimitConfig `yaml:"connect_limit"`
	MessageLimit   MessageLimitConfig `yaml:"message_limit"`
}

// ConnectLimitConfig 单 IP 建立连接的速率限制
type ConnectLimitConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

// MessageLimitConfig 单连接消息速率限制
type MessageLimitConfig struct {
	PerSecond   float64 `yaml:"per_second"`
	Burst       int     `yaml:"burst"`
	MaxWarnings int     `yaml:"max_warnings"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console / json
}

// RoomIdleTimeoutDuration 返回房间空闲超时时长
func (c *GameConfig) RoomIdleTimeoutDuration() time.Duration {
	return time.Duration(c.RoomIdleTimeout) * time.Minute
}

// CleanupIntervalDuration 返回清理间隔
func (c *GameConfig) CleanupIntervalDuration() time.Duration {
	return time.Duration(c.CleanupInterval) * time.Second
}

// ShutdownTimeoutDuration 返回优雅关闭等待时长
func (c *ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return time.Duration(c.ShutdownTimeout) * time.Second
}

// Addr 返回监听地址
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load 加载配置文件
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3001,
			ControllerPath:  "/controller.html",
			MaxConnections:  1000,
			ShutdownTimeout: 30,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Game: GameConfig{
			MaxPlayers:      10,
			CupsPerPlayer:   6,
			RoomIdleTimeout: 30,
			CleanupInterval: 300,
			FullFirstRound:  true,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"*"},
			ConnectLimit: ConnectLimitConfig{
				PerSecond: 2,
				Burst:     10,
			},
			MessageLimit: MessageLimitConfig{
				PerSecond:   20,
				Burst:       40,
				MaxWarnings: 5,
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// applyDefaults 为文件中显式置零的字段补默认值
func (c *Config) applyDefaults() {
	def := Default()
	if c.Server.Host == "" {
		c.Server.Host = def.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = def.Server.Port
	}
	if c.Server.ControllerPath == "" {
		c.Server.ControllerPath = def.Server.ControllerPath
	}
	if c.Server.MaxConnections == 0 {
		c.Server.MaxConnections = def.Server.MaxConnections
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = def.Server.ShutdownTimeout
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = def.Redis.Addr
	}
	if c.Game.MaxPlayers == 0 {
		c.Game.MaxPlayers = def.Game.MaxPlayers
	}
	if c.Game.CupsPerPlayer == 0 {
		c.Game.CupsPerPlayer = def.Game.CupsPerPlayer
	}
	if c.Game.RoomIdleTimeout == 0 {
		c.Game.RoomIdleTimeout = def.Game.RoomIdleTimeout
	}
	if c.Game.CleanupInterval == 0 {
		c.Game.CleanupInterval = def.Game.CleanupInterval
	}
	if c.Security.ConnectLimit.PerSecond == 0 {
		c.Security.ConnectLimit.PerSecond = def.Security.ConnectLimit.PerSecond
	}
	if c.Security.ConnectLimit.Burst == 0 {
		c.Security.ConnectLimit.Burst = def.Security.ConnectLimit.Burst
	}
	if c.Security.MessageLimit.PerSecond == 0 {
		c.Security.MessageLimit.PerSecond = def.Security.MessageLimit.PerSecond
	}
	if c.Security.MessageLimit.Burst == 0 {
		c.Security.MessageLimit.Burst = def.Security.MessageLimit.Burst
	}
	if c.Security.MessageLimit.MaxWarnings == 0 {
		c.Security.MessageLimit.MaxWarnings = def.Security.MessageLimit.MaxWarnings
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Server.Port)
	}
	if c.Game.MaxPlayers < 1 {
		return errors.New("game.max_players must be positive")
	}
	if c.Game.CupsPerPlayer < 1 {
		return errors.New("game.cups_per_player must be positive")
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}
