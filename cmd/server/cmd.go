package main

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/palemoky/beer-pong/internal/config"
	"github.com/palemoky/beer-pong/internal/logger"
	"github.com/palemoky/beer-pong/internal/server"
)

const envPrefix = "BEERPONG"

// options 命令行参数，显式设置（或通过环境变量设置）的值覆盖配置文件
type options struct {
	configPath string
	host       string
	port       int
	staticDir  string
	publicURL  string
	redis      bool
	redisAddr  string
	logLevel   string
	logFormat  string

	changed map[string]bool
}

// load 读取配置文件（未指定时使用默认配置）并应用参数覆盖
func (o *options) load() (*config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return nil, fmt.Errorf("加载配置文件失败: %w", err)
		}
	}

	if o.changed["host"] {
		cfg.Server.Host = o.host
	}
	if o.changed["port"] {
		cfg.Server.Port = o.port
	}
	if o.changed["static-dir"] {
		cfg.Server.StaticDir = o.staticDir
	}
	if o.changed["public-url"] {
		cfg.Server.PublicURL = o.publicURL
	}
	if o.changed["redis"] {
		cfg.Redis.Enabled = o.redis
	}
	if o.changed["redis-addr"] {
		cfg.Redis.Addr = o.redisAddr
	}
	if o.changed["log-level"] {
		cfg.Log.Level = o.logLevel
	}
	if o.changed["log-format"] {
		cfg.Log.Format = o.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newCmd(opts *options) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:     "beer-pong-server",
		Short:   "Beer pong room and turn server",
		Args:    cobra.NoArgs,
		Version: server.Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
				return err
			}

			srv, err := server.NewServer(cfg)
			if err != nil {
				return fmt.Errorf("创建服务器失败: %w", err)
			}

			log.Info().Str("version", server.Version).Msg("🍻 Beer Pong 服务器启动中...")
			return srv.Start(cmd.Context())
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&opts.configPath, "config", "c", "", "path to YAML config file (env: BEERPONG_CONFIG)")
	fs.StringVarP(&opts.host, "host", "b", "0.0.0.0", "address to bind to (env: BEERPONG_HOST)")
	fs.IntVarP(&opts.port, "port", "p", 3001, "port to listen on (env: BEERPONG_PORT)")
	fs.StringVar(&opts.staticDir, "static-dir", "", "directory of frontend files to serve (env: BEERPONG_STATIC_DIR)")
	fs.StringVar(&opts.publicURL, "public-url", "", "external base URL used in join QR codes (env: BEERPONG_PUBLIC_URL)")
	fs.BoolVar(&opts.redis, "redis", false, "enable Redis persistence and leaderboard (env: BEERPONG_REDIS)")
	fs.StringVar(&opts.redisAddr, "redis-addr", "localhost:6379", "Redis address (env: BEERPONG_REDIS_ADDR)")
	fs.StringVar(&opts.logLevel, "log-level", "info", "log level (env: BEERPONG_LOG_LEVEL)")
	fs.StringVar(&opts.logFormat, "log-format", "console", "log format: console or json (env: BEERPONG_LOG_FORMAT)")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		opts.changed = make(map[string]bool)
		var err error
		fs.VisitAll(func(f *pflag.Flag) {
			_ = v.BindPFlag(f.Name, f)
			_ = v.BindEnv(f.Name)
			if !f.Changed && v.IsSet(f.Name) {
				if setErr := fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name))); setErr != nil && err == nil {
					err = fmt.Errorf("invalid %s_%s: %w", envPrefix, strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_")), setErr)
				}
			}
			opts.changed[f.Name] = f.Changed
		})
		return err
	}

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("beer-pong v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
