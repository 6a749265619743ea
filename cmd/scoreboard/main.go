package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/palemoky/beer-pong/internal/logger"
	"github.com/palemoky/beer-pong/internal/protocol"
	"github.com/palemoky/beer-pong/internal/server"
	"github.com/palemoky/beer-pong/internal/transport"
	"github.com/palemoky/beer-pong/internal/ui"
)

type options struct {
	server  string
	room    string
	codec   string
	logFile string
}

func main() {
	if err := newCmd(&options{}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "scoreboard",
		Short:   "Watch a beer pong room from the terminal",
		Args:    cobra.NoArgs,
		Version: server.Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&opts.server, "server", "s", "localhost:3001", "server address")
	fs.StringVarP(&opts.room, "room", "r", "", "room code to watch")
	fs.StringVar(&opts.codec, "codec", "json", "wire codec: json or proto")
	fs.StringVar(&opts.logFile, "log-file", "", "write debug logs to this file")
	_ = cmd.MarkFlagRequired("room")

	cmd.SilenceUsage = true
	return cmd
}

// serverURL 补全 ws:// 前缀与 /ws 路径
func serverURL(addr string) string {
	if !strings.HasPrefix(addr, "ws://") && !strings.HasPrefix(addr, "wss://") {
		addr = "ws://" + addr
	}
	if !strings.HasSuffix(addr, "/ws") {
		addr = strings.TrimSuffix(addr, "/") + "/ws"
	}
	return addr
}

func run(ctx context.Context, opts *options) error {
	// 终端界面占用 stdout，日志只写文件
	logger.Discard()
	if opts.logFile != "" {
		f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := logger.InitWithWriter(f, "debug", "json"); err != nil {
			return err
		}
	}

	client := transport.NewClient(serverURL(opts.server), opts.codec)
	events := bridge(client)

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Connect(dialCtx); err != nil {
		return fmt.Errorf("连接服务器失败: %w", err)
	}
	defer client.Close()
	client.StartHeartbeat()

	model := ui.NewModel(client, events, strings.ToUpper(opts.room))
	_, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

// bridge 把连接层回调转成 tea.Msg
func bridge(c *transport.Client) <-chan tea.Msg {
	events := make(chan tea.Msg, 64)
	post := func(msg tea.Msg) {
		select {
		case events <- msg:
		default:
		}
	}

	c.OnMessage = func(msg *protocol.Message) { post(ui.ServerMessage{Msg: msg}) }
	c.OnError = func(err error) { post(ui.ConnectionErrorMsg{Err: err}) }
	c.OnReconnecting = func(attempt, maxTries int) { post(ui.ReconnectingMsg{Attempt: attempt, MaxTries: maxTries}) }
	c.OnReconnect = func() { post(ui.ReconnectSuccessMsg{}) }
	c.OnClose = func() { post(ui.DisconnectedMsg{}) }
	return events
}
