package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/palemoky/beer-pong/internal/protocol"
	"github.com/palemoky/beer-pong/internal/protocol/codec"
)

// Phase 记分板阶段
type Phase int

const (
	PhaseConnecting Phase = iota
	PhaseReconnecting
	PhaseWatching
	PhaseClosed
)

// 收到重置前未见过杯子时使用的默认杯数
const defaultCups = 6

// Sender 发送消息到服务器
type Sender interface {
	Send(typ protocol.MessageType, payload any) error
}

// Model 记分板 model：以观众身份加入房间并展示对局
type Model struct {
	sender Sender
	events <-chan tea.Msg
	roomID string
	phase  Phase

	status    string
	players   []protocol.PlayerInfo
	state     protocol.GameState
	winner    string
	lastThrow string
	notice    string
	err       string

	leaderboard     []protocol.LeaderboardEntry
	showLeaderboard bool
	dailyBoard      bool

	latency          int64
	reconnectAttempt int
	reconnectMax     int

	spinner spinner.Model
	width   int
}

// NewModel 创建记分板，events 由连接层投递 ServerMessage 等消息
func NewModel(sender Sender, events <-chan tea.Msg, roomID string) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = StatusStyle

	return &Model{
		sender:  sender,
		events:  events,
		roomID:  roomID,
		phase:   PhaseConnecting,
		spinner: sp,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, listen(m.events))
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case ServerMessage:
		m.handleServerMessage(msg.Msg)
		return m, listen(m.events)

	case ReconnectingMsg:
		m.phase = PhaseReconnecting
		m.reconnectAttempt = msg.Attempt
		m.reconnectMax = msg.MaxTries
		return m, listen(m.events)

	case ReconnectSuccessMsg:
		// 观众不在会话中记录房间，重连后重新加入
		m.join()
		return m, listen(m.events)

	case ConnectionErrorMsg:
		m.err = msg.Err.Error()
		return m, listen(m.events)

	case DisconnectedMsg:
		m.phase = PhaseClosed
		m.notice = "连接已断开"
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		return tea.Quit
	case "l":
		m.showLeaderboard = !m.showLeaderboard
		if m.showLeaderboard {
			m.requestLeaderboard()
		}
	case "d":
		m.dailyBoard = !m.dailyBoard
		if m.showLeaderboard {
			m.requestLeaderboard()
		}
	case "p":
		m.send(protocol.MsgPing, protocol.PingPayload{Timestamp: time.Now().UnixMilli()})
	}
	return nil
}

func (m *Model) send(typ protocol.MessageType, payload any) {
	if err := m.sender.Send(typ, payload); err != nil {
		m.err = err.Error()
	}
}

func (m *Model) requestLeaderboard() {
	m.send(protocol.MsgGetLeaderboard, protocol.GetLeaderboardPayload{Limit: 10, Daily: m.dailyBoard})
}

func (m *Model) join() {
	m.send(protocol.MsgJoinRoom, protocol.JoinRoomPayload{RoomID: m.roomID, IsSpectator: true})
}

// handleServerMessage 按消息类型更新记分板状态
func (m *Model) handleServerMessage(msg *protocol.Message) {
	switch msg.Type {
	case protocol.MsgConnected:
		m.join()

	case protocol.MsgJoinResponse:
		p := parse[protocol.JoinResponsePayload](msg)
		if p == nil {
			return
		}
		if !p.Success {
			m.phase = PhaseClosed
			m.err = p.Message
			return
		}
		m.phase = PhaseWatching
		m.roomID = p.RoomID
		m.err = ""
		if p.GameState != nil {
			m.state = *p.GameState
		}

	case protocol.MsgRoomUpdate:
		if p := parse[protocol.RoomUpdatePayload](msg); p != nil {
			m.players = p.Players
			m.status = p.Status
		}

	case protocol.MsgGameStarted:
		if p := parse[protocol.GameStartedPayload](msg); p != nil {
			m.state = p.GameState
			m.winner = ""
			m.lastThrow = ""
			m.notice = p.FirstPlayerName + " 先手"
		}

	case protocol.MsgTurnChange:
		if p := parse[protocol.TurnChangePayload](msg); p != nil {
			m.state = p.GameState
			m.notice = ""
		}

	case protocol.MsgNewRound:
		if p := parse[protocol.NewRoundPayload](msg); p != nil {
			m.state.Round = p.Round
			m.notice = "新一轮开始"
		}

	case protocol.MsgThrow:
		if p := parse[protocol.ThrowPayload](msg); p != nil {
			m.lastThrow = m.nameOf(p.PlayerID)
		}

	case protocol.MsgPlayerWon:
		if p := parse[protocol.PlayerWonPayload](msg); p != nil {
			m.state.Scores = p.Scores
			m.state.ActivePlayer = ""
			m.winner = winnerText(p)
		}

	case protocol.MsgPlayerDisconnected:
		if p := parse[protocol.PlayerDisconnectedPayload](msg); p != nil {
			m.notice = m.nameOf(p.PlayerID) + " 掉线了"
			if p.ActivePlayer != nil {
				m.state.ActivePlayer = p.ActivePlayer.ID
			}
		}

	case protocol.MsgGameReset:
		m.resetBoard()
		m.winner = ""
		m.lastThrow = ""
		m.notice = "游戏已重置"

	case protocol.MsgRoomClosed:
		m.phase = PhaseClosed
		if p := parse[protocol.RoomClosedPayload](msg); p != nil {
			m.notice = "房间已关闭: " + p.Reason
		}

	case protocol.MsgLeaderboard:
		if p := parse[protocol.LeaderboardPayload](msg); p != nil {
			m.leaderboard = p.Entries
			m.dailyBoard = p.Daily
		}

	case protocol.MsgPong:
		if p := parse[protocol.PongPayload](msg); p != nil {
			m.latency = time.Now().UnixMilli() - p.ClientTimestamp
		}

	case protocol.MsgError:
		if p := parse[protocol.ErrorPayload](msg); p != nil {
			m.err = p.Message
		}
	}
}

// resetBoard 重置后所有玩家杯子摆满、比分归零
func (m *Model) resetBoard() {
	cups := defaultCups
	for _, c := range m.state.Cups {
		cups = len(c)
		break
	}

	m.state = protocol.GameState{
		Round:  1,
		Cups:   make(map[string][]bool),
		Scores: make(map[string]int),
	}
	for _, p := range m.players {
		if p.IsHost {
			continue
		}
		full := make([]bool, cups)
		for i := range full {
			full[i] = true
		}
		m.state.Cups[p.ID] = full
		m.state.Scores[p.ID] = 0
	}
}

func (m *Model) nameOf(playerID string) string {
	for _, p := range m.players {
		if p.ID == playerID {
			return p.Name
		}
	}
	return playerID
}

func winnerText(p *protocol.PlayerWonPayload) string {
	if !p.IsTie {
		return p.Player.Name + " 获胜！"
	}
	names := make([]string, 0, len(p.TiedPlayers))
	for _, tp := range p.TiedPlayers {
		names = append(names, tp.Name)
	}
	return strings.Join(names, "、") + " 并列第一！"
}

func parse[T any](msg *protocol.Message) *T {
	p, err := codec.ParsePayload[T](msg)
	if err != nil {
		return nil
	}
	return p
}
