package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/palemoky/beer-pong/internal/protocol"
)

func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render(fmt.Sprintf("🍻 Beer Pong · 房间 %s", m.roomID)))
	b.WriteString("\n\n")

	switch m.phase {
	case PhaseConnecting:
		b.WriteString(m.spinner.View() + " 正在连接服务器...")
	case PhaseReconnecting:
		b.WriteString(m.spinner.View() + fmt.Sprintf(" 连接断开，正在重连 (%d/%d)...", m.reconnectAttempt, m.reconnectMax))
	default:
		b.WriteString(m.boardView())
	}

	if m.showLeaderboard {
		b.WriteString("\n\n")
		b.WriteString(leaderboardView(m.leaderboard, m.dailyBoard))
	}

	if m.err != "" {
		b.WriteString("\n\n" + ErrorStyle.Render("⚠️ "+m.err))
	}

	help := "q 退出 · l 排行榜 · d 总榜/今日 · p 测速"
	if m.latency > 0 {
		help += LatencyStyle.Render(fmt.Sprintf(" · %dms", m.latency))
	}
	b.WriteString("\n" + HelpStyle.Render(help))

	return DocStyle.Render(b.String())
}

// boardView 玩家列表、杯子与分数
func (m *Model) boardView() string {
	var b strings.Builder

	status := m.status
	if status == "" {
		status = "waiting"
	}
	b.WriteString(StatusStyle.Render(fmt.Sprintf("状态: %s · 第 %d 轮", status, max(m.state.Round, 1))))
	b.WriteString("\n")

	rows := make([]string, 0, len(m.players))
	for _, p := range m.players {
		if p.IsHost {
			continue
		}
		rows = append(rows, m.playerRow(p))
	}
	if len(rows) == 0 {
		rows = append(rows, MutedStyle.Render("等待玩家扫码加入..."))
	}
	b.WriteString(BoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...)))

	if m.lastThrow != "" {
		b.WriteString("\n" + m.lastThrow + " 投出了一球")
	}
	if m.notice != "" {
		b.WriteString("\n" + MutedStyle.Render(m.notice))
	}
	if m.winner != "" {
		b.WriteString("\n\n" + WinnerStyle.Render(WinnerIcon+" "+m.winner))
	}
	return b.String()
}

func (m *Model) playerRow(p protocol.PlayerInfo) string {
	marker := "  "
	if p.ID == m.state.ActivePlayer {
		marker = ActiveIcon
	}

	name := p.Name
	switch {
	case !p.Connected:
		name = MutedStyle.Render(name + " " + OfflineIcon)
	case p.ID == m.state.ActivePlayer:
		name = ActiveStyle.Render(name)
	}

	return fmt.Sprintf("%s %-16s %s  %d 分", marker, name, cupsView(m.state.Cups[p.ID]), m.state.Scores[p.ID])
}

func cupsView(cups []bool) string {
	parts := make([]string, len(cups))
	for i, up := range cups {
		if up {
			parts[i] = CupIcon
		} else {
			parts[i] = EmptyCupIcon
		}
	}
	return strings.Join(parts, " ")
}

func leaderboardView(entries []protocol.LeaderboardEntry, daily bool) string {
	if len(entries) == 0 {
		return BoxStyle.Render(MutedStyle.Render("暂无排行榜数据"))
	}
	title := "🏆 胜场排行榜"
	if daily {
		title = "🏆 今日胜场榜"
	}
	lines := []string{TitleStyle.Render(title)}
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%2d. %-16s %d", e.Rank, e.Name, e.Wins))
	}
	return BoxStyle.Render(strings.Join(lines, "\n"))
}
