package room

import (
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/palemoky/beer-pong/internal/protocol"
)

// Player 房间中的玩家
// ID 是稳定的玩家身份，ConnID 随每次连接变化
type Player struct {
	ID        string
	ConnID    string
	Name      string
	Connected bool
	IsHost    bool
}

// Event 状态机产生的出站事件
// To 非空时只发给该玩家；Except 非空时广播给房间内除该玩家外的所有人
type Event struct {
	Type    protocol.MessageType
	Payload any
	To      string
	Except  string
}

// Options 房间规则参数
type Options struct {
	MaxPlayers     int  // 非主持人玩家上限
	CupsPerPlayer  int  // 每人杯子数
	FullFirstRound bool // 第一轮淘汰时是否让本轮剩余玩家投完再结算
	// Picker 从 n 个候选中选一个下标，用于选择先手
	Picker func(n int) int
}

// DefaultOptions 默认规则
func DefaultOptions() Options {
	return Options{
		MaxPlayers:     10,
		CupsPerPlayer:  6,
		FullFirstRound: true,
		Picker:         rand.IntN,
	}
}

// Room 游戏房间
type Room struct {
	ID             string             // 房间号
	HostToken      string             // 主持人凭证
	HostID         string             // 当前主持人的玩家 ID
	Status         Status             // 房间状态
	Players        map[string]*Player // 玩家列表（包括主持人）
	Order          []string           // 加入顺序，决定出手顺序
	ActivePlayerID string             // 当前出手玩家
	Round          int                // 当前轮次，从 1 开始
	Cups           map[string][]bool  // 每个玩家剩余的杯子
	Scores         map[string]int     // 得分
	CreatedAt      time.Time
	LastActivity   time.Time

	taken      map[string]bool // 本轮已出手的玩家
	pendingWin bool            // 第一轮出现淘汰，等本轮结束后结算
	closed     bool
	opts       Options

	mu sync.Mutex
}

func newRoom(id, hostToken string, now time.Time, opts Options) *Room {
	if opts.Picker == nil {
		opts.Picker = rand.IntN
	}
	return &Room{
		ID:           id,
		HostToken:    hostToken,
		Status:       StatusWaiting,
		Players:      make(map[string]*Player),
		Order:        make([]string, 0, opts.MaxPlayers+1),
		Round:        1,
		Cups:         make(map[string][]bool),
		Scores:       make(map[string]int),
		CreatedAt:    now,
		LastActivity: now,
		taken:        make(map[string]bool),
		opts:         opts,
	}
}

// Lock 锁住房间，命令处理和清理共用这一把锁
func (r *Room) Lock() { r.mu.Lock() }

// Unlock 解锁房间
func (r *Room) Unlock() { r.mu.Unlock() }

// Closed 房间是否已被拆除（需持有锁）
func (r *Room) Closed() bool { return r.closed }

// Touch 更新最后活跃时间（需持有锁）
func (r *Room) Touch(now time.Time) { r.LastActivity = now }

// Player 获取玩家
func (r *Room) Player(id string) (*Player, bool) {
	p, ok := r.Players[id]
	return p, ok
}

func (r *Room) freshCups() []bool {
	cups := make([]bool, r.opts.CupsPerPlayer)
	for i := range cups {
		cups[i] = true
	}
	return cups
}

func (r *Room) addPlayer(p *Player) {
	r.Players[p.ID] = p
	r.Order = append(r.Order, p.ID)
}

func (r *Room) removePlayer(id string) {
	delete(r.Players, id)
	r.Order = slices.DeleteFunc(r.Order, func(s string) bool { return s == id })
}

// eliminated 杯子全部被击中
func (r *Room) eliminated(id string) bool {
	cups, ok := r.Cups[id]
	if !ok {
		return false
	}
	return !slices.Contains(cups, true)
}

// eligible 可以出手：在线、非主持人、有杯子且未被淘汰
func (r *Room) eligible(id string) bool {
	p, ok := r.Players[id]
	if !ok || !p.Connected || p.IsHost {
		return false
	}
	if _, ok := r.Cups[id]; !ok {
		return false
	}
	return !r.eliminated(id)
}

func (r *Room) eligiblePlayers() []string {
	var ids []string
	for _, id := range r.Order {
		if r.eligible(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// connectedPlayers 在线的非主持人玩家，按加入顺序
func (r *Room) connectedPlayers() []string {
	var ids []string
	for _, id := range r.Order {
		if p := r.Players[id]; p.Connected && !p.IsHost {
			ids = append(ids, id)
		}
	}
	return ids
}

func (r *Room) nonHostCount() int {
	n := 0
	for _, p := range r.Players {
		if !p.IsHost {
			n++
		}
	}
	return n
}

// --- 投影 ---

// PlayerInfo 玩家信息
func (r *Room) PlayerInfo(id string) protocol.PlayerInfo {
	p, ok := r.Players[id]
	if !ok {
		return protocol.PlayerInfo{ID: id}
	}
	return protocol.PlayerInfo{
		ID:        p.ID,
		Name:      p.Name,
		Connected: p.Connected,
		IsHost:    p.IsHost,
	}
}

// PlayerInfos 按加入顺序列出所有玩家
func (r *Room) PlayerInfos() []protocol.PlayerInfo {
	infos := make([]protocol.PlayerInfo, 0, len(r.Order))
	for _, id := range r.Order {
		infos = append(infos, r.PlayerInfo(id))
	}
	return infos
}

// GameState 对局状态的拷贝
func (r *Room) GameState() protocol.GameState {
	cups := make(map[string][]bool, len(r.Cups))
	for id, c := range r.Cups {
		cups[id] = slices.Clone(c)
	}
	scores := make(map[string]int, len(r.Scores))
	for id, s := range r.Scores {
		scores[id] = s
	}
	return protocol.GameState{
		Round:        r.Round,
		ActivePlayer: r.ActivePlayerID,
		Cups:         cups,
		Scores:       scores,
	}
}

// Summary 大厅列表条目，不包含主持人凭证
func (r *Room) Summary() protocol.RoomListItem {
	return protocol.RoomListItem{
		ID:      r.ID,
		Status:  string(r.Status),
		Players: len(r.connectedPlayers()),
	}
}

func (r *Room) roomUpdate() Event {
	return Event{
		Type: protocol.MsgRoomUpdate,
		Payload: protocol.RoomUpdatePayload{
			RoomID:  r.ID,
			Players: r.PlayerInfos(),
			Status:  string(r.Status),
		},
	}
}
