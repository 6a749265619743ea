package protocol

// --- 客户端请求 Payloads ---

// ReconnectPayload 断线重连请求
type ReconnectPayload struct {
	Token string `json:"token"` // 重连令牌
}

// PingPayload 心跳请求
type PingPayload struct {
	Timestamp int64 `json:"timestamp"` // 客户端时间戳（毫秒）
}

// CreateRoomPayload 创建房间请求
type CreateRoomPayload struct {
	HostToken string `json:"hostToken,omitempty"`
}

// JoinRoomPayload 加入房间请求
type JoinRoomPayload struct {
	RoomID       string `json:"roomId"`
	Name         string `json:"name,omitempty"`
	IsHost       bool   `json:"isHost,omitempty"`
	IsSpectator  bool   `json:"isSpectator,omitempty"`
	IsController bool   `json:"isController,omitempty"`
	HostToken    string `json:"hostToken,omitempty"`
}

// Velocity 投掷速度，服务端不解释
type Velocity struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ThrowPayload 投掷（客户端上报与服务端转发共用）
type ThrowPayload struct {
	RoomID   string   `json:"roomId,omitempty"`
	PlayerID string   `json:"playerId,omitempty"`
	Velocity Velocity `json:"velocity"`
}

// CupHitPayload 命中杯子
type CupHitPayload struct {
	RoomID   string `json:"roomId,omitempty"`
	CupIndex int    `json:"cupIndex"`
	PlayerID string `json:"playerId"`
}

// GetLeaderboardPayload 获取排行榜请求
type GetLeaderboardPayload struct {
	Limit int  `json:"limit"`
	Daily bool `json:"daily,omitempty"` // 今日榜
}

// --- 服务端响应 Payloads ---

// ConnectedPayload 连接成功响应
type ConnectedPayload struct {
	PlayerID       string `json:"playerId"`
	PlayerName     string `json:"playerName"`
	ReconnectToken string `json:"reconnectToken"`
}

// ReconnectedPayload 重连成功响应
type ReconnectedPayload struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	RoomID     string `json:"roomId,omitempty"` // 断线前所在房间，客户端据此重新 joinRoom
}

// PongPayload 心跳响应
type PongPayload struct {
	ClientTimestamp int64 `json:"clientTimestamp"`
	ServerTimestamp int64 `json:"serverTimestamp"`
}

// PlayerInfo 玩家信息
type PlayerInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
	IsHost    bool   `json:"isHost"`
}

// GameState 对局状态
type GameState struct {
	Round        int               `json:"round"`
	ActivePlayer string            `json:"activePlayer,omitempty"`
	Cups         map[string][]bool `json:"cups"`
	Scores       map[string]int    `json:"scores"`
}

// RoomCreatedPayload 房间创建成功
type RoomCreatedPayload struct {
	RoomID    string       `json:"roomId"`
	HostToken string       `json:"hostToken"`
	Players   []PlayerInfo `json:"players"`
}

// JoinResponsePayload 加入房间结果
type JoinResponsePayload struct {
	Success     bool        `json:"success"`
	Message     string      `json:"message,omitempty"`
	RoomID      string      `json:"roomId"`
	IsHost      bool        `json:"isHost,omitempty"`
	IsSpectator bool        `json:"isSpectator,omitempty"`
	PlayerInfo  *PlayerInfo `json:"playerInfo,omitempty"`
	GameState   *GameState  `json:"gameState,omitempty"`
}

// RoomUpdatePayload 房间成员/状态广播
type RoomUpdatePayload struct {
	RoomID  string       `json:"roomId"`
	Players []PlayerInfo `json:"players"`
	Status  string       `json:"status"`
}

// GameStartedPayload 游戏开始广播
type GameStartedPayload struct {
	FirstPlayer     string    `json:"firstPlayer"`
	FirstPlayerName string    `json:"firstPlayerName"`
	GameState       GameState `json:"gameState"`
}

// TurnChangePayload 换人广播
type TurnChangePayload struct {
	ActivePlayer PlayerInfo `json:"activePlayer"`
	GameState    GameState  `json:"gameState"`
}

// NewRoundPayload 新一轮广播
type NewRoundPayload struct {
	Round        int        `json:"round"`
	ActivePlayer PlayerInfo `json:"activePlayer"`
}

// PlayerWonPayload 对局结束广播
type PlayerWonPayload struct {
	Player      PlayerInfo     `json:"player"`
	IsTie       bool           `json:"isTie"`
	TiedPlayers []PlayerInfo   `json:"tiedPlayers,omitempty"`
	Scores      map[string]int `json:"scores"`
}

// PlayerDisconnectedPayload 对局中玩家掉线
type PlayerDisconnectedPayload struct {
	PlayerID     string      `json:"playerId"`
	ActivePlayer *PlayerInfo `json:"activePlayer,omitempty"`
}

// RoomClosedPayload 房间关闭通知
type RoomClosedPayload struct {
	Reason string `json:"reason"`
}

// RoomListItem 大厅房间条目
type RoomListItem struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Players int    `json:"players"`
}

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Rank int    `json:"rank"`
	Name string `json:"name"`
	Wins int64  `json:"wins"`
}

// LeaderboardPayload 排行榜结果
type LeaderboardPayload struct {
	Daily   bool               `json:"daily,omitempty"`
	Entries []LeaderboardEntry `json:"entries"`
}

// ErrorPayload 错误消息
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
