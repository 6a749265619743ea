package protocol

// 错误码
const (
	ErrCodeUnknown        = 1000
	ErrCodeInvalidMsg     = 1001
	ErrCodeRateLimit      = 1002
	ErrCodeInvalidToken   = 1003
	ErrCodeRoomNotFound   = 2001
	ErrCodeRoomFull       = 2002
	ErrCodeNotInRoom      = 2003
	ErrCodeGameInProgress = 2004
	ErrCodeNotHost        = 2005
	ErrCodeInvalidJoin    = 2006
	ErrCodeNotPlaying     = 3001
	ErrCodeNotYourTurn    = 3002
	ErrCodeNoPlayers      = 3003
	ErrCodeInvalidCup     = 3004
	ErrCodePlayerNotFound = 3005
	ErrCodeMaintenance    = 5001
	ErrCodeUnavailable    = 5003
)

// ErrorMessages 错误码对应的消息
var ErrorMessages = map[int]string{
	ErrCodeUnknown:        "Unknown error",
	ErrCodeInvalidMsg:     "Invalid message",
	ErrCodeRateLimit:      "Too many requests",
	ErrCodeInvalidToken:   "Invalid host token",
	ErrCodeRoomNotFound:   "Room not found. It may have expired or been closed.",
	ErrCodeRoomFull:       "Room is full",
	ErrCodeNotInRoom:      "You are not in a room",
	ErrCodeGameInProgress: "Game already in progress",
	ErrCodeNotHost:        "Only the host can do that",
	ErrCodeInvalidJoin:    "Invalid join request",
	ErrCodeNotPlaying:     "Game is not in progress",
	ErrCodeNotYourTurn:    "It's not your turn",
	ErrCodeNoPlayers:      "Need at least one player to start",
	ErrCodeInvalidCup:     "Invalid cup index",
	ErrCodePlayerNotFound: "Player not found",
	ErrCodeMaintenance:    "Server is under maintenance",
	ErrCodeUnavailable:    "Feature unavailable",
}
