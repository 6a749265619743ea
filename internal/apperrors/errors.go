package apperrors

import (
	"github.com/palemoky/beer-pong/internal/protocol"
)

// GameError 游戏错误（房间、会话和中继共享）
type GameError struct {
	Code    int
	Message string
}

func (e *GameError) Error() string {
	return e.Message
}

func newError(code int) *GameError {
	return &GameError{Code: code, Message: protocol.ErrorMessages[code]}
}

// 预定义错误
var (
	ErrRoomNotFound   = newError(protocol.ErrCodeRoomNotFound)
	ErrInvalidToken   = newError(protocol.ErrCodeInvalidToken)
	ErrNotHost        = newError(protocol.ErrCodeNotHost)
	ErrNotYourTurn    = newError(protocol.ErrCodeNotYourTurn)
	ErrNotPlaying     = newError(protocol.ErrCodeNotPlaying)
	ErrRoomFull       = newError(protocol.ErrCodeRoomFull)
	ErrGameInProgress = newError(protocol.ErrCodeGameInProgress)
	ErrNoPlayers      = newError(protocol.ErrCodeNoPlayers)

	ErrNotInRoom      = newError(protocol.ErrCodeNotInRoom)
	ErrInvalidJoin    = newError(protocol.ErrCodeInvalidJoin)
	ErrInvalidCup     = newError(protocol.ErrCodeInvalidCup)
	ErrPlayerNotFound = newError(protocol.ErrCodePlayerNotFound)
)
