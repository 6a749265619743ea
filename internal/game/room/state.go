package room

// Status 房间状态
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusPlaying Status = "playing"
	StatusEnded   Status = "ended"
)

// 关闭原因
const (
	ReasonHostDisconnected = "Host disconnected"
	ReasonHostReplaced     = "host replaced"
	ReasonReplaced         = "replaced"
	ReasonClosedByHost     = "Room closed by host"
	ReasonIdle             = "Room expired"
)

const hostName = "Host"
