package room

import (
	"fmt"
	"slices"

	"github.com/palemoky/beer-pong/internal/apperrors"
	"github.com/palemoky/beer-pong/internal/protocol"
)

// 以下方法均要求调用方持有房间锁

// JoinAsHost 以主持人身份加入
// 不同玩家接管主持人必须携带正确的凭证，旧主持人记录被移除
func (r *Room) JoinAsHost(playerID, connID, token string) ([]Event, error) {
	if token != "" && token != r.HostToken {
		return nil, apperrors.ErrInvalidToken
	}

	// 同一玩家重连
	if r.HostID == playerID {
		host := r.Players[playerID]
		host.ConnID = connID
		host.Connected = true
		return []Event{r.roomUpdate()}, nil
	}

	if p, ok := r.Players[playerID]; ok && !p.IsHost {
		return nil, apperrors.ErrInvalidJoin
	}

	var events []Event
	if r.HostID != "" {
		if token == "" {
			return nil, apperrors.ErrInvalidToken
		}
		old := r.HostID
		r.removePlayer(old)
		events = append(events, Event{
			Type:    protocol.MsgRoomClosed,
			Payload: protocol.RoomClosedPayload{Reason: ReasonHostReplaced},
			To:      old,
		})
	}

	r.HostID = playerID
	r.addPlayer(&Player{
		ID:        playerID,
		ConnID:    connID,
		Name:      hostName,
		Connected: true,
		IsHost:    true,
	})
	return append(events, r.roomUpdate()), nil
}

// JoinAsPlayer 以玩家（控制器）身份加入
func (r *Room) JoinAsPlayer(playerID, connID, name string) ([]Event, error) {
	if p, ok := r.Players[playerID]; ok {
		if p.IsHost {
			return nil, apperrors.ErrInvalidJoin
		}
		// 重连：杯子和分数保持不变
		p.ConnID = connID
		p.Connected = true
		if name != "" {
			p.Name = name
		}
		return []Event{r.roomUpdate()}, nil
	}

	if r.Status == StatusPlaying {
		return nil, apperrors.ErrGameInProgress
	}
	if len(r.connectedPlayers()) >= r.opts.MaxPlayers {
		return nil, apperrors.ErrRoomFull
	}

	if name == "" {
		name = fmt.Sprintf("Player %d", r.nonHostCount()+1)
	}
	r.addPlayer(&Player{
		ID:        playerID,
		ConnID:    connID,
		Name:      name,
		Connected: true,
	})
	r.Cups[playerID] = r.freshCups()
	r.Scores[playerID] = 0
	return []Event{r.roomUpdate()}, nil
}

// StartGame 开始游戏
func (r *Room) StartGame(requester string) ([]Event, error) {
	if requester != r.HostID {
		return nil, apperrors.ErrNotHost
	}
	if r.Status == StatusPlaying {
		return nil, nil
	}

	players := r.connectedPlayers()
	if len(players) == 0 {
		return nil, apperrors.ErrNoPlayers
	}

	if r.Status == StatusEnded {
		r.resetBoard()
	}
	for _, id := range players {
		if _, ok := r.Cups[id]; !ok {
			r.Cups[id] = r.freshCups()
		}
		if _, ok := r.Scores[id]; !ok {
			r.Scores[id] = 0
		}
	}

	first := players[r.opts.Picker(len(players))]
	r.Status = StatusPlaying
	r.Round = 1
	r.ActivePlayerID = first
	r.pendingWin = false
	clear(r.taken)

	return []Event{
		{
			Type: protocol.MsgGameStarted,
			Payload: protocol.GameStartedPayload{
				FirstPlayer:     first,
				FirstPlayerName: r.Players[first].Name,
				GameState:       r.GameState(),
			},
		},
		r.roomUpdate(),
	}, nil
}

// RecordThrow 转发投掷，服务端不解析速度
func (r *Room) RecordThrow(requester string, v protocol.Velocity) ([]Event, error) {
	if r.Status != StatusPlaying {
		return nil, apperrors.ErrNotPlaying
	}
	if requester != r.ActivePlayerID {
		return nil, apperrors.ErrNotYourTurn
	}
	return []Event{{
		Type: protocol.MsgThrow,
		Payload: protocol.ThrowPayload{
			RoomID:   r.ID,
			PlayerID: requester,
			Velocity: v,
		},
		Except: requester,
	}}, nil
}

// RecordCupHit 记录命中
func (r *Room) RecordCupHit(target string, cupIndex int) ([]Event, error) {
	if r.Status != StatusPlaying {
		return nil, apperrors.ErrNotPlaying
	}
	if cupIndex < 0 || cupIndex >= r.opts.CupsPerPlayer {
		return nil, apperrors.ErrInvalidCup
	}
	cups, ok := r.Cups[target]
	if !ok {
		return nil, apperrors.ErrPlayerNotFound
	}
	if !cups[cupIndex] {
		return nil, nil
	}

	cups[cupIndex] = false
	if scorer := r.scorerFor(target); scorer != "" {
		r.Scores[scorer]++
	}

	if r.eliminated(target) {
		if r.Round >= 2 || !r.opts.FullFirstRound {
			return r.resolveWin(), nil
		}
		r.pendingWin = true
	}
	return r.advanceTurn(), nil
}

// RecordCupMiss 记录未命中
func (r *Room) RecordCupMiss() ([]Event, error) {
	if r.Status != StatusPlaying {
		return nil, apperrors.ErrNotPlaying
	}
	return r.advanceTurn(), nil
}

// ResetGame 重置回等待状态，可重复调用
func (r *Room) ResetGame(requester string) ([]Event, error) {
	if requester != r.HostID {
		return nil, apperrors.ErrNotHost
	}
	r.resetBoard()
	return []Event{{Type: protocol.MsgGameReset}, r.roomUpdate()}, nil
}

// Disconnect 玩家断开连接
// connID 不再属于该玩家时（旧连接）忽略
func (r *Room) Disconnect(playerID, connID string) []Event {
	p, ok := r.Players[playerID]
	if !ok || p.ConnID != connID || !p.Connected {
		return nil
	}
	p.Connected = false

	if p.IsHost && r.Status == StatusWaiting {
		return r.teardown(ReasonHostDisconnected)
	}

	var events []Event
	if r.Status == StatusPlaying && !p.IsHost {
		switch {
		case len(r.eligiblePlayers()) == 0:
			events = r.abandon()
		case r.ActivePlayerID == playerID:
			events = r.advanceTurn()
			if r.Status == StatusPlaying {
				next := r.PlayerInfo(r.ActivePlayerID)
				events = append(events, Event{
					Type: protocol.MsgPlayerDisconnected,
					Payload: protocol.PlayerDisconnectedPayload{
						PlayerID:     playerID,
						ActivePlayer: &next,
					},
				})
			}
		default:
			events = append(events, Event{
				Type:    protocol.MsgPlayerDisconnected,
				Payload: protocol.PlayerDisconnectedPayload{PlayerID: playerID},
			})
		}
	}
	return append(events, r.roomUpdate())
}

// Close 主持人关闭房间，对局中不可关闭
func (r *Room) Close(requester string) ([]Event, error) {
	if requester != r.HostID {
		return nil, apperrors.ErrNotHost
	}
	if r.Status == StatusPlaying {
		return nil, apperrors.ErrGameInProgress
	}
	return r.teardown(ReasonClosedByHost), nil
}

// Expire 空闲超时拆除
func (r *Room) Expire() []Event {
	return r.teardown(ReasonIdle)
}

func (r *Room) teardown(reason string) []Event {
	r.closed = true
	return []Event{{
		Type:    protocol.MsgRoomClosed,
		Payload: protocol.RoomClosedPayload{Reason: reason},
	}}
}

// scorerFor 得分者：当前出手玩家；若出手玩家就是被击中者，则取顺序上第一个其他可出手玩家
func (r *Room) scorerFor(target string) string {
	if r.ActivePlayerID != "" && r.ActivePlayerID != target {
		return r.ActivePlayerID
	}
	for _, id := range r.eligiblePlayers() {
		if id != target {
			return id
		}
	}
	return ""
}

// advanceTurn 轮到下一位玩家
func (r *Room) advanceTurn() []Event {
	if r.ActivePlayerID != "" {
		r.taken[r.ActivePlayerID] = true
	}

	eligible := r.eligiblePlayers()
	if len(eligible) == 0 {
		return r.abandon()
	}

	roundDone := !slices.ContainsFunc(eligible, func(id string) bool { return !r.taken[id] })
	if roundDone {
		if r.pendingWin {
			return r.resolveWin()
		}
		r.Round++
		clear(r.taken)
	}

	r.ActivePlayerID = r.nextEligible()
	active := r.PlayerInfo(r.ActivePlayerID)

	var events []Event
	if roundDone {
		events = append(events, Event{
			Type:    protocol.MsgNewRound,
			Payload: protocol.NewRoundPayload{Round: r.Round, ActivePlayer: active},
		})
	}
	return append(events, Event{
		Type: protocol.MsgTurnChange,
		Payload: protocol.TurnChangePayload{
			ActivePlayer: active,
			GameState:    r.GameState(),
		},
	})
}

// nextEligible 按加入顺序从当前玩家之后轮转
func (r *Room) nextEligible() string {
	n := len(r.Order)
	start := slices.Index(r.Order, r.ActivePlayerID)
	for i := 1; i <= n; i++ {
		id := r.Order[(start+i+n)%n]
		if r.eligible(id) {
			return id
		}
	}
	return ""
}

// resolveWin 结算：在线玩家中最高分者获胜，同分并列
func (r *Room) resolveWin() []Event {
	best := -1
	var winners []string
	for _, id := range r.connectedPlayers() {
		switch s := r.Scores[id]; {
		case s > best:
			best = s
			winners = []string{id}
		case s == best:
			winners = append(winners, id)
		}
	}

	r.Status = StatusEnded
	r.ActivePlayerID = ""
	r.pendingWin = false
	clear(r.taken)

	payload := protocol.PlayerWonPayload{
		IsTie:  len(winners) > 1,
		Scores: r.GameState().Scores,
	}
	if len(winners) > 0 {
		payload.Player = r.PlayerInfo(winners[0])
	}
	if payload.IsTie {
		for _, id := range winners {
			payload.TiedPlayers = append(payload.TiedPlayers, r.PlayerInfo(id))
		}
	}
	return []Event{{Type: protocol.MsgPlayerWon, Payload: payload}, r.roomUpdate()}
}

// abandon 没有可出手的玩家，对局作废回到等待
func (r *Room) abandon() []Event {
	r.resetBoard()
	return []Event{{Type: protocol.MsgGameReset}}
}

// resetBoard 所有已知玩家杯子复位、分数清零
func (r *Room) resetBoard() {
	r.Status = StatusWaiting
	r.Round = 1
	r.ActivePlayerID = ""
	r.pendingWin = false
	clear(r.taken)
	clear(r.Cups)
	clear(r.Scores)
	for _, id := range r.Order {
		if r.Players[id].IsHost {
			continue
		}
		r.Cups[id] = r.freshCups()
		r.Scores[id] = 0
	}
}
