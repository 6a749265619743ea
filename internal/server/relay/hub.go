package relay

import (
	"sync"

	"github.com/palemoky/beer-pong/internal/protocol"
	"github.com/palemoky/beer-pong/internal/types"
)

// Hub 连接注册表和按房间分组的广播
type Hub struct {
	clients map[string]types.ClientInterface            // connID -> client
	groups  map[string]map[string]types.ClientInterface // roomID -> connID -> client
	mu      sync.RWMutex
}

// NewHub 创建 Hub
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]types.ClientInterface),
		groups:  make(map[string]map[string]types.ClientInterface),
	}
}

// Register 注册连接
func (h *Hub) Register(c types.ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.GetID()] = c
}

// Unregister 注销连接并离开所在分组
func (h *Hub) Unregister(c types.ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c.GetID())
	h.leaveLocked(c.GetRoom(), c)
}

// Join 加入房间分组，先离开之前的分组
func (h *Hub) Join(roomID string, c types.ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if prev := c.GetRoom(); prev != roomID {
		h.leaveLocked(prev, c)
	}
	group, ok := h.groups[roomID]
	if !ok {
		group = make(map[string]types.ClientInterface)
		h.groups[roomID] = group
	}
	group[c.GetID()] = c
	c.SetRoom(roomID)
}

// Leave 离开房间分组
func (h *Hub) Leave(roomID string, c types.ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(roomID, c)
	if c.GetRoom() == roomID {
		c.SetRoom("")
	}
}

// LeavePlayer 把某个玩家的所有连接移出分组
func (h *Hub) LeavePlayer(roomID, playerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.groups[roomID] {
		if c.GetPlayerID() == playerID {
			h.leaveLocked(roomID, c)
			c.SetRoom("")
		}
	}
}

// Evict 把分组内的指定连接移出并通知它，连接不在分组内时忽略
func (h *Hub) Evict(roomID, connID string, msg *protocol.Message) {
	h.mu.Lock()
	c, ok := h.groups[roomID][connID]
	if ok {
		h.leaveLocked(roomID, c)
		if c.GetRoom() == roomID {
			c.SetRoom("")
		}
	}
	h.mu.Unlock()

	if ok && msg != nil {
		c.SendMessage(msg)
	}
}

// CloseGroup 解散分组，成员的当前房间被清空
func (h *Hub) CloseGroup(roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.groups[roomID] {
		if c.GetRoom() == roomID {
			c.SetRoom("")
		}
	}
	delete(h.groups, roomID)
}

func (h *Hub) leaveLocked(roomID string, c types.ClientInterface) {
	if roomID == "" {
		return
	}
	group, ok := h.groups[roomID]
	if !ok {
		return
	}
	delete(group, c.GetID())
	if len(group) == 0 {
		delete(h.groups, roomID)
	}
}

// Publish 向房间广播，except 非空时跳过该玩家的连接
func (h *Hub) Publish(roomID string, msg *protocol.Message, except string) {
	for _, c := range h.members(roomID) {
		if except != "" && c.GetPlayerID() == except {
			continue
		}
		c.SendMessage(msg)
	}
}

// SendToPlayer 发给房间内某个玩家的连接
func (h *Hub) SendToPlayer(roomID, playerID string, msg *protocol.Message) {
	for _, c := range h.members(roomID) {
		if c.GetPlayerID() == playerID {
			c.SendMessage(msg)
		}
	}
}

// BroadcastAll 发给所有连接
func (h *Hub) BroadcastAll(msg *protocol.Message) {
	h.mu.RLock()
	clients := make([]types.ClientInterface, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.SendMessage(msg)
	}
}

// CloseAll 关闭所有连接
func (h *Hub) CloseAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.Close()
	}
}

func (h *Hub) members(roomID string) []types.ClientInterface {
	h.mu.RLock()
	defer h.mu.RUnlock()

	group := h.groups[roomID]
	members := make([]types.ClientInterface, 0, len(group))
	for _, c := range group {
		members = append(members, c)
	}
	return members
}

// Count 在线连接数
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HasPlayer 是否还有连接持有该玩家身份
func (h *Hub) HasPlayer(playerID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if c.GetPlayerID() == playerID {
			return true
		}
	}
	return false
}

// GroupSize 房间分组内的连接数
func (h *Hub) GroupSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[roomID])
}

// Client 按连接 ID 查找
func (h *Hub) Client(connID string) types.ClientInterface {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[connID]
}
