//go:build !production

package testutil

import (
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/palemoky/beer-pong/internal/protocol"
	"github.com/palemoky/beer-pong/internal/protocol/codec"
)

// MockClient 实现 types.ClientInterface 的 mock
type MockClient struct {
	mock.Mock
}

func (m *MockClient) GetID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockClient) GetPlayerID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockClient) SetPlayerID(id string) {
	m.Called(id)
}

func (m *MockClient) GetName() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockClient) SetName(name string) {
	m.Called(name)
}

func (m *MockClient) GetRoom() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockClient) SetRoom(roomID string) {
	m.Called(roomID)
}

func (m *MockClient) SendMessage(msg *protocol.Message) {
	m.Called(msg)
}

func (m *MockClient) Close() {
	m.Called()
}

// SimpleClient 简单的客户端，记录收到的消息（用于不需要 mock 断言的测试）
type SimpleClient struct {
	ID       string
	PlayerID string
	Name     string
	RoomID   string

	mu       sync.Mutex
	messages []*protocol.Message
	closed   bool
}

// NewSimpleClient 创建测试客户端，连接 ID 为 "conn-" + playerID
func NewSimpleClient(playerID, name string) *SimpleClient {
	return &SimpleClient{ID: "conn-" + playerID, PlayerID: playerID, Name: name}
}

func (c *SimpleClient) GetID() string { return c.ID }

func (c *SimpleClient) GetPlayerID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.PlayerID
}

func (c *SimpleClient) SetPlayerID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.PlayerID = id
}

func (c *SimpleClient) GetName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Name
}

func (c *SimpleClient) SetName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Name = name
}

func (c *SimpleClient) GetRoom() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.RoomID
}

func (c *SimpleClient) SetRoom(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.RoomID = id
}

func (c *SimpleClient) SendMessage(msg *protocol.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.messages = append(c.messages, msg)
	}
}

func (c *SimpleClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Closed 是否已关闭
func (c *SimpleClient) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// SentMessages 已收到的消息
func (c *SimpleClient) SentMessages() []*protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*protocol.Message(nil), c.messages...)
}

// Types 已收到消息的类型
func (c *SimpleClient) Types() []protocol.MessageType {
	msgs := c.SentMessages()
	types := make([]protocol.MessageType, 0, len(msgs))
	for _, m := range msgs {
		types = append(types, m.Type)
	}
	return types
}

// Last 最近一条指定类型的消息，没有时返回 nil
func (c *SimpleClient) Last(typ protocol.MessageType) *protocol.Message {
	msgs := c.SentMessages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Type == typ {
			return msgs[i]
		}
	}
	return nil
}

// Reset 清空已收到的消息
func (c *SimpleClient) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
}

// LastPayload 解析最近一条指定类型的消息
func LastPayload[T any](c *SimpleClient, typ protocol.MessageType) *T {
	msg := c.Last(typ)
	if msg == nil {
		return nil
	}
	payload, err := codec.ParsePayload[T](msg)
	if err != nil {
		return nil
	}
	return payload
}
