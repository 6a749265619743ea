package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Redis key 前缀
	roomKeyPrefix    = "room:"
	sessionKeyPrefix = "session:"

	// 过期时间
	roomExpiration    = 2 * time.Hour
	sessionExpiration = 24 * time.Hour
)

// RoomData 房间快照（用于 Redis 序列化），不影响内存中的权威状态
type RoomData struct {
	ID         string            `json:"id"`
	HostToken  string            `json:"host_token"`
	HostID     string            `json:"host_id"`
	Status     string            `json:"status"`
	Players    []PlayerData      `json:"players"`
	Round      int               `json:"round"`
	Cups       map[string][]bool `json:"cups"`
	Scores     map[string]int    `json:"scores"`
	CreatedAt  int64             `json:"created_at"`
	LastActive int64             `json:"last_active"`
}

// PlayerData 玩家数据，按加入顺序保存
type PlayerData struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	IsHost bool   `json:"is_host"`
}

// PlayerSessionData 玩家会话数据
type PlayerSessionData struct {
	PlayerID       string `json:"player_id"`
	PlayerName     string `json:"player_name"`
	ReconnectToken string `json:"token"`
	RoomID         string `json:"room_id"`
}

// RedisStore Redis 存储，client 为 nil 时所有操作为空操作
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore 创建 Redis 存储
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Enabled 是否连接了 Redis
func (rs *RedisStore) Enabled() bool {
	return rs != nil && rs.client != nil
}

// Ping 检查连接
func (rs *RedisStore) Ping(ctx context.Context) error {
	if !rs.Enabled() {
		return nil
	}
	return rs.client.Ping(ctx).Err()
}

// --- 房间存储 ---

// SaveRoom 保存房间快照
func (rs *RedisStore) SaveRoom(ctx context.Context, data *RoomData) error {
	if !rs.Enabled() || data == nil {
		return nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("序列化房间数据失败: %w", err)
	}
	return rs.client.Set(ctx, roomKeyPrefix+data.ID, jsonData, roomExpiration).Err()
}

// LoadRoom 加载房间快照，不存在时返回 nil
func (rs *RedisStore) LoadRoom(ctx context.Context, id string) (*RoomData, error) {
	if !rs.Enabled() {
		return nil, nil
	}

	data, err := rs.client.Get(ctx, roomKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var roomData RoomData
	if err := json.Unmarshal(data, &roomData); err != nil {
		return nil, fmt.Errorf("反序列化房间数据失败: %w", err)
	}
	return &roomData, nil
}

// DeleteRoom 删除房间快照
func (rs *RedisStore) DeleteRoom(ctx context.Context, id string) error {
	if !rs.Enabled() {
		return nil
	}
	return rs.client.Del(ctx, roomKeyPrefix+id).Err()
}

// LoadAllRooms 加载所有房间快照，损坏的条目跳过
func (rs *RedisStore) LoadAllRooms(ctx context.Context) ([]*RoomData, error) {
	if !rs.Enabled() {
		return nil, nil
	}

	var rooms []*RoomData
	iter := rs.client.Scan(ctx, 0, roomKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		id := iter.Val()[len(roomKeyPrefix):]
		data, err := rs.LoadRoom(ctx, id)
		if err != nil || data == nil {
			continue
		}
		rooms = append(rooms, data)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return rooms, nil
}

// --- 会话存储 ---

// SaveSession 保存会话
func (rs *RedisStore) SaveSession(ctx context.Context, session *PlayerSessionData) error {
	if !rs.Enabled() || session == nil {
		return nil
	}

	key := sessionKeyPrefix + session.ReconnectToken
	pipe := rs.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]any{
		"player_id":   session.PlayerID,
		"player_name": session.PlayerName,
		"token":       session.ReconnectToken,
		"room_id":     session.RoomID,
	})
	pipe.Expire(ctx, key, sessionExpiration)
	_, err := pipe.Exec(ctx)
	return err
}

// LoadSession 按重连令牌加载会话，不存在时返回 nil
func (rs *RedisStore) LoadSession(ctx context.Context, token string) (*PlayerSessionData, error) {
	if !rs.Enabled() {
		return nil, nil
	}

	data, err := rs.client.HGetAll(ctx, sessionKeyPrefix+token).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	return &PlayerSessionData{
		PlayerID:       data["player_id"],
		PlayerName:     data["player_name"],
		ReconnectToken: data["token"],
		RoomID:         data["room_id"],
	}, nil
}

// DeleteSession 删除会话
func (rs *RedisStore) DeleteSession(ctx context.Context, token string) error {
	if !rs.Enabled() {
		return nil
	}
	return rs.client.Del(ctx, sessionKeyPrefix+token).Err()
}
