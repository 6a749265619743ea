package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/palemoky/beer-pong/internal/protocol"
)

// 编解码器名称
const (
	NameJSON  = "json"
	NameProto = "proto"
)

var errMissingType = errors.New("message type missing")

// Codec 线上帧编解码
type Codec interface {
	Name() string
	// Binary 为 true 时使用 WebSocket 二进制帧
	Binary() bool
	Encode(msg *protocol.Message) ([]byte, error)
	Decode(data []byte) (*protocol.Message, error)
}

// ByName 按名称选择编解码器，未知名称回退到 JSON
func ByName(name string) Codec {
	if name == NameProto {
		return Proto{}
	}
	return JSON{}
}

// JSON 文本帧：{"type": "...", "payload": {...}}
type JSON struct{}

func (JSON) Name() string { return NameJSON }
func (JSON) Binary() bool { return false }

// Encode 将消息编码为 JSON 字节
func (JSON) Encode(msg *protocol.Message) ([]byte, error) {
	return json.Marshal(msg)
}

// Decode 从 JSON 字节解码消息
func (JSON) Decode(data []byte) (*protocol.Message, error) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Type == "" {
		return nil, errMissingType
	}
	return &msg, nil
}

// Proto 二进制帧：google.protobuf.Struct{type, payload}
// 不需要生成代码，浏览器端可用 protobuf.js 的 Struct 解码
type Proto struct{}

func (Proto) Name() string { return NameProto }
func (Proto) Binary() bool { return true }

// Encode 将消息编码为 Protobuf 字节
func (Proto) Encode(msg *protocol.Message) ([]byte, error) {
	st := &structpb.Struct{Fields: map[string]*structpb.Value{
		"type": structpb.NewStringValue(string(msg.Type)),
	}}

	if len(msg.Payload) > 0 {
		var v any
		if err := json.Unmarshal(msg.Payload, &v); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		pv, err := structpb.NewValue(v)
		if err != nil {
			return nil, fmt.Errorf("convert payload: %w", err)
		}
		st.Fields["payload"] = pv
	}

	return proto.Marshal(st)
}

// Decode 从 Protobuf 字节解码消息
func (Proto) Decode(data []byte) (*protocol.Message, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(data, &st); err != nil {
		return nil, err
	}

	msgType := st.GetFields()["type"].GetStringValue()
	if msgType == "" {
		return nil, errMissingType
	}

	msg := &protocol.Message{Type: protocol.MessageType(msgType)}
	if pv, ok := st.GetFields()["payload"]; ok {
		raw, err := protojson.Marshal(pv)
		if err != nil {
			return nil, err
		}
		msg.Payload = raw
	}
	return msg, nil
}
