package codec

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/testing/protocmp"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/palemoky/beer-pong/internal/apperrors"
	"github.com/palemoky/beer-pong/internal/protocol"
)

func TestByName(t *testing.T) {
	assert.Equal(t, NameProto, ByName("proto").Name())
	assert.True(t, ByName("proto").Binary())
	assert.Equal(t, NameJSON, ByName("").Name())
	assert.Equal(t, NameJSON, ByName("xml").Name())
}

func TestJSON_WireShape(t *testing.T) {
	msg := MustNewMessage(protocol.MsgCupHit, protocol.CupHitPayload{RoomID: "ABCDEF", CupIndex: 2, PlayerID: "p1"})

	data, err := JSON{}.Encode(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"cupHit","payload":{"roomId":"ABCDEF","cupIndex":2,"playerId":"p1"}}`, string(data))

	decoded, err := JSON{}.Decode(data)
	require.NoError(t, err)
	payload, err := ParsePayload[protocol.CupHitPayload](decoded)
	require.NoError(t, err)
	assert.Equal(t, 2, payload.CupIndex)
}

func TestJSON_DecodeErrors(t *testing.T) {
	_, err := JSON{}.Decode([]byte(`not json`))
	assert.Error(t, err)

	_, err = JSON{}.Decode([]byte(`{"payload":{}}`))
	assert.ErrorIs(t, err, errMissingType)
}

func TestProto_EncodesStruct(t *testing.T) {
	msg := MustNewMessage(protocol.MsgThrow, protocol.ThrowPayload{
		RoomID:   "ABCDEF",
		PlayerID: "p1",
		Velocity: protocol.Velocity{X: 1.5, Y: -2, Z: 0},
	})

	data, err := Proto{}.Encode(msg)
	require.NoError(t, err)

	var got structpb.Struct
	require.NoError(t, proto.Unmarshal(data, &got))

	want, err := structpb.NewStruct(map[string]any{
		"type": "throw",
		"payload": map[string]any{
			"roomId":   "ABCDEF",
			"playerId": "p1",
			"velocity": map[string]any{"x": 1.5, "y": -2.0, "z": 0.0},
		},
	})
	require.NoError(t, err)

	if diff := cmp.Diff(want, &got, protocmp.Transform()); diff != "" {
		t.Errorf("encoded struct mismatch (-want +got):\n%s", diff)
	}
}

func TestProto_RoundTrip(t *testing.T) {
	msg := MustNewMessage(protocol.MsgPlayerWon, protocol.PlayerWonPayload{
		Player: protocol.PlayerInfo{ID: "a", Name: "Alice"},
		Scores: map[string]int{"a": 6, "b": 2},
	})

	data, err := Proto{}.Encode(msg)
	require.NoError(t, err)
	decoded, err := Proto{}.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, protocol.MsgPlayerWon, decoded.Type)

	// 数字经过 Struct 后仍能解析回整数字段
	won, err := ParsePayload[protocol.PlayerWonPayload](decoded)
	require.NoError(t, err)
	assert.Equal(t, "Alice", won.Player.Name)
	assert.Equal(t, map[string]int{"a": 6, "b": 2}, won.Scores)
}

func TestProto_NoPayload(t *testing.T) {
	data, err := Proto{}.Encode(&protocol.Message{Type: protocol.MsgStartGame})
	require.NoError(t, err)

	decoded, err := Proto{}.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, protocol.MsgStartGame, decoded.Type)
	assert.Empty(t, decoded.Payload)
}

func TestProto_DecodeErrors(t *testing.T) {
	_, err := Proto{}.Decode([]byte{0xff, 0xff, 0xff})
	assert.Error(t, err)

	empty, err := proto.Marshal(&structpb.Struct{})
	require.NoError(t, err)
	_, err = Proto{}.Decode(empty)
	assert.ErrorIs(t, err, errMissingType)
}

func TestParsePayload_Empty(t *testing.T) {
	p, err := ParsePayload[protocol.PingPayload](&protocol.Message{Type: protocol.MsgPing})
	require.NoError(t, err)
	assert.Zero(t, p.Timestamp)

	p, err = ParsePayload[protocol.PingPayload](&protocol.Message{Type: protocol.MsgPing, Payload: json.RawMessage("null")})
	require.NoError(t, err)
	assert.Zero(t, p.Timestamp)

	_, err = ParsePayload[protocol.PingPayload](&protocol.Message{Type: protocol.MsgPing, Payload: json.RawMessage(`{"timestamp":"x"}`)})
	assert.Error(t, err)
}

func TestErrorMessageFor(t *testing.T) {
	msg := ErrorMessageFor(apperrors.ErrNotYourTurn)
	p, err := ParsePayload[protocol.ErrorPayload](msg)
	require.NoError(t, err)
	assert.Equal(t, protocol.ErrCodeNotYourTurn, p.Code)

	msg = ErrorMessageFor(assert.AnError)
	p, err = ParsePayload[protocol.ErrorPayload](msg)
	require.NoError(t, err)
	assert.Equal(t, protocol.ErrCodeUnknown, p.Code)
}
