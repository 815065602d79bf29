package actor

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type roundTripMsg struct {
	Name   string   `json:"name"`
	Count  int      `json:"count"`
	Ratio  float64  `json:"ratio"`
	Tags   []string `json:"tags"`
	Nested map[string]any `json:"nested"`
}

func init() {
	RegisterMessageType[roundTripMsg]("roundTripMsg")
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := roundTripMsg{
		Name:   "x",
		Count:  7,
		Ratio:  0.5,
		Tags:   []string{"a", "b"},
		Nested: map[string]any{"k": "v"},
	}
	frame, err := encodeFrame("pong", in, "ping", "tcp://localhost:5002")
	require.NoError(t, err)
	require.Equal(t, "roundTripMsg", frame.MessageType)
	require.Equal(t, "pong", frame.Receiver)
	require.Equal(t, "ping", frame.SenderActor)
	require.Equal(t, "tcp://localhost:5002", frame.SenderEndpoint)

	out, err := decodePayload(frame)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestEncodeUnregisteredTypeFails(t *testing.T) {
	type unregistered struct{}
	_, err := encodeFrame("pong", unregistered{}, "", "")
	var ee *EncodeError
	require.ErrorAs(t, err, &ee)
	require.ErrorIs(t, err, ErrUnregisteredType)
}

func TestDecodeUnknownTypeFails(t *testing.T) {
	_, err := decodePayload(&wireFrame{MessageType: "NoSuchThing", Message: map[string]any{}})
	require.EqualError(t, err, "Unknown message type: NoSuchThing")
}

func TestDecodeConstructorFailure(t *testing.T) {
	RegisterMessage("alwaysBroken", func(map[string]any) (any, error) {
		return nil, errors.New("bad fields")
	})
	_, err := decodePayload(&wireFrame{MessageType: "alwaysBroken", Message: map[string]any{}})
	require.EqualError(t, err, "Failed to deserialize alwaysBroken: bad fields")
}

// 帧解析要忽略未知的顶层字段，新旧版本的对端可以互通。
func TestUnknownTopLevelFieldsIgnored(t *testing.T) {
	raw := []byte(`{
		"message_type": "roundTripMsg",
		"receiver": "pong",
		"sender_actor": "ping",
		"sender_endpoint": "tcp://localhost:5002",
		"message": {"name": "y", "count": 1, "ratio": 0, "tags": null, "nested": null},
		"some_future_field": {"ignored": true}
	}`)
	var frame wireFrame
	require.NoError(t, json.Unmarshal(raw, &frame))
	out, err := decodePayload(&frame)
	require.NoError(t, err)
	require.Equal(t, roundTripMsg{Name: "y", Count: 1}, out)
}

func TestWireTypeNameOfDereferencesPointers(t *testing.T) {
	name, ok := wireTypeNameOf(&roundTripMsg{})
	require.True(t, ok)
	require.Equal(t, "roundTripMsg", name)
}
