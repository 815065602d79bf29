package actor

import (
	"encoding/json"
	"fmt"
)

// wireFrame 是进程之间交换的 JSON 文档：message_type 指明负载的
// 注册类型名，receiver/sender_actor/sender_endpoint 负责路由和
// 回复寻址，message 是负载的扁平字段映射。
// 解析时未知的顶层字段会被忽略，不同版本的对端可以增量扩展。
type wireFrame struct {
	MessageType    string         `json:"message_type"`
	Receiver       string         `json:"receiver"`
	SenderActor    string         `json:"sender_actor,omitempty"`
	SenderEndpoint string         `json:"sender_endpoint,omitempty"`
	Message        map[string]any `json:"message"`
}

// encodeFrame 为发往 receiver 的 payload 构造线上帧。
// senderActor/senderEndpoint 标识回复路径，没有可达发送方时可为空。
// payload 的 Go 类型没有注册过时编码失败：
// 本端叫不出名字的帧，对端的注册表也无法解码。
func encodeFrame(receiver string, payload any, senderActor, senderEndpoint string) (*wireFrame, error) {
	typeName, ok := wireTypeNameOf(payload)
	if !ok {
		return nil, &EncodeError{TypeName: goTypeName(payload), Err: ErrUnregisteredType}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, &EncodeError{TypeName: typeName, Err: err}
	}
	var fields map[string]any
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, &EncodeError{TypeName: typeName, Err: err}
	}
	return &wireFrame{
		MessageType:    typeName,
		Receiver:       receiver,
		SenderActor:    senderActor,
		SenderEndpoint: senderEndpoint,
		Message:        fields,
	}, nil
}

// decodePayload 用 frame.MessageType 注册的构造函数还原 frame.Message。
// 错误文本就是拒绝回执里的 reason。
func decodePayload(frame *wireFrame) (any, error) {
	ctor, ok := lookupConstructor(frame.MessageType)
	if !ok {
		return nil, fmt.Errorf("Unknown message type: %s", frame.MessageType)
	}
	v, err := ctor(frame.Message)
	if err != nil {
		return nil, fmt.Errorf("Failed to deserialize %s: %v", frame.MessageType, err)
	}
	return v, nil
}
