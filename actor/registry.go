package actor

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
)

// Constructor 从解码后的字段映射重建消息负载。
// 字段名必须与负载结构体的导出字段名一致，
// 对端也按同样的字段名编码，双方才能互相还原。
type Constructor func(fields map[string]any) (any, error)

// messageRegistry 是进程级的线上类型名到 Constructor 的映射。
// 程序加载期间写入，Actor 开始交换远程消息后只读。
// Init 之后的晚注册不被禁止，重复注册会打印告警。
type messageRegistry struct {
	// mu 保护两个映射的并发访问
	mu sync.RWMutex
	// ctor 类型名到构造函数的映射，接收方向使用
	ctor map[string]Constructor
	// names Go 类型到类型名的反查表，发送方向使用
	names map[reflect.Type]string
}

var globalRegistry = &messageRegistry{
	ctor:  make(map[string]Constructor),
	names: make(map[reflect.Type]string),
}

func init() {
	RegisterMessageType[Start]("Start")
	RegisterMessageType[Shutdown]("Shutdown")
	RegisterMessageType[Timeout]("Timeout")
	RegisterMessageType[Reject]("Reject")
}

// RegisterMessage 向进程级消息注册表登记一个类型名和它的构造函数。
// 任何要在远程方向上使用的类型都必须先注册，收发双方都要登记同一个名字。
func RegisterMessage(typeName string, ctor Constructor) {
	globalRegistry.mu.Lock()
	if _, exists := globalRegistry.ctor[typeName]; exists {
		defaultLogger.WithField("message_type", typeName).Warn("re-registering message type")
	}
	globalRegistry.ctor[typeName] = ctor
	globalRegistry.mu.Unlock()
}

// RegisterMessageType 注册 typeName，并生成一个通过 encoding/json
// 把字段映射还原成 T 的构造函数。普通的 JSON 标量/容器字段结构体
// 用这个就够了，不需要手写 Constructor。
// 同时登记 T 到 typeName 的反查，供发送方向编码使用。
func RegisterMessageType[T any](typeName string) {
	RegisterMessage(typeName, func(fields map[string]any) (any, error) {
		b, err := json.Marshal(fields)
		if err != nil {
			return nil, fmt.Errorf("encode fields for %s: %w", typeName, err)
		}
		var v T
		if err := json.Unmarshal(b, &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", typeName, err)
		}
		return v, nil
	})

	var zero T
	t := reflect.TypeOf(zero)
	globalRegistry.mu.Lock()
	globalRegistry.names[t] = typeName
	globalRegistry.mu.Unlock()
}

// lookupConstructor 返回 typeName 注册的构造函数。
func lookupConstructor(typeName string) (Constructor, bool) {
	globalRegistry.mu.RLock()
	c, ok := globalRegistry.ctor[typeName]
	globalRegistry.mu.RUnlock()
	return c, ok
}

// wireTypeNameOf 反查 payload 的 Go 类型注册的线上类型名。
// 发送方向拒绝编码未注册类型：本端叫不出名字的帧，对端也无法解码。
func wireTypeNameOf(payload any) (string, bool) {
	t := reflect.TypeOf(payload)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	globalRegistry.mu.RLock()
	name, ok := globalRegistry.names[t]
	globalRegistry.mu.RUnlock()
	return name, ok
}
