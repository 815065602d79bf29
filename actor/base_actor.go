package actor

import (
	"reflect"
	"unicode"
)

// Actor 是用户类型要注册进 Manager 必须满足的最小契约：嵌入 Base。
// self 方法未导出，只有嵌入 Base 的类型才能免费获得它，
// 外部包无法另行实现一个不兼容的 Actor。
//
// 消息处理器按约定发现，不通过接口：负载的 Go 类型为 T 时，
// 运行时查找名为 "On"+T、签名为 func(*Envelope) 的方法。
// 没有对应处理器时，本地来源的消息被丢弃（带诊断日志），
// 远程来源的消息走拒绝路径。
type Actor interface {
	self() *Base
}

// initializer 是可选的钩子：实现了 OnInit 的 Actor 会在自己的
// 工作协程里、消息循环开始之前（早于 Start 信封出队）被调用一次。
// 适合做必须抢在第一条消息之前完成的资源准备，比如绑定监听端口。
type initializer interface{ OnInit() }

// finalizer 是可选的钩子：实现了 OnEnd 的 Actor 会在消息循环
// 处理完 Shutdown 之后被调用一次。
type finalizer interface{ OnEnd() }

// Base 被每个 Actor 类型嵌入。它携带运行时在注册时注入的身份：
// 自身的本地引用和指回所属 Manager 的句柄。Actor 通过它拿到
// 自己的引用作为外发消息的 sender，或经由 Manager 解析同伴。
type Base struct {
	// ref 本 Actor 的本地引用
	ref Reference
	// mgr 所属 Manager 的句柄
	mgr *ManagerHandle
}

func (b *Base) self() *Base { return b }

// Self 返回本 Actor 自己的引用，可作为 Send/Ask 的 sender 参数，
// 也可以交给第三方让它们回送消息。
func (b *Base) Self() Reference { return b.ref }

// Manager 返回本 Actor 注册到的 Manager 的句柄。
func (b *Base) Manager() *ManagerHandle { return b.mgr }

// Reply 回答 env：若 env 由 Ask 发出则填充它的回复槽；
// 否则若携带 sender 就把 response 回送给 sender（以本 Actor
// 作为新的发送方）；两者都没有时丢弃并记录日志。
// 处理器可以无条件调用，不必先检查 IsSynchronous。
func (b *Base) Reply(env *Envelope, response any) {
	if env.IsSynchronous() {
		env.depositReply(response)
		return
	}
	if env.Sender != nil {
		if err := env.Sender.Send(response, b.ref); err != nil {
			defaultLogger.WithField("reason", err.Error()).Warn("reply send failed")
		}
		return
	}
	defaultLogger.WithField("message_type", goTypeName(response)).Warn("reply with no sender and no reply sink, dropping")
}

// handlerName 把负载的 Go 类型映射到分发查找的方法名 On<TypeName>。
// 类型名首字母统一大写，未导出的消息类型也能映射到导出的处理器方法；
// 指针负载先解引用，*Ping 和 Ping 解析到同一个处理器。
func handlerName(payload any) string {
	t := reflect.TypeOf(payload)
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := t.Name()
	if name == "" {
		return ""
	}
	r := []rune(name)
	r[0] = unicode.ToUpper(r[0])
	return "On" + string(r)
}

// goTypeName 返回负载的 Go 类型名，用于诊断输出。
func goTypeName(payload any) string {
	t := reflect.TypeOf(payload)
	if t == nil {
		return "<nil>"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// dispatch 在 a 上调用 env.Payload 对应的处理器（若存在且签名正确）。
// 返回是否有处理器被调用。
func dispatch(a Actor, env *Envelope) bool {
	name := handlerName(env.Payload)
	if name == "" {
		return false
	}
	m := reflect.ValueOf(a).MethodByName(name)
	if !m.IsValid() {
		return false
	}
	fn, ok := m.Interface().(func(*Envelope))
	if !ok {
		return false
	}
	fn(env)
	return true
}
