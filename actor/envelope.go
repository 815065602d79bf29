package actor

import "sync/atomic"

// Envelope 把消息负载、发送方信息和可选的同步回复槽打包在一起。
// 信封创建后不可变，由恰好一次的处理器调用消费。
type Envelope struct {
	// Payload 被投递的消息
	Payload any
	// Sender 发起这次发送的引用，可能为 nil
	Sender Reference

	// origin 信封进入运行时的位置（本地/远程）
	origin origin
	// wireType 远程来源信封的原始线上类型名，用于拒绝回执
	wireType string
	// id 关联标识，目前只在同步请求上生成，用于日志排查
	id string
	// replySink 同步请求的单槽回复通道
	replySink chan any
	// replied 标记回复槽是否已被填充
	replied atomic.Bool
}

// newEnvelope 构造一个本地来源的异步信封。
func newEnvelope(payload any, sender Reference) *Envelope {
	return &Envelope{Payload: payload, Sender: sender, origin: originLocal}
}

// newAskEnvelope 构造一个携带单槽回复通道的本地信封，供 Ask 使用。
func newAskEnvelope(payload any, sender Reference) *Envelope {
	return &Envelope{
		Payload:   payload,
		Sender:    sender,
		origin:    originLocal,
		id:        newID(),
		replySink: make(chan any, 1),
	}
}

// IsSynchronous 报告此信封是否由 Ask 发出、正在等待回复。
func (e *Envelope) IsSynchronous() bool { return e.replySink != nil }

// depositReply 向回复槽投递，至多一次。第二次投递属于编程错误，
// 只记录日志不投递，避免阻塞写容量为一的通道。
func (e *Envelope) depositReply(value any) {
	if e.replySink == nil {
		return
	}
	if !e.replied.CompareAndSwap(false, true) {
		defaultLogger.WithField("correlation_id", e.id).Warn("reply sink already filled, dropping second reply")
		return
	}
	e.replySink <- value
}
