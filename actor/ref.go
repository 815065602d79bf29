package actor

import (
	"time"

	"github.com/vincent212/actors-go/mailbox"
)

// Reference 是目标 Actor 的不透明句柄，有本地和远程两个变体：
// 本地变体直接入队到进程内的邮箱，远程变体交给出站传输。
// 两个变体都支持异步 Send；同步 Ask 只对本地变体有效，
// 远程调用 Ask 一律返回 ErrUnsupportedRemoteSynchronous。
//
// 接口带有未导出方法，因此只能由本包的两个具体变体实现，
// 调用方只传递 Reference 值，不需要也不能够自己实现。
type Reference interface {
	// Name 返回目标 Actor 的注册名。
	Name() string
	// Send 异步投递 payload。sender 非 nil 时附在信封上供对方回复。
	Send(payload any, sender Reference) error
	// Ask 投递 payload 并阻塞等待回复。timeout <= 0 表示无限等待。
	Ask(payload any, sender Reference, timeout time.Duration) (any, error)

	endpoint() string
	enqueue(env *Envelope) error
}

// LocalReference 指向本进程内的一个邮箱。
type LocalReference struct {
	// name 目标 Actor 的注册名
	name string
	// mb 目标 Actor 的邮箱
	mb *mailbox.Mailbox
}

// Name 返回目标 Actor 的注册名。
func (r *LocalReference) Name() string { return r.name }

func (r *LocalReference) endpoint() string { return "" }

func (r *LocalReference) enqueue(env *Envelope) error {
	if err := r.mb.Push(env); err != nil {
		if err == mailbox.ErrClosed {
			return ErrRuntimeStopped
		}
		return err
	}
	return nil
}

// Send 把一条异步消息追加到目标邮箱，立即返回。
func (r *LocalReference) Send(payload any, sender Reference) error {
	return r.enqueue(newEnvelope(payload, sender))
}

// Ask 入队一条携带单槽回复通道的请求，阻塞调用方直到回复到达
// 或超时。timeout <= 0 表示无限等待。注意：在处理器内部对一个
// 可能回头调用自己的目标做无限等待的 Ask 会死锁。
func (r *LocalReference) Ask(payload any, sender Reference, timeout time.Duration) (any, error) {
	env := newAskEnvelope(payload, sender)
	if err := r.enqueue(env); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		return <-env.replySink, nil
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case v := <-env.replySink:
		return v, nil
	case <-timer.C:
		defaultLogger.WithField("actor", r.name).WithField("correlation_id", env.id).Debug("ask timed out")
		return nil, ErrAskTimeout
	}
}

// RemoteReference 指向另一个进程里注册的 Actor，
// 通过出站传输投递到 endpointAddr。
type RemoteReference struct {
	// name 目标 Actor 在对端的注册名
	name string
	// endpointAddr 对端的传输地址
	endpointAddr string
	// out 负责实际传输的出站端
	out *Sender
}

// NewRemoteReference 构造一个指向 endpoint 上名为 actorName 的
// Actor 的引用，消息经由 out 投递。
func NewRemoteReference(actorName, endpoint string, out *Sender) *RemoteReference {
	return &RemoteReference{name: actorName, endpointAddr: endpoint, out: out}
}

// Name 返回目标 Actor 在对端的注册名。
func (r *RemoteReference) Name() string { return r.name }

// Endpoint 返回目标端点地址。
func (r *RemoteReference) Endpoint() string { return r.endpointAddr }

func (r *RemoteReference) endpoint() string { return r.endpointAddr }

func (r *RemoteReference) enqueue(*Envelope) error {
	return ErrActorNotFound
}

// Send 把 payload 交给出站传输投递到远程端点。
func (r *RemoteReference) Send(payload any, sender Reference) error {
	return r.out.SendTo(r.endpointAddr, r.name, payload, sender)
}

// Ask 始终失败：同步发送只在本进程内有效。
func (r *RemoteReference) Ask(any, Reference, time.Duration) (any, error) {
	return nil, ErrUnsupportedRemoteSynchronous
}
