package mailbox

import (
	"errors"
	"sync/atomic"
)

// ErrClosed 当向已关闭的邮箱推送消息时返回此错误。
var ErrClosed = errors.New("mailbox closed")

// ErrFull 当队列已增长到最大段数、无法再接纳消息时返回此错误。
var ErrFull = errors.New("mailbox full")

// Options 配置邮箱的底层存储。
// 默认配置下邮箱实际上是无界的：段容量 4096、段数上限 1<<20，
// 任何正常负载都不会触及上限。需要有界邮箱的使用方可以调小
// MaxSegments，并自行处理 Push 返回的 ErrFull。
type Options struct {
	// Capacity 每个底层环形段的容量
	Capacity uint64
	// MaxSegments 队列可增长到的最大段数
	MaxSegments uint64
}

// Mailbox 是单消费者的 FIFO 信封队列。
// 存储 any 而非具体的信封类型，使本包不依赖定义信封的上层包。
//
// 顺序保证是严格 FIFO，唯一的例外是 PushFront：
// 它把值插到所有已排队消息之前，每个 Actor 的生命周期中
// 只用一次，用于保证启动消息先于注册期间排入的用户消息被处理。
type Mailbox struct {
	// q 分段无锁队列，存放常规入队的消息
	q *SegmentedQueue[any]
	// front 插队槽位，只为启动消息保留
	front atomic.Pointer[any]
	// closed 关闭信号通道
	closed chan struct{}
	// notify 新消息通知通道
	notify chan struct{}
	// size 当前队列中的消息总数
	size atomic.Int64
}

// New 创建一个邮箱。Capacity 默认为 4096，MaxSegments 默认为 1<<20。
func New(opts Options) *Mailbox {
	capacity := opts.Capacity
	if capacity == 0 {
		capacity = 4096
	}
	maxSegments := opts.MaxSegments
	if maxSegments == 0 {
		maxSegments = 1 << 20
	}
	return &Mailbox{
		q:      NewSegmentedQueue[any](capacity, maxSegments),
		closed: make(chan struct{}),
		notify: make(chan struct{}, 1),
	}
}

// Closed 返回一个在 Close 执行后关闭的通道。
func (m *Mailbox) Closed() <-chan struct{} { return m.closed }

// Close 将邮箱标记为已关闭。此方法是幂等的。
// 已排队的消息仍然可以被弹出，后续的 Push 调用会失败。
func (m *Mailbox) Close() {
	select {
	case <-m.closed:
	default:
		close(m.closed)
	}
}

// Push 将 v 追加到邮箱尾部。
func (m *Mailbox) Push(v any) error {
	select {
	case <-m.closed:
		return ErrClosed
	default:
	}
	if !m.q.Enqueue(&v) {
		return ErrFull
	}
	m.size.Add(1)
	m.wake()
	return nil
}

// PushFront 把 v 插到所有已排队消息之前。
// 见 Mailbox 的说明：此方法只为启动消息存在。
func (m *Mailbox) PushFront(v any) {
	m.front.Store(&v)
	m.size.Add(1)
	m.wake()
}

// wake 唤醒可能阻塞在 Wait 上的消费者。
func (m *Mailbox) wake() {
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// Pop 弹出下一条消息，优先返回 PushFront 插入的值。
func (m *Mailbox) Pop() (any, bool) {
	if p := m.front.Swap(nil); p != nil {
		m.size.Add(-1)
		return *p, true
	}
	if v, ok := m.q.Dequeue(); ok && v != nil {
		m.size.Add(-1)
		return *v, true
	}
	return nil, false
}

// Len 返回当前排队的消息数（近似值）。
func (m *Mailbox) Len() int64 { return m.size.Load() }

// Wait 阻塞直到有消息可取或邮箱关闭，后者返回 false。
func (m *Mailbox) Wait() bool {
	select {
	case <-m.notify:
		return true
	case <-m.closed:
		return false
	}
}
