package mailbox

import (
	"sync/atomic"
)

// ringCell 是环形缓冲区的单个单元，由序列号协调生产者和消费者。
// val 不需要原子操作：生产者先写 val 再发布 seq，
// 消费者观察到新 seq 后才读 val，seq 的原子操作保证了可见性。
type ringCell[T any] struct {
	// seq 序列号，用于协调生产者和消费者
	seq atomic.Uint64
	// val 存储的值指针
	val *T
}

// Ring 是一个多生产者、单消费者（MPSC）的无锁环形缓冲区。
// 基于 Dmitry Vyukov 的有界队列算法，针对邮箱场景做了单消费者特化：
// 每个邮箱只被它的 Actor 工作协程出队，head 因此不需要 CAS。
//
//   - 入队时，生产者 CAS 更新 tail 并设置值
//   - 出队时，消费者直接推进 head 并读取值
//   - 序列号用于检测缓冲区是否为空或已满
type Ring[T any] struct {
	// mask 用于快速取模的掩码（容量必须是 2 的幂）
	mask uint64
	// buf 环形缓冲区单元数组
	buf []ringCell[T]
	// head 消费者指针，只被唯一的消费者读写
	head uint64
	// tail 生产者指针
	tail atomic.Uint64
}

// NewRing 创建一个新的环形缓冲区。
// 容量会被向上取整到最近的 2 的幂（最小为 2）。
// 初始化时，每个单元的序列号设置为其索引。
func NewRing[T any](capacity uint64) *Ring[T] {
	if capacity < 2 {
		capacity = 2
	}
	c := uint64(1)
	for c < capacity {
		c <<= 1
	}
	r := &Ring[T]{
		mask: c - 1,
		buf:  make([]ringCell[T], c),
	}
	for i := range r.buf {
		r.buf[i].seq.Store(uint64(i))
	}
	return r
}

// Capacity 返回环形缓冲区的实际容量。
func (r *Ring[T]) Capacity() uint64 { return uint64(len(r.buf)) }

// Enqueue 将值入队，可被多个 goroutine 并发调用。
// 使用 CAS 操作实现无锁入队，如果缓冲区已满返回 false。
//
// 算法说明：
//  1. 读取 tail 指针
//  2. 计算对应的单元索引（tail & mask）
//  3. 检查序列号是否匹配 tail（表示该单元可写入）
//  4. CAS 更新 tail，成功则写入值并发布序列号
func (r *Ring[T]) Enqueue(v *T) bool {
	for {
		tail := r.tail.Load()
		cell := &r.buf[tail&r.mask]
		seq := cell.seq.Load()
		dif := int64(seq) - int64(tail)
		if dif == 0 {
			if r.tail.CompareAndSwap(tail, tail+1) {
				cell.val = v
				cell.seq.Store(tail + 1)
				return true
			}
		} else if dif < 0 {
			return false
		}
	}
}

// Dequeue 从队列中出队一个值，只能由唯一的消费者调用。
// head 位置的单元只有两种状态：seq == head 表示空，
// seq == head+1 表示有值可读，因此不需要重试循环。
func (r *Ring[T]) Dequeue() (*T, bool) {
	cell := &r.buf[r.head&r.mask]
	seq := cell.seq.Load()
	if int64(seq)-int64(r.head+1) < 0 {
		return nil, false
	}
	v := cell.val
	cell.val = nil
	cell.seq.Store(r.head + r.mask + 1)
	r.head++
	return v, true
}
