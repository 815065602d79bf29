package testkit

import (
	"testing"
	"time"
)

// Probe 是测试探针，用于在测试中接收和断言消息。
// Actor 测试把处理器收到的负载 Put 进探针，
// 测试主协程用 Expect/ExpectNoMessage 驱动断言。
type Probe struct {
	// t 测试上下文，用于报告失败
	t testing.TB
	// ch 接收消息的通道
	ch chan any
	// fail 失败处理函数，默认为 t.Fatalf
	fail func(string, ...any)
}

// NewProbe 创建一个测试探针。
// buffer 为通道缓冲区大小（默认 1024），缓冲要足够大，
// 避免 Put 在被测 Actor 的处理器里阻塞。
func NewProbe(t testing.TB, buffer int) *Probe {
	if buffer <= 0 {
		buffer = 1024
	}
	p := &Probe{t: t, ch: make(chan any, buffer)}
	p.fail = t.Fatalf
	return p
}

// Chan 返回消息接收通道，可直接用于 select。
func (p *Probe) Chan() <-chan any { return p.ch }

// Put 向探针投递一条消息，通常在被测 Actor 的处理器中调用。
func (p *Probe) Put(v any) { p.ch <- v }

// Expect 等待并返回一条消息。
// 超时（默认 1 秒）未收到时测试失败。
func (p *Probe) Expect(timeout time.Duration) any {
	p.t.Helper()
	if timeout <= 0 {
		timeout = time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case v := <-p.ch:
		return v
	case <-timer.C:
		p.fail("timeout waiting message")
		return nil
	}
}

// ExpectNoMessage 验证在指定时间（默认 50 毫秒）内没有收到消息。
func (p *Probe) ExpectNoMessage(timeout time.Duration) {
	p.t.Helper()
	if timeout <= 0 {
		timeout = 50 * time.Millisecond
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case v := <-p.ch:
		p.fail("unexpected message: %#v", v)
	case <-timer.C:
	}
}

// Drain 取走当前已缓冲的全部消息并返回，不等待新消息。
func (p *Probe) Drain() []any {
	var out []any
	for {
		select {
		case v := <-p.ch:
			out = append(out, v)
		default:
			return out
		}
	}
}
