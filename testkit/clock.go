package testkit

import (
	"sort"
	"sync"
	"time"
)

// FakeClock 是可手动推进的模拟时钟，用于测试定时相关的逻辑。
// 它满足定时器组件对时钟的最小要求（Now/After），
// 测试用 Advance 推进时间，不需要真实等待。
type FakeClock struct {
	// mu 保护并发访问
	mu sync.Mutex
	// now 当前模拟时间
	now time.Time
	// tmrs 待触发的定时器列表
	tmrs []*fakeTimer
}

// fakeTimer 是一个待触发的模拟定时器。
type fakeTimer struct {
	// at 触发时间
	at time.Time
	// ch 触发时收到当前时间的通道
	ch chan time.Time
}

// NewFakeClock 创建一个模拟时钟。
// start 为初始时间，零值表示 Unix 纪元。
func NewFakeClock(start time.Time) *FakeClock {
	if start.IsZero() {
		start = time.Unix(0, 0)
	}
	return &FakeClock{now: start}
}

// Now 返回当前模拟时间。
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After 返回一个通道，模拟时间推进过 d 之后收到当前时间。
// 与 time.After 的用法一致，但由 Advance 驱动。
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	t := &fakeTimer{at: c.now.Add(d), ch: ch}
	c.tmrs = append(c.tmrs, t)
	return ch
}

// Pending 返回尚未触发的定时器数量。
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tmrs)
}

// Advance 推进模拟时间，按触发时间从早到晚唤醒所有到期的定时器。
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	var left []*fakeTimer
	var fire []*fakeTimer
	for _, t := range c.tmrs {
		if !t.at.After(now) {
			fire = append(fire, t)
		} else {
			left = append(left, t)
		}
	}
	c.tmrs = left
	c.mu.Unlock()

	sort.Slice(fire, func(i, j int) bool { return fire[i].at.Before(fire[j].at) })
	for _, t := range fire {
		select {
		case t.ch <- now:
		default:
		}
		close(t.ch)
	}
}
