package testkit

import (
	"math/rand"
	"time"
)

// Chaos 是混沌注入工具，用于在测试里模拟投递丢失和调度抖动：
// 按概率丢弃操作，或在执行前加入随机延迟。
// 适合验证排序保证在并发发送方被打乱节奏时仍然成立。
type Chaos struct {
	// DropProbability 操作被丢弃的概率（0.0-1.0）
	DropProbability float64
	// MaxDelay 执行前的最大随机延迟
	MaxDelay time.Duration
	// Rand 随机数生成器（可选，默认用时间种子）
	Rand *rand.Rand
}

// rng 返回生效的随机数生成器。
func (c Chaos) rng() *rand.Rand {
	if c.Rand != nil {
		return c.Rand
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// Apply 把混沌效果施加到 fn：可能丢弃（返回 false）、
// 可能延迟后执行、也可能直接执行（均返回 true）。
func (c Chaos) Apply(fn func()) bool {
	r := c.rng()
	if c.DropProbability > 0 && r.Float64() < c.DropProbability {
		return false
	}
	if c.MaxDelay > 0 {
		time.Sleep(time.Duration(r.Int63n(int64(c.MaxDelay))))
	}
	fn()
	return true
}

// ApplyErr 与 Apply 相同，但执行可能失败的操作。
// 返回值第一项表示操作是否被执行，第二项是 fn 的错误。
func (c Chaos) ApplyErr(fn func() error) (bool, error) {
	var err error
	ran := c.Apply(func() { err = fn() })
	return ran, err
}
