package actor

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Metrics 收集运行时指标：分发的消息数、本地无处理器丢弃数、
// 拒绝回执数、恢复的 panic 数。所有计数器都是原子操作，
// 无锁竞争。指标以 Prometheus 文本格式经 /metrics 端点暴露。
type Metrics struct {
	// startedAtUnix 系统启动时间的 Unix 时间戳
	startedAtUnix atomic.Int64
	// msgIn 进入分发的消息总数，含因无处理器而丢弃或拒绝的
	msgIn atomic.Uint64
	// dropped 本地来源、无处理器而丢弃的消息总数
	dropped atomic.Uint64
	// rejects 发出的拒绝回执总数
	rejects atomic.Uint64
	// panics 从处理器恢复的 panic 总数
	panics atomic.Uint64
}

// NewMetrics 创建一个指标收集器。
func NewMetrics() *Metrics {
	return &Metrics{}
}

// MarkStart 记录系统启动时间，仅首次调用生效。
func (m *Metrics) MarkStart() {
	if m.startedAtUnix.Load() == 0 {
		m.startedAtUnix.Store(time.Now().Unix())
	}
}

// IncIn 增加已分发消息计数。
func (m *Metrics) IncIn() { m.msgIn.Add(1) }

// IncDropped 增加无处理器丢弃计数。
func (m *Metrics) IncDropped() { m.dropped.Add(1) }

// IncReject 增加拒绝回执计数。
func (m *Metrics) IncReject() { m.rejects.Add(1) }

// IncPanic 增加恢复的 panic 计数。
func (m *Metrics) IncPanic() { m.panics.Add(1) }

// Metrics 返回本 Manager 的指标收集器。
func (m *Manager) Metrics() *Metrics { return m.metrics }

// EnableMetrics 在指定地址（默认 :9090）的 /metrics 路径下
// 以 Prometheus 文本格式暴露指标。应在 Init 之前调用。
func (m *Manager) EnableMetrics(addr string) {
	if addr == "" {
		addr = ":9090"
	}
	m.metrics.MarkStart()
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) { m.writeMetrics(w) })
	go func() { _ = http.ListenAndServe(addr, mux) }()
}

// writeMetrics 把指标写入 HTTP 响应。
// 除计数器外还包含所有邮箱的积压总量和运行时间。
func (m *Manager) writeMetrics(w http.ResponseWriter) {
	now := time.Now()
	var backlog int64
	for _, reg := range m.regs() {
		backlog += reg.cell.mb.Len()
	}

	_, _ = fmt.Fprintln(w, "# TYPE actors_messages_in_total counter")
	_, _ = fmt.Fprintln(w, "actors_messages_in_total", m.metrics.msgIn.Load())
	_, _ = fmt.Fprintln(w, "# TYPE actors_messages_dropped_total counter")
	_, _ = fmt.Fprintln(w, "actors_messages_dropped_total", m.metrics.dropped.Load())
	_, _ = fmt.Fprintln(w, "# TYPE actors_rejects_total counter")
	_, _ = fmt.Fprintln(w, "actors_rejects_total", m.metrics.rejects.Load())
	_, _ = fmt.Fprintln(w, "# TYPE actors_handler_panics_total counter")
	_, _ = fmt.Fprintln(w, "actors_handler_panics_total", m.metrics.panics.Load())
	_, _ = fmt.Fprintln(w, "# TYPE actors_mailbox_backlog gauge")
	_, _ = fmt.Fprintln(w, "actors_mailbox_backlog", backlog)

	_, _ = fmt.Fprintln(w, "# TYPE actors_uptime_seconds gauge")
	started := m.metrics.startedAtUnix.Load()
	if started == 0 {
		started = now.Unix()
	}
	_, _ = fmt.Fprintln(w, "actors_uptime_seconds", now.Sub(time.Unix(started, 0)).Seconds())
}
