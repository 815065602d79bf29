package actor

import (
	"sync"

	"github.com/vincent212/actors-go/mailbox"
)

// ManagerOptions 配置一个 Manager。
type ManagerOptions struct {
	// Mailbox 每个 Actor 邮箱的配置，零值使用包默认值
	Mailbox mailbox.Options
	// Endpoint 本进程的入站端点地址（可选）。Manager 自身不解释
	// 这个字符串，只是记录下来供应用在构造接收端和出站端时取用。
	Endpoint string
}

// ManagerHandle 是 Actor 通过 Base.Manager 持有的、指回所属
// Manager 的稳定句柄，外部调用方也用它观察和驱动运行时的终止。
type ManagerHandle struct {
	m *Manager
}

// Terminate 触发终止闩锁，让 Run 返回。通常由某个 Actor 在处理器里
// 判定工作完成后调用。幂等，可从任意 goroutine 调用多次。
func (h *ManagerHandle) Terminate() {
	h.m.terminateOnce.Do(func() { close(h.m.terminateCh) })
}

// IsTerminated 报告终止闩锁是否已被触发。
// 轮询它可以让监督逻辑在不阻塞于 Run 的情况下交错做其他工作。
func (h *ManagerHandle) IsTerminated() bool {
	select {
	case <-h.m.terminateCh:
		return true
	default:
		return false
	}
}

// Resolve 按名字查找本进程内注册的 Actor。
func (h *ManagerHandle) Resolve(name string) (Reference, bool) { return h.m.resolve(name) }

// registration 是注册表里的一个条目。
type registration struct {
	// name 注册名
	name string
	// ref Actor 的本地引用
	ref *LocalReference
	// cell 工作协程驱动该 Actor 所需的全部内容
	cell *cell
}

// Manager 拥有 Actor 注册表、每 Actor 一个的工作协程和终止闩锁。
// 注册表只在 Init 之前可写，之后冻结为只读；
// 每个 Actor 在一次 Manager 生命周期内恰好收到一次 Start 和一次
// Shutdown，且 Shutdown 是它的邮箱处理的最后一条消息。
type Manager struct {
	// mu 保护注册表
	mu sync.Mutex
	// frozen Init 之后为 true，注册表不再接受写入
	frozen bool
	// order 按注册顺序排列的名字，End 按此顺序投递 Shutdown
	order []string
	// byName 名字到注册条目的映射
	byName map[string]*registration
	// opts 创建时的配置
	opts ManagerOptions
	// handle 分发给 Actor 和调用方的句柄
	handle *ManagerHandle
	// metrics 运行时指标
	metrics *Metrics
	// senders 托管给 Manager、End 时关闭的出站传输
	senders []*Sender

	// wg 等待所有工作协程退出
	wg sync.WaitGroup
	// endOnce 保证 End 的投递和等待只执行一次
	endOnce sync.Once

	// terminateOnce 保证闩锁只关闭一次
	terminateOnce sync.Once
	// terminateCh 终止闩锁，Run 阻塞在它上面
	terminateCh chan struct{}
}

// NewManager 创建一个 Manager。
func NewManager(opts ManagerOptions) *Manager {
	m := &Manager{
		byName:      make(map[string]*registration),
		opts:        opts,
		metrics:     NewMetrics(),
		terminateCh: make(chan struct{}),
	}
	m.handle = &ManagerHandle{m: m}
	return m
}

// Handle 返回分发给 Actor 和调用方的 ManagerHandle。
func (m *Manager) Handle() *ManagerHandle { return m.handle }

// Endpoint 返回创建时记录的本进程入站端点，可能为空。
func (m *Manager) Endpoint() string { return m.opts.Endpoint }

// AttachSender 把一个出站传输托管给 Manager，End 时随之关闭。
func (m *Manager) AttachSender(s *Sender) {
	if s == nil {
		return
	}
	m.mu.Lock()
	m.senders = append(m.senders, s)
	m.mu.Unlock()
}

// Register 以 name 注册 a，返回它的引用。为 a 分配邮箱并注入
// 自身引用和 Manager 句柄。重名返回 ErrDuplicateName；
// Init 之后调用返回 ErrRegistryFrozen。
func (m *Manager) Register(name string, a Actor) (Reference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.frozen {
		return nil, ErrRegistryFrozen
	}
	if _, exists := m.byName[name]; exists {
		return nil, ErrDuplicateName
	}
	mb := mailbox.New(m.opts.Mailbox)
	ref := &LocalReference{name: name, mb: mb}
	base := a.self()
	base.ref = ref
	base.mgr = m.handle
	reg := &registration{name: name, ref: ref, cell: &cell{actor: a, mb: mb, name: name}}
	m.byName[name] = reg
	m.order = append(m.order, name)
	return ref, nil
}

// resolve 返回 name 注册的引用。
func (m *Manager) resolve(name string) (Reference, bool) {
	m.mu.Lock()
	reg, ok := m.byName[name]
	m.mu.Unlock()
	if !ok {
		return nil, false
	}
	return reg.ref, true
}

// regs 返回按注册顺序排列的条目快照。
func (m *Manager) regs() []*registration {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*registration, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.byName[name])
	}
	return out
}

// Init 冻结注册表，为每个已注册的 Actor 启动一个工作协程，
// 并把 Start 信封插到每个邮箱的队首，抢在注册期间排入的
// 任何用户消息之前。重复调用是空操作。
func (m *Manager) Init() {
	m.mu.Lock()
	if m.frozen {
		m.mu.Unlock()
		return
	}
	m.frozen = true
	m.mu.Unlock()

	for _, reg := range m.regs() {
		reg.cell.mb.PushFront(&Envelope{Payload: Start{}, origin: originLocal})
		m.wg.Add(1)
		go m.runCell(reg.cell)
	}
}

// Run 阻塞直到某个 ManagerHandle.Terminate 调用触发终止闩锁。
// 它本身不停止任何 Actor，调用方随后应调用 End。
func (m *Manager) Run() { <-m.terminateCh }

// End 按注册顺序向每个邮箱追加 Shutdown，等待所有工作协程
// 排空退出，最后关闭托管的传输资源。重复调用是空操作。
func (m *Manager) End() {
	m.endOnce.Do(func() {
		for _, reg := range m.regs() {
			_ = reg.cell.mb.Push(&Envelope{Payload: Shutdown{}, origin: originLocal})
		}
		m.wg.Wait()

		m.mu.Lock()
		senders := m.senders
		m.senders = nil
		m.mu.Unlock()
		for _, s := range senders {
			s.Close()
		}
	})
}

// cell 打包工作协程驱动一个 Actor 所需的内容。
type cell struct {
	// name 注册名
	name string
	// actor 用户提供的 Actor 值
	actor Actor
	// mb 该 Actor 的邮箱
	mb *mailbox.Mailbox
}

// runCell 是每 Actor 的消息循环：出队、分发、循环，直到处理完 Shutdown。
// 处理器 panic 被恢复并记录，不会提前终止 Actor。Shutdown 分发之后
// （即使它的处理器 panic）邮箱被关闭、循环立即退出，Shutdown 之后
// 才入队的消息不再处理，End 也不会因此挂起。
func (m *Manager) runCell(c *cell) {
	defer m.wg.Done()
	if init, ok := c.actor.(initializer); ok {
		m.runGuarded(c, nil, func() { init.OnInit() })
	}
	for {
		v, ok := c.mb.Pop()
		if !ok {
			if !c.mb.Wait() {
				break
			}
			continue
		}
		env := v.(*Envelope)
		_, isShutdown := env.Payload.(Shutdown)
		m.runGuarded(c, env, func() { m.handleEnvelope(c, env) })
		if isShutdown {
			c.mb.Close()
			break
		}
	}
	if fin, ok := c.actor.(finalizer); ok {
		m.runGuarded(c, nil, func() { fin.OnEnd() })
	}
}

// runGuarded 恢复 fn 的 panic，记录 Actor 名和出错的消息类型。
func (m *Manager) runGuarded(c *cell, env *Envelope, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.metrics.IncPanic()
			entry := defaultLogger.WithField("actor", c.name).WithField("reason", r)
			if env != nil {
				entry = entry.WithField("message_type", goTypeName(env.Payload))
			}
			entry.Error("recovered panic in handler")
		}
	}()
	fn()
}

// handleEnvelope 把 env 分发到 c.actor 的处理器。没有对应处理器时：
// 本地来源的消息带调试日志丢弃（缺处理器在本地是常规情况，
// 比如只实现了 OnPong 的 Actor 收到别的消息）；
// 远程来源的消息回送一条 Reject 给发送方。
func (m *Manager) handleEnvelope(c *cell, env *Envelope) {
	m.metrics.IncIn()
	if dispatch(c.actor, env) {
		return
	}
	if env.origin == originLocal {
		m.metrics.IncDropped()
		defaultLogger.WithField("actor", c.name).WithField("message_type", goTypeName(env.Payload)).
			Debug("no handler for message, dropping")
		return
	}
	m.rejectUnhandled(c, env)
}

// rejectUnhandled 为没有处理器的远程来源信封回送 Reject。
// Reject 本身没有处理器时只丢弃不再回执，两个都没实现 OnReject
// 的进程之间才不会形成无限的拒绝风暴。
func (m *Manager) rejectUnhandled(c *cell, env *Envelope) {
	if _, isReject := env.Payload.(Reject); isReject {
		defaultLogger.WithField("actor", c.name).Debug("no handler for Reject, dropping")
		return
	}
	sender, ok := env.Sender.(*RemoteReference)
	if !ok {
		defaultLogger.WithField("actor", c.name).WithField("message_type", env.wireType).
			Warn("no handler for remote message and no return path")
		return
	}
	m.metrics.IncReject()
	rejected := Reject{
		MessageType: env.wireType,
		Reason:      "No handler for " + env.wireType,
		RejectedBy:  c.name,
	}
	if err := sender.Send(rejected, nil); err != nil {
		defaultLogger.WithField("actor", c.name).WithField("reason", err.Error()).
			Warn("failed to deliver reject for unhandled message")
	}
}
