package actor

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// jsonCodec 实现 gRPC 的 JSON 编解码器。
// 线上传输的字节就是 wireFrame 描述的那份 JSON 文档，
// 不依赖 protobuf，任何能讲这份 JSON 的对端都可以互通。
type jsonCodec struct{}

// Name 返回编解码器名称 "json"。
func (jsonCodec) Name() string { return "json" }

// Marshal 使用 encoding/json 将值序列化为字节切片。
func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal 使用 encoding/json 将字节切片反序列化为值。
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func init() { encoding.RegisterCodec(jsonCodec{}) }

// deliverAck 是单帧投递的确认响应。
type deliverAck struct {
	// OK 表示帧是否被接收端排入处理
	OK bool `json:"ok"`
	// Err 排入失败时的错误信息
	Err string `json:"err,omitempty"`
}

// transportServer 定义接收端实现、出站端调用的投递服务接口。
type transportServer interface {
	Deliver(context.Context, *wireFrame) (*deliverAck, error)
}

const (
	serviceName   = "actors.Transport"
	deliverMethod = "/" + serviceName + "/Deliver"
)

// registerTransportService 向 gRPC 服务器注册投递服务。
func registerTransportService(srv *grpc.Server, impl transportServer) {
	srv.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*transportServer)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "Deliver",
				Handler: func(s any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
					var in wireFrame
					if err := dec(&in); err != nil {
						return nil, err
					}
					return impl.(transportServer).Deliver(ctx, &in)
				},
			},
		},
		Metadata: "json",
	}, impl)
}

// netAddress 把不透明的端点字符串转成 net 包可用的地址。
// 支持 "tcp://host:port" 形式，绑定侧的通配主机 "*" 映射为空主机。
// 运行时除此之外不解释端点，端点之间只做相等比较。
func netAddress(endpoint string) string {
	addr := strings.TrimPrefix(endpoint, "tcp://")
	if strings.HasPrefix(addr, "*:") {
		addr = addr[1:]
	}
	return addr
}

// Sender 是远程传输的出站端：按端点地址维护一个 gRPC 连接池，
// 把 RemoteReference 上的 Send 调用编码成线上帧发出去。
// 连接惰性创建、按端点复用，每个连接内部由 gRPC 串行化写入。
type Sender struct {
	// mu 保护 localEndpoint 和连接池
	mu sync.Mutex
	// localEndpoint 本进程的入站端点，盖在出站帧的 sender_endpoint 上
	localEndpoint string
	// conns 按端点地址索引的客户端连接池
	conns map[string]*grpc.ClientConn
}

// NewSender 创建一个出站传输。localEndpoint 是对端回复时要拨号的
// 本进程入站地址，会盖在出站帧上；从不期待回复的进程可以传空。
func NewSender(localEndpoint string) *Sender {
	return &Sender{localEndpoint: localEndpoint, conns: make(map[string]*grpc.ClientConn)}
}

// LocalEndpoint 返回盖在出站帧上的本进程入站端点。
func (s *Sender) LocalEndpoint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.localEndpoint
}

// SetLocalEndpoint 更新后续出站帧携带的本进程入站端点。
func (s *Sender) SetLocalEndpoint(endpoint string) {
	s.mu.Lock()
	s.localEndpoint = endpoint
	s.mu.Unlock()
}

// conn 获取或创建到指定端点的 gRPC 连接。
func (s *Sender) conn(endpoint string) (*grpc.ClientConn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns == nil {
		return nil, ErrRuntimeStopped
	}
	if c, ok := s.conns[endpoint]; ok {
		return c, nil
	}
	cc, err := grpc.Dial(netAddress(endpoint),
		grpc.WithInsecure(),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})),
	)
	if err != nil {
		return nil, err
	}
	s.conns[endpoint] = cc
	return cc, nil
}

// SendTo 把发往 endpoint 上 receiver 的 payload 编码成线上帧，
// 通过池化连接投递一帧，等待接收端确认（最多 5 秒）。编码失败、
// 连接获取失败、投递 RPC 失败和接收端拒绝入队都同步返回给调用方；
// 接收端确认入队之后的路由失败不经此返回，以 Reject 带内送回。
func (s *Sender) SendTo(endpoint, receiver string, payload any, sender Reference) error {
	senderActor := ""
	senderEndpoint := s.LocalEndpoint()
	if sender != nil {
		senderActor = sender.Name()
		// 转发远程来源的消息时，回复路径指向真正的源头进程
		if rr, ok := sender.(*RemoteReference); ok {
			senderEndpoint = rr.endpointAddr
		}
	}
	frame, err := encodeFrame(receiver, payload, senderActor, senderEndpoint)
	if err != nil {
		return err
	}
	cc, err := s.conn(endpoint)
	if err != nil {
		if err == ErrRuntimeStopped {
			return err
		}
		return &TransportError{Endpoint: endpoint, Err: err}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var ack deliverAck
	if err := cc.Invoke(ctx, deliverMethod, frame, &ack, grpc.ForceCodec(jsonCodec{})); err != nil {
		return &TransportError{Endpoint: endpoint, Err: err}
	}
	if !ack.OK && ack.Err != "" {
		return &TransportError{Endpoint: endpoint, Err: errors.New(ack.Err)}
	}
	return nil
}

// Close 拆除所有池化连接，之后的 SendTo 返回 ErrRuntimeStopped。
func (s *Sender) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		_ = c.Close()
	}
	s.conns = nil
}

// Frame 是接收端自己邮箱里的消息：一帧尚未路由的入站线上数据。
// 它由 gRPC 投递回调入队、接收端的工作协程处理，
// 使帧的解码和路由与其他 Actor 一样是串行的。
type Frame struct {
	// wire 解析后的线上帧
	wire *wireFrame
}

// Receiver 是远程传输的入站端，本身是一个普通的 Actor：
// 注册进 Manager、和其他 Actor 一样收到 Start 和 Shutdown。
// 绑定的 gRPC 服务把每个入站帧排进它的邮箱，它的处理器解码帧、
// 按名字解析目标 Actor 并投递；任何一步失败都回送 Reject。
// 处理 Shutdown 时先停止接收新帧再返回。
type Receiver struct {
	Base

	// bindEndpoint 创建时要求绑定的端点
	bindEndpoint string
	// manager 解析 receiver 名字用的注册表
	manager *Manager
	// sender 回送 Reject 和构造入站 sender 引用用的出站端
	sender *Sender

	// server gRPC 服务器
	server *grpc.Server
	// lis 底层监听器
	lis net.Listener
	// serveOnce 保证监听循环只启动一次
	serveOnce sync.Once
}

// NewReceiver 在 bindEndpoint 绑定监听（立即绑定，端口冲突立即
// 报错），把解码后的帧路由进 manager 的注册表。返回的 Receiver
// 需要由调用方注册进 manager，监听循环在它收到调度时启动。
func NewReceiver(bindEndpoint string, manager *Manager, sender *Sender) (*Receiver, error) {
	lis, err := net.Listen("tcp", netAddress(bindEndpoint))
	if err != nil {
		return nil, err
	}
	r := &Receiver{
		bindEndpoint: bindEndpoint,
		manager:      manager,
		sender:       sender,
		lis:          lis,
	}
	r.server = grpc.NewServer(grpc.ForceServerCodec(jsonCodec{}))
	registerTransportService(r.server, r)
	return r, nil
}

// Endpoint 返回实际绑定的地址。绑定请求用了通配主机或零端口时，
// 这里是解析后的具体地址。
func (r *Receiver) Endpoint() string {
	addr := r.lis.Addr().String()
	if strings.HasPrefix(r.bindEndpoint, "tcp://") {
		return "tcp://" + addr
	}
	return addr
}

// OnInit 在消息循环开始前启动 gRPC 监听循环。
func (r *Receiver) OnInit() {
	r.serveOnce.Do(func() {
		defaultLogger.WithField("endpoint", r.bindEndpoint).Info("receiver listening")
		go func() { _ = r.server.Serve(r.lis) }()
	})
}

// Deliver 实现投递服务：把一帧排进接收端自己的邮箱。
// 帧的解码和路由在接收端的工作协程里完成，这里只入队。
func (r *Receiver) Deliver(_ context.Context, frame *wireFrame) (*deliverAck, error) {
	self := r.Self()
	if self == nil {
		return &deliverAck{OK: false, Err: "receiver not registered"}, nil
	}
	if err := self.Send(&Frame{wire: frame}, nil); err != nil {
		return &deliverAck{OK: false, Err: err.Error()}, nil
	}
	return &deliverAck{OK: true}, nil
}

// OnFrame 处理一帧入站数据：按名字解析目标 Actor、查注册表解码
// 负载、构造远程发送方引用并入队。任何一步失败走拒绝路径。
func (r *Receiver) OnFrame(env *Envelope) {
	f, ok := env.Payload.(*Frame)
	if !ok {
		return
	}
	w := f.wire

	// 生命周期消息只能由本进程的 Manager 注入，对端发来的直接丢弃
	if w.MessageType == "Start" || w.MessageType == "Shutdown" {
		defaultLogger.WithField("message_type", w.MessageType).
			Debug("discarding peer-originated lifecycle message")
		return
	}
	if w.MessageType == "" || w.Receiver == "" || w.Message == nil {
		r.reject(w, "Malformed frame: missing required field")
		return
	}

	target, ok := r.manager.resolve(w.Receiver)
	if !ok {
		r.reject(w, "Unknown receiver: "+w.Receiver)
		return
	}
	payload, err := decodePayload(w)
	if err != nil {
		r.reject(w, err.Error())
		return
	}

	var sender Reference
	if w.SenderActor != "" && w.SenderEndpoint != "" {
		sender = NewRemoteReference(w.SenderActor, w.SenderEndpoint, r.sender)
	}
	inbound := &Envelope{Payload: payload, Sender: sender, origin: originRemote, wireType: w.MessageType}
	if err := target.enqueue(inbound); err != nil {
		r.reject(w, "Failed to deliver "+w.MessageType+": "+err.Error())
	}
}

// OnShutdown 停止 gRPC 服务器。Stop 返回时不再有新帧进来，
// 之后工作协程关闭邮箱并退出。
func (r *Receiver) OnShutdown(*Envelope) {
	r.server.Stop()
	_ = r.lis.Close()
}

// reject 把一条 Reject 回送给帧声明的发送方。
// 帧本身就是 Reject 时不再回执，没有回复路径时丢弃并记录。
func (r *Receiver) reject(w *wireFrame, reason string) {
	logger := defaultLogger.WithField("message_type", w.MessageType).WithField("reason", reason)
	if w.MessageType == "Reject" {
		logger.Debug("not rejecting a reject")
		return
	}
	if w.SenderActor == "" || w.SenderEndpoint == "" {
		logger.Warn("rejecting undeliverable remote message with no return path")
		return
	}
	r.manager.metrics.IncReject()
	rejected := Reject{MessageType: w.MessageType, Reason: reason, RejectedBy: w.Receiver}
	back := NewRemoteReference(w.SenderActor, w.SenderEndpoint, r.sender)
	if err := back.Send(rejected, nil); err != nil {
		logger.WithField("endpoint", w.SenderEndpoint).Warn("failed to deliver reject")
	}
}
