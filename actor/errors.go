package actor

import "errors"

var (
	// ErrDuplicateName 当注册名已被占用时由 Manager.Register 返回。
	ErrDuplicateName = errors.New("duplicate actor name")
	// ErrRegistryFrozen 当 Manager.Init 之后再调用 Register 时返回。
	ErrRegistryFrozen = errors.New("registry frozen after init")
	// ErrUnregisteredType 当负载类型从未注册、无法编码上线时返回。
	ErrUnregisteredType = errors.New("unregistered message type")
	// ErrUnsupportedRemoteSynchronous 由 RemoteReference.Ask 返回，
	// 同步发送只对本地引用有效。
	ErrUnsupportedRemoteSynchronous = errors.New("synchronous ask not supported on remote reference")
	// ErrRuntimeStopped 当 Manager.End 完成后继续 Send/Ask 时返回。
	ErrRuntimeStopped = errors.New("runtime stopped")
	// ErrActorNotFound 由远程引用的内部入队返回：远程引用在本进程内
	// 没有可入队的邮箱。按名字解析用 ManagerHandle.Resolve 的布尔结果报告。
	ErrActorNotFound = errors.New("actor not found")
	// ErrAskTimeout 当 Ask 的回复槽在期限内未被填充时返回。
	ErrAskTimeout = errors.New("ask timeout")
)

// EncodeError 包装负载编码为线上帧时的失败。
type EncodeError struct {
	// TypeName 编码失败的类型名
	TypeName string
	// Err 底层错误
	Err error
}

func (e *EncodeError) Error() string {
	return "encode " + e.TypeName + ": " + e.Err.Error()
}

func (e *EncodeError) Unwrap() error { return e.Err }

// TransportError 包装已编码帧的传输失败。
type TransportError struct {
	// Endpoint 目标端点
	Endpoint string
	// Err 底层错误
	Err error
}

func (e *TransportError) Error() string {
	return "transport to " + e.Endpoint + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }
