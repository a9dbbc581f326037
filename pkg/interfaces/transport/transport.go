// Package transport 定义传输层接口
//
// 引擎不关心套接字细节，只要求传输层提供以下能力：
// - 绑定本地地址并接受连接
// - 拨号到逻辑对端地址
// - 每个连接上有多个独立有序的子流，用小整数标识
// - 收发带子流标识和"后续还有分片"标志的不透明字节
// - 报告协商后的最大入/出子流数
// - 连接关闭通知
package transport

import (
	"context"
	"net"

	"github.com/dep2p/go-scamper/pkg/types"
)

// ============================================================================
//                              Transport 接口
// ============================================================================

// Transport 传输层接口
//
// Transport 抽象不同的传输协议（SCTP、TCP）。
type Transport interface {
	// Dial 连接到单个端点
	//
	// 多宿主的回退顺序由调用方（关联管理器）决定，
	// 传输层只拨 addr 的主地址。
	Dial(ctx context.Context, addr types.Address) (Conn, error)

	// Listen 在单个本地端点上监听
	Listen(ctx context.Context, addr types.Address) (Listener, error)

	// Protocols 返回支持的协议
	// 如 ["sctp"]、["tcp", "tcp4", "tcp6"]
	Protocols() []string

	// Close 关闭传输层及其所有监听器和连接
	Close() error
}

// ============================================================================
//                              Listener 接口
// ============================================================================

// Listener 监听器接口
type Listener interface {
	// Accept 接受连接
	// 阻塞直到有新连接到达或监听器关闭
	Accept() (Conn, error)

	// Addr 返回实际监听地址（端口 0 时为系统分配端口）
	Addr() net.Addr

	// Close 关闭监听器
	Close() error
}

// ============================================================================
//                              Conn 接口
// ============================================================================

// Frame 一次入站投递
//
// 一个逻辑消息可能被拆成多次投递，只有最后一次 Complete 为 true。
type Frame struct {
	// Stream 子流标识
	Stream uint16

	// Data 分片数据，所有权移交给调用方
	Data []byte

	// Complete 是否为消息的最后一个分片
	Complete bool
}

// Conn 多子流连接
type Conn interface {
	// ID 连接唯一标识
	ID() string

	// RemoteAddr 对端地址
	RemoteAddr() types.Address

	// LocalAddr 本地地址
	LocalAddr() net.Addr

	// ReadFrame 读取下一次投递
	//
	// 阻塞直到数据到达或连接关闭。只能由一个读协程调用。
	ReadFrame() (Frame, error)

	// WriteFrame 在子流上写出一条完整消息
	//
	// 传输层按需分片，对端收到的最后一个分片标记 Complete。
	// 可被多个协程并发调用。
	WriteFrame(ctx context.Context, stream uint16, data []byte) error

	// MaxStreams 协商后的最大入/出子流数，未知时为 0
	MaxStreams() (in, out uint16)

	// IsClosed 是否已关闭
	IsClosed() bool

	// Done 连接关闭时关闭的 channel
	Done() <-chan struct{}

	// Close 关闭连接
	Close() error
}
