package mocks

import (
	"context"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/dep2p/go-scamper/pkg/interfaces/transport"
	"github.com/dep2p/go-scamper/pkg/types"
)

// ============================================================================
// MockTransport
// ============================================================================

// MockTransport 模拟 Transport 接口实现
type MockTransport struct {
	// 可覆盖的方法
	DialFunc      func(ctx context.Context, addr types.Address) (transport.Conn, error)
	ListenFunc    func(ctx context.Context, addr types.Address) (transport.Listener, error)
	ProtocolsFunc func() []string

	mu          sync.Mutex
	dialCalls   []DialCall
	listenCalls []ListenCall
	closed      bool
}

// DialCall 记录 Dial 调用
type DialCall struct {
	Addr types.Address
}

// ListenCall 记录 Listen 调用
type ListenCall struct {
	Addr types.Address
}

var _ transport.Transport = (*MockTransport)(nil)

// NewMockTransport 创建带有默认值的 MockTransport
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// Dial 拨号连接，默认返回一个新的 MockConn
func (m *MockTransport) Dial(ctx context.Context, addr types.Address) (transport.Conn, error) {
	m.mu.Lock()
	m.dialCalls = append(m.dialCalls, DialCall{Addr: addr})
	m.mu.Unlock()

	if m.DialFunc != nil {
		return m.DialFunc(ctx, addr)
	}
	return NewMockConn(addr), nil
}

// Listen 监听地址
func (m *MockTransport) Listen(ctx context.Context, addr types.Address) (transport.Listener, error) {
	m.mu.Lock()
	m.listenCalls = append(m.listenCalls, ListenCall{Addr: addr})
	m.mu.Unlock()

	if m.ListenFunc != nil {
		return m.ListenFunc(ctx, addr)
	}
	return NewMockListener(addr), nil
}

// Protocols 返回支持的协议
func (m *MockTransport) Protocols() []string {
	if m.ProtocolsFunc != nil {
		return m.ProtocolsFunc()
	}
	return []string{"mock"}
}

// Close 关闭传输层
func (m *MockTransport) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// DialCalls 返回 Dial 调用记录副本
func (m *MockTransport) DialCalls() []DialCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]DialCall, len(m.dialCalls))
	copy(out, m.dialCalls)
	return out
}

// DialCount 返回 Dial 调用次数
func (m *MockTransport) DialCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.dialCalls)
}

// ListenCalls 返回 Listen 调用记录副本
func (m *MockTransport) ListenCalls() []ListenCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ListenCall, len(m.listenCalls))
	copy(out, m.listenCalls)
	return out
}

// IsClosed 是否已关闭
func (m *MockTransport) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// ============================================================================
// MockListener
// ============================================================================

// MockListener 模拟 Listener
type MockListener struct {
	AddrValue types.Address

	conns     chan transport.Conn
	done      chan struct{}
	closeOnce sync.Once
}

var _ transport.Listener = (*MockListener)(nil)

// NewMockListener 创建 MockListener
func NewMockListener(addr types.Address) *MockListener {
	return &MockListener{
		AddrValue: addr,
		conns:     make(chan transport.Conn, 16),
		done:      make(chan struct{}),
	}
}

// Inject 投递一个入站连接
func (m *MockListener) Inject(c transport.Conn) {
	m.conns <- c
}

// Accept 接受连接，关闭后返回 transport.ErrClosed
func (m *MockListener) Accept() (transport.Conn, error) {
	select {
	case c := <-m.conns:
		return c, nil
	case <-m.done:
		return nil, transport.ErrClosed
	}
}

// Addr 返回监听地址
func (m *MockListener) Addr() net.Addr {
	return mockAddr(m.AddrValue.Key())
}

// Close 关闭监听器
func (m *MockListener) Close() error {
	m.closeOnce.Do(func() { close(m.done) })
	return nil
}

// ============================================================================
// MockConn
// ============================================================================

// WrittenFrame 记录一次 WriteFrame
type WrittenFrame struct {
	Stream uint16
	Data   []byte
}

// MockConn 模拟 Conn
type MockConn struct {
	IDValue     string
	Remote      types.Address
	MaxIn       uint16
	MaxOut      uint16
	WriteFunc   func(ctx context.Context, stream uint16, data []byte) error
	CloseFunc   func() error
	ReadFrameFn func() (transport.Frame, error)

	inbound   chan transport.Frame
	done      chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	writes  []WrittenFrame
	written chan WrittenFrame
}

var _ transport.Conn = (*MockConn)(nil)

// NewMockConn 创建 MockConn，默认 16 入/16 出子流
func NewMockConn(remote types.Address) *MockConn {
	return &MockConn{
		IDValue: uuid.NewString(),
		Remote:  remote,
		MaxIn:   16,
		MaxOut:  16,
		inbound: make(chan transport.Frame, 64),
		done:    make(chan struct{}),
		written: make(chan WrittenFrame, 64),
	}
}

// ID 连接唯一标识
func (m *MockConn) ID() string { return m.IDValue }

// RemoteAddr 对端地址
func (m *MockConn) RemoteAddr() types.Address { return m.Remote }

// LocalAddr 本地地址
func (m *MockConn) LocalAddr() net.Addr { return mockAddr("local") }

// Deliver 投递一次入站帧
func (m *MockConn) Deliver(f transport.Frame) {
	m.inbound <- f
}

// ReadFrame 读取 Deliver 投递的帧，关闭后返回 transport.ErrClosed
func (m *MockConn) ReadFrame() (transport.Frame, error) {
	if m.ReadFrameFn != nil {
		return m.ReadFrameFn()
	}
	select {
	case f := <-m.inbound:
		return f, nil
	case <-m.done:
		return transport.Frame{}, transport.ErrClosed
	}
}

// WriteFrame 记录写出的帧
func (m *MockConn) WriteFrame(ctx context.Context, stream uint16, data []byte) error {
	if m.IsClosed() {
		return transport.ErrClosed
	}
	if m.WriteFunc != nil {
		if err := m.WriteFunc(ctx, stream, data); err != nil {
			return err
		}
	}
	w := WrittenFrame{Stream: stream, Data: append([]byte(nil), data...)}
	m.mu.Lock()
	m.writes = append(m.writes, w)
	m.mu.Unlock()

	select {
	case m.written <- w:
	default:
	}
	return nil
}

// Writes 返回写出记录副本
func (m *MockConn) Writes() []WrittenFrame {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]WrittenFrame, len(m.writes))
	copy(out, m.writes)
	return out
}

// Written 每次 WriteFrame 后收到一条记录（缓冲 64）
func (m *MockConn) Written() <-chan WrittenFrame {
	return m.written
}

// MaxStreams 最大入/出子流数
func (m *MockConn) MaxStreams() (uint16, uint16) { return m.MaxIn, m.MaxOut }

// IsClosed 是否已关闭
func (m *MockConn) IsClosed() bool {
	select {
	case <-m.done:
		return true
	default:
		return false
	}
}

// Done 关闭通知
func (m *MockConn) Done() <-chan struct{} { return m.done }

// Close 关闭连接
func (m *MockConn) Close() error {
	var err error
	m.closeOnce.Do(func() {
		if m.CloseFunc != nil {
			err = m.CloseFunc()
		}
		close(m.done)
	})
	return err
}

type mockAddr string

func (a mockAddr) Network() string { return "mock" }
func (a mockAddr) String() string  { return string(a) }
