// Package association 管理逻辑对端地址到连接的映射
//
// 同一地址的并发 Connect 共享同一次尝试；失败的尝试不会被复用，
// 下一次 Connect 总是重新拨号。任何原因导致连接关闭后，映射条目都会被移除。
//
// 每个连接带独立的入/出子流轮转计数器，在 0..max-1 之间循环，
// max 取传输层协商的最大子流数，未知时返回 0。
package association

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"

	"github.com/dep2p/go-scamper/pkg/interfaces/transport"
	"github.com/dep2p/go-scamper/pkg/lib/future"
	"github.com/dep2p/go-scamper/pkg/lib/log"
	"github.com/dep2p/go-scamper/pkg/types"
)

var logger = log.Logger("core/association")

// ============================================================================
//                              轮转计数器
// ============================================================================

type roundRobin struct {
	n atomic.Uint64
}

// next 返回 0..max-1 循环的下一个值，max 为 0 时返回 0
func (r *roundRobin) next(max uint16) uint16 {
	if max == 0 {
		return 0
	}
	return uint16((r.n.Add(1) - 1) % uint64(max))
}

// ============================================================================
//                              association
// ============================================================================

type association struct {
	addr types.Address
	fut  *future.Future[transport.Conn]

	// conn 连接建立后设置，由 Manager.mu 保护
	conn transport.Conn

	in  roundRobin
	out roundRobin
}

// usable 是否可复用：尝试中，或已连接且未关闭
func (a *association) usable() bool {
	if a.fut.Failed() {
		return false
	}
	if a.conn != nil && a.conn.IsClosed() {
		return false
	}
	return true
}

// ============================================================================
//                              Manager
// ============================================================================

// ConnectedHook 出站连接建立后、Connect 的 Future 完成前调用
type ConnectedHook func(addr types.Address, conn transport.Conn)

// Option 管理器选项
type Option func(*Manager)

// WithConnectedHook 注册出站连接建立钩子
func WithConnectedHook(h ConnectedHook) Option {
	return func(m *Manager) {
		m.hooks = append(m.hooks, h)
	}
}

// Manager 关联管理器
//
// 一把锁保护地址映射和连接映射。
type Manager struct {
	tr    transport.Transport
	hooks []ConnectedHook

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	byAddr map[string]*association
	byConn map[string]*association
	closed bool
}

// NewManager 创建关联管理器
func NewManager(tr transport.Transport, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		tr:     tr,
		ctx:    ctx,
		cancel: cancel,
		byAddr: make(map[string]*association),
		byConn: make(map[string]*association),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnConnected 追加出站连接建立钩子，必须在首次 Connect 之前调用
func (m *Manager) OnConnected(h ConnectedHook) {
	m.mu.Lock()
	m.hooks = append(m.hooks, h)
	m.mu.Unlock()
}

// Connect 返回已建立或进行中的连接
//
// 同一地址的并发调用共享同一个 Future。失败的尝试在 Future 失败前
// 已从映射移除，之后的调用会发起新的尝试。管理器不施加超时。
func (m *Manager) Connect(addr types.Address) *future.Future[transport.Conn] {
	key := addr.Key()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return future.Failed[transport.Conn](ErrManagerClosed)
	}
	if a, ok := m.byAddr[key]; ok && a.usable() {
		m.mu.Unlock()
		logger.Debug("reuse association", "addr", addr.String())
		return a.fut
	}

	a := &association{addr: addr, fut: future.New[transport.Conn]()}
	m.byAddr[key] = a
	hooks := append([]ConnectedHook(nil), m.hooks...)
	m.mu.Unlock()

	logger.Debug("open association", "addr", addr.String())
	go m.dial(a, hooks)
	return a.fut
}

// dial 依次拨主地址和次地址，第一个成功者胜出
func (m *Manager) dial(a *association, hooks []ConnectedHook) {
	endpoints := a.addr.Endpoints()
	if len(endpoints) == 0 {
		m.fail(a, ErrNoEndpoints)
		return
	}

	var errs error
	for _, ep := range endpoints {
		conn, err := m.tr.Dial(m.ctx, ep)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", ep.Key(), err))
			logger.Debug("dial endpoint failed", "addr", a.addr.String(), "endpoint", ep.Key(), "error", err)
			continue
		}
		if !m.attach(a, conn) {
			_ = conn.Close()
			m.fail(a, ErrManagerClosed)
			return
		}
		for _, h := range hooks {
			h(a.addr, conn)
		}
		logger.Debug("association connected",
			"addr", a.addr.String(),
			"endpoint", ep.Key(),
			"conn", log.TruncateID(conn.ID(), 8))
		a.fut.Complete(conn)
		return
	}
	m.fail(a, errs)
}

// fail 移除条目后再让 Future 失败
func (m *Manager) fail(a *association, cause error) {
	m.mu.Lock()
	if cur, ok := m.byAddr[a.addr.Key()]; ok && cur == a {
		delete(m.byAddr, a.addr.Key())
	}
	m.mu.Unlock()

	logger.Debug("association connect failed", "addr", a.addr.String(), "error", cause)
	a.fut.Fail(fmt.Errorf("%w: %s: %w", ErrConnectFailed, a.addr.String(), cause))
}

// attach 记录连接并开始监听关闭，管理器已关闭时返回 false
func (m *Manager) attach(a *association, conn transport.Conn) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	a.conn = conn
	m.byConn[conn.ID()] = a
	m.mu.Unlock()

	go m.watch(a, conn)
	return true
}

// watch 连接关闭后移除条目
func (m *Manager) watch(a *association, conn transport.Conn) {
	<-conn.Done()

	m.mu.Lock()
	if cur, ok := m.byConn[conn.ID()]; ok && cur == a {
		delete(m.byConn, conn.ID())
	}
	key := a.addr.Key()
	if cur, ok := m.byAddr[key]; ok && cur == a {
		delete(m.byAddr, key)
	}
	m.mu.Unlock()

	logger.Debug("association closed", "addr", a.addr.String(), "conn", log.TruncateID(conn.ID(), 8))
}

// Register 登记入站连接，返回是否为新登记
//
// 对端地址尚无可用关联时，该连接成为此地址的关联。
func (m *Manager) Register(conn transport.Conn) bool {
	m.mu.Lock()
	_, fresh := m.register(conn)
	m.mu.Unlock()
	return fresh
}

// register 调用方持有 m.mu
func (m *Manager) register(conn transport.Conn) (*association, bool) {
	if a, ok := m.byConn[conn.ID()]; ok {
		return a, false
	}

	addr := conn.RemoteAddr()
	a := &association{addr: addr, fut: future.Succeeded(conn), conn: conn}
	m.byConn[conn.ID()] = a
	if cur, ok := m.byAddr[addr.Key()]; !ok || !cur.usable() {
		m.byAddr[addr.Key()] = a
	}
	if !m.closed {
		go m.watch(a, conn)
	}
	logger.Debug("inbound association registered", "remote", addr.String(), "conn", log.TruncateID(conn.ID(), 8))
	return a, true
}

// NextInStream 连接的下一个入流编号
func (m *Manager) NextInStream(conn transport.Conn) uint16 {
	m.mu.Lock()
	a, _ := m.register(conn)
	m.mu.Unlock()

	in, _ := conn.MaxStreams()
	return a.in.next(in)
}

// NextOutStream 连接的下一个出流编号
func (m *Manager) NextOutStream(conn transport.Conn) uint16 {
	m.mu.Lock()
	a, _ := m.register(conn)
	m.mu.Unlock()

	_, out := conn.MaxStreams()
	return a.out.next(out)
}

// NextInStreamFor 地址的下一个入流编号，未连接时返回 0
func (m *Manager) NextInStreamFor(addr types.Address) uint16 {
	m.mu.Lock()
	a, ok := m.byAddr[addr.Key()]
	var conn transport.Conn
	if ok {
		conn = a.conn
	}
	m.mu.Unlock()

	if conn == nil {
		return 0
	}
	in, _ := conn.MaxStreams()
	return a.in.next(in)
}

// NextOutStreamFor 地址的下一个出流编号，未连接时返回 0
func (m *Manager) NextOutStreamFor(addr types.Address) uint16 {
	m.mu.Lock()
	a, ok := m.byAddr[addr.Key()]
	var conn transport.Conn
	if ok {
		conn = a.conn
	}
	m.mu.Unlock()

	if conn == nil {
		return 0
	}
	_, out := conn.MaxStreams()
	return a.out.next(out)
}

// Lookup 返回地址当前的活动连接
func (m *Manager) Lookup(addr types.Address) (transport.Conn, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.byAddr[addr.Key()]
	if !ok || a.conn == nil || a.conn.IsClosed() {
		return nil, false
	}
	return a.conn, true
}

// Disconnect 关闭地址的活动连接，返回是否存在活动连接
func (m *Manager) Disconnect(addr types.Address) (bool, error) {
	conn, ok := m.Lookup(addr)
	if !ok {
		return false, nil
	}
	logger.Debug("disconnect", "addr", addr.String())
	return true, conn.Close()
}

// Len 当前关联数（含进行中的尝试）
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byAddr)
}

// Close 关闭管理器和所有连接
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	conns := make([]transport.Conn, 0, len(m.byConn))
	for _, a := range m.byConn {
		conns = append(conns, a.conn)
	}
	m.mu.Unlock()

	m.cancel()

	var errs error
	for _, c := range conns {
		errs = multierr.Append(errs, c.Close())
	}
	return errs
}
