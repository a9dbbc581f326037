package tcp

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"

	"github.com/dep2p/go-scamper/config"
	"github.com/dep2p/go-scamper/pkg/interfaces/transport"
	"github.com/dep2p/go-scamper/pkg/lib/log"
	"github.com/dep2p/go-scamper/pkg/types"
)

var logger = log.Logger("transport/tcp")

// ============================================================================
//                              Transport 实现
// ============================================================================

// Transport TCP 传输层实现
type Transport struct {
	cfg config.TransportConfig

	mu        sync.Mutex
	listeners map[*Listener]struct{}
	conns     map[string]*Conn

	closed atomic.Bool
}

// 确保实现 transport.Transport 接口
var _ transport.Transport = (*Transport)(nil)

// NewTransport 创建 TCP 传输层
func NewTransport(cfg config.TransportConfig) *Transport {
	return &Transport{
		cfg:       cfg,
		listeners: make(map[*Listener]struct{}),
		conns:     make(map[string]*Conn),
	}
}

// Dial 建立出站连接并完成握手
func (t *Transport) Dial(ctx context.Context, addr types.Address) (transport.Conn, error) {
	if t.closed.Load() {
		return nil, transport.ErrClosed
	}

	dialer := &net.Dialer{
		Timeout:   t.cfg.DialTimeout.Duration(),
		KeepAlive: t.cfg.KeepAlive.Duration(),
	}
	nc, err := dialer.DialContext(ctx, "tcp", addr.Key())
	if err != nil {
		return nil, fmt.Errorf("tcp dial %s: %w", addr.Key(), err)
	}
	t.tune(nc)

	c, err := NewConn(nc, t.cfg, true)
	if err != nil {
		return nil, err
	}
	t.track(c)
	return c, nil
}

// Listen 监听入站连接
func (t *Transport) Listen(ctx context.Context, addr types.Address) (transport.Listener, error) {
	if t.closed.Load() {
		return nil, transport.ErrClosed
	}

	lc := net.ListenConfig{KeepAlive: t.cfg.KeepAlive.Duration()}
	nl, err := lc.Listen(ctx, "tcp", addr.Key())
	if err != nil {
		return nil, fmt.Errorf("tcp listen %s: %w", addr.Key(), err)
	}

	l := &Listener{t: t, nl: nl}
	t.mu.Lock()
	t.listeners[l] = struct{}{}
	t.mu.Unlock()

	logger.Info("tcp listening", "addr", nl.Addr().String())
	return l, nil
}

// Protocols 返回支持的协议
func (t *Transport) Protocols() []string {
	return []string{"tcp", "tcp4", "tcp6"}
}

// Close 关闭传输层及所有监听器和连接
func (t *Transport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}

	t.mu.Lock()
	listeners := make([]*Listener, 0, len(t.listeners))
	for l := range t.listeners {
		listeners = append(listeners, l)
	}
	conns := make([]*Conn, 0, len(t.conns))
	for _, c := range t.conns {
		conns = append(conns, c)
	}
	t.mu.Unlock()

	var errs error
	for _, l := range listeners {
		errs = multierr.Append(errs, l.Close())
	}
	for _, c := range conns {
		errs = multierr.Append(errs, c.Close())
	}
	return errs
}

// ConnCount 返回活动连接数量
func (t *Transport) ConnCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns)
}

// ============================================================================
//                              辅助方法
// ============================================================================

func (t *Transport) tune(nc net.Conn) {
	tc, ok := nc.(*net.TCPConn)
	if !ok {
		return
	}
	_ = tc.SetNoDelay(t.cfg.NoDelay)
	if ka := t.cfg.KeepAlive.Duration(); ka > 0 {
		_ = tc.SetKeepAlive(true)
		_ = tc.SetKeepAlivePeriod(ka)
	}
}

// track 记录连接，关闭后自动移除
func (t *Transport) track(c *Conn) {
	t.mu.Lock()
	t.conns[c.ID()] = c
	t.mu.Unlock()

	go func() {
		<-c.Done()
		t.mu.Lock()
		delete(t.conns, c.ID())
		t.mu.Unlock()
	}()
}

func (t *Transport) untrackListener(l *Listener) {
	t.mu.Lock()
	delete(t.listeners, l)
	t.mu.Unlock()
}
