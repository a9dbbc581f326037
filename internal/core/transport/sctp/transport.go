package sctp

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/pion/sctp"
	"github.com/pion/transport/v3/udp"
	"go.uber.org/multierr"

	"github.com/dep2p/go-scamper/config"
	"github.com/dep2p/go-scamper/pkg/interfaces/transport"
	"github.com/dep2p/go-scamper/pkg/lib/log"
	"github.com/dep2p/go-scamper/pkg/types"
)

var logger = log.Logger("transport/sctp")

// ============================================================================
//                              Transport 实现
// ============================================================================

// Transport SCTP over UDP 传输层
type Transport struct {
	cfg config.TransportConfig

	mu        sync.Mutex
	listeners map[*Listener]struct{}
	conns     map[string]*Conn

	closed atomic.Bool
}

// 确保实现 transport.Transport 接口
var _ transport.Transport = (*Transport)(nil)

// NewTransport 创建 SCTP 传输层
func NewTransport(cfg config.TransportConfig) *Transport {
	return &Transport{
		cfg:       cfg,
		listeners: make(map[*Listener]struct{}),
		conns:     make(map[string]*Conn),
	}
}

func (t *Transport) sctpConfig(nc net.Conn) sctp.Config {
	return sctp.Config{
		NetConn:              nc,
		MaxReceiveBufferSize: t.cfg.ReceiveBufferSize,
		MaxMessageSize:       t.cfg.MaxMessageSize,
		LoggerFactory:        loggerFactory{},
	}
}

// handshake 在 nc 上建立关联，ctx 结束时关闭 nc 中止握手
func (t *Transport) handshake(ctx context.Context, nc net.Conn, client bool) (*Conn, error) {
	if d := t.cfg.DialTimeout.Duration(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	type result struct {
		a   *sctp.Association
		err error
	}
	ch := make(chan result, 1)
	go func() {
		var r result
		if client {
			r.a, r.err = sctp.Client(t.sctpConfig(nc))
		} else {
			r.a, r.err = sctp.Server(t.sctpConfig(nc))
		}
		ch <- r
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			_ = nc.Close()
			return nil, fmt.Errorf("%w: %s: %w", ErrHandshake, nc.RemoteAddr(), r.err)
		}
		c := newConn(r.a, nc, t.cfg)
		t.track(c)
		return c, nil
	case <-ctx.Done():
		_ = nc.Close()
		go func() {
			if r := <-ch; r.a != nil {
				_ = r.a.Close()
			}
		}()
		return nil, fmt.Errorf("%w: %s: %w", ErrHandshake, nc.RemoteAddr(), ctx.Err())
	}
}

// Dial 建立出站关联
func (t *Transport) Dial(ctx context.Context, addr types.Address) (transport.Conn, error) {
	if t.closed.Load() {
		return nil, transport.ErrClosed
	}

	raddr, err := net.ResolveUDPAddr("udp", addr.Key())
	if err != nil {
		return nil, fmt.Errorf("sctp resolve %s: %w", addr.Key(), err)
	}
	nc, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("sctp dial %s: %w", addr.Key(), err)
	}

	c, err := t.handshake(ctx, nc, true)
	if err != nil {
		return nil, err
	}
	logger.Debug("sctp association established", "remote", c.remote.String(), "conn", log.TruncateID(c.id, 8))
	return c, nil
}

// Listen 在 UDP 端点上接受 SCTP 关联
func (t *Transport) Listen(ctx context.Context, addr types.Address) (transport.Listener, error) {
	if t.closed.Load() {
		return nil, transport.ErrClosed
	}

	laddr, err := net.ResolveUDPAddr("udp", addr.Key())
	if err != nil {
		return nil, fmt.Errorf("sctp resolve %s: %w", addr.Key(), err)
	}
	lc := udp.ListenConfig{}
	nl, err := lc.Listen("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("sctp listen %s: %w", addr.Key(), err)
	}

	l := newListener(t, nl)
	t.mu.Lock()
	t.listeners[l] = struct{}{}
	t.mu.Unlock()

	logger.Info("sctp listening", "addr", nl.Addr().String())
	return l, nil
}

// Protocols 返回支持的协议
func (t *Transport) Protocols() []string {
	return []string{"sctp"}
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

// ConnCount 返回活动关联数量
func (t *Transport) ConnCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns)
}

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
