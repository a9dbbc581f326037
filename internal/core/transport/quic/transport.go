package quic

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/quic-go/quic-go"
	"go.uber.org/multierr"

	"github.com/dep2p/go-scamper/config"
	"github.com/dep2p/go-scamper/pkg/interfaces/transport"
	"github.com/dep2p/go-scamper/pkg/lib/log"
	"github.com/dep2p/go-scamper/pkg/types"
)

var logger = log.Logger("transport/quic")

// ============================================================================
//                              Transport 实现
// ============================================================================

// Transport QUIC 传输层
type Transport struct {
	cfg     config.TransportConfig
	tlsConf *tls.Config

	mu        sync.Mutex
	listeners map[*Listener]struct{}
	conns     map[string]*Conn

	closed atomic.Bool
}

// 确保实现 transport.Transport 接口
var _ transport.Transport = (*Transport)(nil)

// NewTransport 创建 QUIC 传输层
func NewTransport(cfg config.TransportConfig) (*Transport, error) {
	tlsConf, err := generateTLSConfig()
	if err != nil {
		return nil, err
	}
	return &Transport{
		cfg:       cfg,
		tlsConf:   tlsConf,
		listeners: make(map[*Listener]struct{}),
		conns:     make(map[string]*Conn),
	}, nil
}

func (t *Transport) quicConfig() *quic.Config {
	return &quic.Config{
		HandshakeIdleTimeout:  t.cfg.DialTimeout.Duration(),
		MaxIdleTimeout:        t.cfg.IdleTimeout.Duration(),
		KeepAlivePeriod:       t.cfg.KeepAlive.Duration(),
		MaxIncomingUniStreams: int64(t.cfg.MaxInStreams),
		MaxIncomingStreams:    -1,
	}
}

// Dial 建立出站 QUIC 连接
func (t *Transport) Dial(ctx context.Context, addr types.Address) (transport.Conn, error) {
	if t.closed.Load() {
		return nil, transport.ErrClosed
	}

	if d := t.cfg.DialTimeout.Duration(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	qc, err := quic.DialAddr(ctx, addr.Key(), t.tlsConf.Clone(), t.quicConfig())
	if err != nil {
		return nil, fmt.Errorf("quic dial %s: %w", addr.Key(), err)
	}

	c := newConn(qc, t.cfg)
	t.track(c)
	logger.Debug("quic connection established", "remote", c.remote.String(), "conn", log.TruncateID(c.id, 8))
	return c, nil
}

// Listen 在 UDP 端点上接受 QUIC 连接
func (t *Transport) Listen(ctx context.Context, addr types.Address) (transport.Listener, error) {
	if t.closed.Load() {
		return nil, transport.ErrClosed
	}

	ql, err := quic.ListenAddr(addr.Key(), t.tlsConf.Clone(), t.quicConfig())
	if err != nil {
		return nil, fmt.Errorf("quic listen %s: %w", addr.Key(), err)
	}

	l := newListener(t, ql)
	t.mu.Lock()
	t.listeners[l] = struct{}{}
	t.mu.Unlock()

	logger.Info("quic listening", "addr", ql.Addr().String())
	return l, nil
}

// Protocols 返回支持的协议
func (t *Transport) Protocols() []string {
	return []string{"quic"}
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
