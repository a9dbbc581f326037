package tcp

import (
	"errors"
	"net"
	"sync"

	"github.com/dep2p/go-scamper/pkg/interfaces/transport"
)

// 确保实现接口
var _ transport.Listener = (*Listener)(nil)

// Listener TCP 监听器
type Listener struct {
	t  *Transport
	nl net.Listener

	closeOnce sync.Once
	closed    bool
	mu        sync.Mutex
}

// Accept 接受连接并完成握手
//
// 单个连接握手失败只记录日志，不影响后续 Accept。
func (l *Listener) Accept() (transport.Conn, error) {
	for {
		nc, err := l.nl.Accept()
		if err != nil {
			if l.isClosed() || errors.Is(err, net.ErrClosed) {
				return nil, transport.ErrClosed
			}
			return nil, err
		}
		l.t.tune(nc)

		c, err := NewConn(nc, l.t.cfg, false)
		if err != nil {
			logger.Warn("inbound handshake failed", "remote", nc.RemoteAddr().String(), "error", err)
			continue
		}
		l.t.track(c)
		return c, nil
	}
}

// Addr 返回实际监听地址
func (l *Listener) Addr() net.Addr {
	return l.nl.Addr()
}

// Close 关闭监听器
func (l *Listener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.mu.Unlock()
		err = l.nl.Close()
		l.t.untrackListener(l)
	})
	return err
}

func (l *Listener) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}
