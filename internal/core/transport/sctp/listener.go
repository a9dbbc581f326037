package sctp

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/dep2p/go-scamper/pkg/interfaces/transport"
)

// 确保实现接口
var _ transport.Listener = (*Listener)(nil)

// Listener SCTP 监听器
//
// 后台协程接受 UDP 会话并各自完成握手，慢速对端不阻塞其他对端。
type Listener struct {
	t  *Transport
	nl net.Listener

	ctx    context.Context
	cancel context.CancelFunc

	conns chan *Conn

	closeOnce sync.Once
	closeErr  error
}

func newListener(t *Transport, nl net.Listener) *Listener {
	ctx, cancel := context.WithCancel(context.Background())
	l := &Listener{
		t:      t,
		nl:     nl,
		ctx:    ctx,
		cancel: cancel,
		conns:  make(chan *Conn, 16),
	}
	go l.acceptLoop()
	return l
}

func (l *Listener) acceptLoop() {
	for {
		nc, err := l.nl.Accept()
		if err != nil {
			if l.ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
				logger.Warn("sctp accept failed", "error", err)
			}
			l.cancel()
			return
		}

		go func() {
			c, err := l.t.handshake(l.ctx, nc, false)
			if err != nil {
				logger.Warn("inbound sctp handshake failed", "remote", nc.RemoteAddr().String(), "error", err)
				return
			}
			select {
			case l.conns <- c:
			case <-l.ctx.Done():
				_ = c.Close()
			}
		}()
	}
}

// Accept 接受下一个已握手的关联
func (l *Listener) Accept() (transport.Conn, error) {
	select {
	case c := <-l.conns:
		return c, nil
	case <-l.ctx.Done():
		return nil, transport.ErrClosed
	}
}

// Addr 返回实际监听地址
func (l *Listener) Addr() net.Addr {
	return l.nl.Addr()
}

// Close 关闭监听器，已接受的关联不受影响
func (l *Listener) Close() error {
	l.closeOnce.Do(func() {
		l.cancel()
		l.closeErr = l.nl.Close()
		l.t.untrackListener(l)
	})
	return l.closeErr
}
