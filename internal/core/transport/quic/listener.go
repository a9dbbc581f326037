package quic

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/quic-go/quic-go"

	"github.com/dep2p/go-scamper/pkg/interfaces/transport"
)

// 确保实现接口
var _ transport.Listener = (*Listener)(nil)

// Listener QUIC 监听器
type Listener struct {
	t  *Transport
	ql *quic.Listener

	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
	closeErr  error
}

func newListener(t *Transport, ql *quic.Listener) *Listener {
	ctx, cancel := context.WithCancel(context.Background())
	return &Listener{t: t, ql: ql, ctx: ctx, cancel: cancel}
}

// Accept 接受下一个已完成握手的连接
func (l *Listener) Accept() (transport.Conn, error) {
	qc, err := l.ql.Accept(l.ctx)
	if err != nil {
		if l.ctx.Err() != nil || errors.Is(err, quic.ErrServerClosed) {
			return nil, transport.ErrClosed
		}
		return nil, err
	}
	c := newConn(qc, l.t.cfg)
	l.t.track(c)
	return c, nil
}

// Addr 返回实际监听地址
func (l *Listener) Addr() net.Addr {
	return l.ql.Addr()
}

// Close 关闭监听器，已接受的连接不受影响
func (l *Listener) Close() error {
	l.closeOnce.Do(func() {
		l.cancel()
		l.closeErr = l.ql.Close()
		l.t.untrackListener(l)
	})
	return l.closeErr
}
