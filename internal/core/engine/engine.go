package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"

	"github.com/dep2p/go-scamper/internal/core/association"
	"github.com/dep2p/go-scamper/internal/core/codec"
	"github.com/dep2p/go-scamper/internal/core/dispatch"
	"github.com/dep2p/go-scamper/internal/core/fragment"
	"github.com/dep2p/go-scamper/internal/core/metrics"
	"github.com/dep2p/go-scamper/pkg/interfaces/transport"
	"github.com/dep2p/go-scamper/pkg/lib/buf"
	"github.com/dep2p/go-scamper/pkg/lib/log"
	"github.com/dep2p/go-scamper/pkg/types"
)

var logger = log.Logger("core/engine")

// Option 引擎选项
type Option func(*Engine)

// WithReporter 设置指标上报
func WithReporter(r metrics.Reporter) Option {
	return func(e *Engine) {
		if r != nil {
			e.reporter = r
		}
	}
}

// Engine 连接读循环和监听
type Engine struct {
	tr         transport.Transport
	frags      *fragment.Reassembler
	chain      *codec.Chain
	dispatcher *dispatch.Dispatcher
	assoc      *association.Manager
	reporter   metrics.Reporter

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	conns   map[string]transport.Conn
	servers map[*Server]struct{}
	closed  bool
}

// New 创建引擎并挂到关联管理器上，出站连接建立后自动接入
func New(
	tr transport.Transport,
	frags *fragment.Reassembler,
	chain *codec.Chain,
	dispatcher *dispatch.Dispatcher,
	assoc *association.Manager,
	opts ...Option,
) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		tr:         tr,
		frags:      frags,
		chain:      chain,
		dispatcher: dispatcher,
		assoc:      assoc,
		reporter:   metrics.Nop{},
		ctx:        ctx,
		cancel:     cancel,
		conns:      make(map[string]transport.Conn),
		servers:    make(map[*Server]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	assoc.OnConnected(func(_ types.Address, conn transport.Conn) {
		e.Attach(conn)
	})
	return e
}

// Attach 为连接启动读协程，返回是否为首次接入
func (e *Engine) Attach(conn transport.Conn) bool {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		_ = conn.Close()
		return false
	}
	if _, ok := e.conns[conn.ID()]; ok {
		e.mu.Unlock()
		return false
	}
	e.conns[conn.ID()] = conn
	e.wg.Add(1)
	e.mu.Unlock()

	e.reporter.AssociationOpened()
	logger.Debug("connection attached", "conn", log.TruncateID(conn.ID(), 8), "remote", conn.RemoteAddr().String())

	go e.readLoop(conn)
	return true
}

// Attached 当前接入的连接数
func (e *Engine) Attached() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.conns)
}

func (e *Engine) readLoop(conn transport.Conn) {
	defer func() {
		released := e.frags.Release(conn.ID())
		e.mu.Lock()
		delete(e.conns, conn.ID())
		e.mu.Unlock()
		e.reporter.AssociationClosed()
		logger.Debug("connection detached",
			"conn", log.TruncateID(conn.ID(), 8),
			"remote", conn.RemoteAddr().String(),
			"releasedQueues", released)
		e.wg.Done()
	}()

	for {
		f, err := conn.ReadFrame()
		if err != nil {
			if !errors.Is(err, transport.ErrClosed) {
				logger.Debug("read frame failed", "conn", log.TruncateID(conn.ID(), 8), "error", err)
			}
			_ = conn.Close()
			return
		}
		e.reporter.FrameReceived(len(f.Data))

		data, complete := e.frags.Push(conn, f)
		if !complete {
			continue
		}

		msg, err := e.chain.Decode(buf.Wrap(data), f.Stream)
		if err != nil {
			e.dispatcher.ErrorHandler().HandleError(e.ctx, conn,
				fmt.Errorf("%w: stream %d, %d bytes: %w", ErrFrameDecode, f.Stream, len(data), err))
			continue
		}

		if err := e.dispatcher.Dispatch(e.ctx, conn, msg); err != nil {
			logger.Debug("dispatch failed", "type", msg.Type.String(), "stream", msg.Stream, "error", err)
		}
	}
}

// Close 停止所有 Server，关闭所有接入的连接并等待读协程退出
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	servers := make([]*Server, 0, len(e.servers))
	for s := range e.servers {
		servers = append(servers, s)
	}
	conns := make([]transport.Conn, 0, len(e.conns))
	for _, c := range e.conns {
		conns = append(conns, c)
	}
	e.mu.Unlock()

	var errs error
	for _, s := range servers {
		errs = multierr.Append(errs, s.Close())
	}
	e.cancel()
	for _, c := range conns {
		errs = multierr.Append(errs, c.Close())
	}
	e.wg.Wait()
	return errs
}
