package engine

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-scamper/pkg/interfaces/transport"
	"github.com/dep2p/go-scamper/pkg/types"
)

// Server 一组监听器及其 accept 循环
type Server struct {
	e         *Engine
	listeners []transport.Listener
	group     *errgroup.Group

	closeOnce sync.Once
	closeErr  error
}

// Listen 在地址上监听
//
// 主地址监听失败直接返回错误；次地址尽力而为，失败合并后记录告警。
// 每个监听器一个 accept 循环，入站连接登记到关联管理器后接入读循环。
func (e *Engine) Listen(ctx context.Context, addr types.Address) (*Server, error) {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return nil, ErrEngineClosed
	}

	primary, err := e.tr.Listen(ctx, addr.Primary())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrListen, addr.Primary().Key(), err)
	}
	listeners := []transport.Listener{primary}

	var secondaryErrs error
	for _, ep := range addr.Secondaries {
		l, err := e.tr.Listen(ctx, ep)
		if err != nil {
			secondaryErrs = multierr.Append(secondaryErrs, fmt.Errorf("%s: %w", ep.Key(), err))
			continue
		}
		listeners = append(listeners, l)
	}
	if secondaryErrs != nil {
		logger.Warn("secondary listen failed, continuing without it",
			"addr", addr.String(),
			"failed", len(multierr.Errors(secondaryErrs)),
			"error", secondaryErrs)
	}

	s := &Server{e: e, listeners: listeners, group: new(errgroup.Group)}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		_ = s.closeListeners()
		return nil, ErrEngineClosed
	}
	e.servers[s] = struct{}{}
	e.mu.Unlock()

	for _, l := range listeners {
		l := l
		s.group.Go(func() error {
			return s.acceptLoop(l)
		})
	}

	logger.Info("server started", "addr", addr.String(), "listeners", len(listeners))
	return s, nil
}

func (s *Server) acceptLoop(l transport.Listener) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, transport.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept on %s: %w", l.Addr(), err)
		}
		s.e.assoc.Register(conn)
		s.e.Attach(conn)
	}
}

// Addrs 实际监听地址，第一个为主地址
func (s *Server) Addrs() []net.Addr {
	out := make([]net.Addr, len(s.listeners))
	for i, l := range s.listeners {
		out[i] = l.Addr()
	}
	return out
}

// Wait 等待所有 accept 循环退出，返回第一个非关闭错误
func (s *Server) Wait() error {
	return s.group.Wait()
}

func (s *Server) closeListeners() error {
	var errs error
	for _, l := range s.listeners {
		errs = multierr.Append(errs, l.Close())
	}
	return errs
}

// Close 关闭所有监听器并等待 accept 循环退出，已接受的连接不受影响
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = multierr.Append(s.closeListeners(), s.group.Wait())

		s.e.mu.Lock()
		delete(s.e.servers, s)
		s.e.mu.Unlock()
	})
	return s.closeErr
}
