// Package dispatch 把解码后的消息路由到处理器
//
// 找不到处理器的消息交给空处理器：记录日志、关闭连接、丢弃负载。
// 解码失败、处理器失败和应答失败都交给同一个 ErrorHandler，
// 默认实现记录日志并关闭连接。
package dispatch

import (
	"context"
	"fmt"

	"github.com/dep2p/go-scamper/internal/core/codec"
	"github.com/dep2p/go-scamper/internal/core/metrics"
	"github.com/dep2p/go-scamper/pkg/interfaces/transport"
	"github.com/dep2p/go-scamper/pkg/lib/log"
	"github.com/dep2p/go-scamper/pkg/protocol"
)

var logger = log.Logger("core/dispatch")

// ============================================================================
//                              错误处理
// ============================================================================

// ErrorHandler 连接级错误处理
type ErrorHandler interface {
	HandleError(ctx context.Context, conn transport.Conn, err error)
}

// ErrorHandlerFunc 函数适配
type ErrorHandlerFunc func(ctx context.Context, conn transport.Conn, err error)

func (f ErrorHandlerFunc) HandleError(ctx context.Context, conn transport.Conn, err error) {
	f(ctx, conn, err)
}

// CloseOnError 默认错误处理：记录日志并关闭连接
var CloseOnError ErrorHandler = ErrorHandlerFunc(func(ctx context.Context, conn transport.Conn, err error) {
	logger.Warn("closing connection after error",
		"conn", log.TruncateID(conn.ID(), 8),
		"remote", conn.RemoteAddr().String(),
		"error", err)
	_ = conn.Close()
})

// ============================================================================
//                              Dispatcher
// ============================================================================

// Replier 发送应答
type Replier interface {
	Send(ctx context.Context, conn transport.Conn, env protocol.Envelope, stream uint16) error
}

// Option Dispatcher 选项
type Option func(*Dispatcher)

// WithErrorHandler 设置错误处理
func WithErrorHandler(h ErrorHandler) Option {
	return func(d *Dispatcher) {
		if h != nil {
			d.errs = h
		}
	}
}

// WithReporter 设置指标上报
func WithReporter(r metrics.Reporter) Option {
	return func(d *Dispatcher) {
		if r != nil {
			d.reporter = r
		}
	}
}

// Dispatcher 消息分发器
type Dispatcher struct {
	router   *protocol.Router
	enc      protocol.Unmarshaler
	replier  Replier
	errs     ErrorHandler
	reporter metrics.Reporter
}

// New 创建分发器
func New(router *protocol.Router, enc protocol.Unmarshaler, replier Replier, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		router:   router,
		enc:      enc,
		replier:  replier,
		errs:     CloseOnError,
		reporter: metrics.Nop{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ErrorHandler 返回当前错误处理
func (d *Dispatcher) ErrorHandler() ErrorHandler { return d.errs }

// Dispatch 处理一条解码后的消息
//
// 返回的错误已经交给 ErrorHandler，调用方只需记录。
func (d *Dispatcher) Dispatch(ctx context.Context, conn transport.Conn, msg codec.Decoded) error {
	d.reporter.MessageReceived(msg.Type, len(msg.Payload))

	h, ok := d.router.Handler(msg.Type)
	if !ok {
		d.reporter.UnknownType()
		return d.unknown(conn, msg)
	}

	body, err := h.Decode(msg.Type, msg.Payload, d.enc)
	if err != nil {
		derr := newDecodeError(msg.Type, msg.Payload, err)
		d.reporter.DecodeError(msg.Type)
		d.errs.HandleError(ctx, conn, derr)
		return derr
	}

	req := &protocol.Request{Conn: conn, Stream: msg.Stream, Type: msg.Type}
	reply, err := h.Handle(ctx, req, body)
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrHandler, msg.Type, err)
		d.errs.HandleError(ctx, conn, err)
		return err
	}
	if reply == nil {
		return nil
	}

	if err := d.replier.Send(ctx, conn, reply, msg.Stream); err != nil {
		err = fmt.Errorf("%w: %s on stream %d: %w", ErrReply, reply.MessageType(), msg.Stream, err)
		d.errs.HandleError(ctx, conn, err)
		return err
	}
	return nil
}

// unknown 空处理器
func (d *Dispatcher) unknown(conn transport.Conn, msg codec.Decoded) error {
	logger.Warn("no handler for message type, closing connection",
		"type", msg.Type.String(),
		"stream", msg.Stream,
		"size", len(msg.Payload),
		"remote", conn.RemoteAddr().String())
	_ = conn.Close()
	return fmt.Errorf("%w: %s", ErrUnknownType, msg.Type)
}
