// Package sender 把类型化消息写到连接的子流上
//
// 消息体为 []byte 时原样发送，为 nil 或 protocol.Void 时负载为空，
// 其他类型用节点的数据编码序列化，之后经过编解码器链编码成线帧。
//
// SendTo 按地址发送：通过关联管理器取得连接，按轮转选择出流，
// 连接失败或连接已关闭时透明地重试一次，结果通过 Future 返回。
package sender

import (
	"context"
	"errors"
	"fmt"

	"github.com/dep2p/go-scamper/internal/core/association"
	"github.com/dep2p/go-scamper/internal/core/encoding"
	"github.com/dep2p/go-scamper/internal/core/metrics"
	"github.com/dep2p/go-scamper/pkg/interfaces/transport"
	"github.com/dep2p/go-scamper/pkg/lib/future"
	"github.com/dep2p/go-scamper/pkg/lib/log"
	"github.com/dep2p/go-scamper/pkg/protocol"
	"github.com/dep2p/go-scamper/pkg/types"
)

var logger = log.Logger("core/sender")

// Encoder 线帧编码
type Encoder interface {
	Encode(t protocol.MessageType, payload []byte) ([]byte, error)
}

// Receipt SendTo 的结果：写出消息的连接和子流
type Receipt struct {
	Conn   transport.Conn
	Stream uint16
}

// Option Sender 选项
type Option func(*Sender)

// WithReporter 设置指标上报
func WithReporter(r metrics.Reporter) Option {
	return func(s *Sender) {
		if r != nil {
			s.reporter = r
		}
	}
}

// Sender 出站消息发送
type Sender struct {
	codec    Encoder
	enc      encoding.Encoding
	assoc    *association.Manager
	reporter metrics.Reporter
}

// New 创建 Sender
func New(codec Encoder, enc encoding.Encoding, assoc *association.Manager, opts ...Option) *Sender {
	s := &Sender{
		codec:    codec,
		enc:      enc,
		assoc:    assoc,
		reporter: metrics.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Marshal 把消息体转换为负载字节
func (s *Sender) Marshal(env protocol.Envelope) ([]byte, error) {
	switch p := env.Payload().(type) {
	case nil:
		return nil, nil
	case []byte:
		return p, nil
	case protocol.Void:
		return nil, nil
	default:
		data, err := s.enc.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %s as %s: %w", ErrMarshal, env.MessageType(), s.enc.Name(), err)
		}
		return data, nil
	}
}

// Send 在指定子流上发送消息
//
// 连接已关闭时立即返回 ErrChannelClosed，不写任何数据。
func (s *Sender) Send(ctx context.Context, conn transport.Conn, env protocol.Envelope, stream uint16) error {
	if conn == nil || conn.IsClosed() {
		return ErrChannelClosed
	}

	payload, err := s.Marshal(env)
	if err != nil {
		return err
	}
	frame, err := s.codec.Encode(env.MessageType(), payload)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrEncode, env.MessageType(), err)
	}

	if err := conn.WriteFrame(ctx, stream, frame); err != nil {
		s.reporter.SendFailed()
		if errors.Is(err, transport.ErrClosed) {
			return fmt.Errorf("%w: %w", ErrChannelClosed, err)
		}
		return err
	}

	s.reporter.MessageSent(env.MessageType(), len(frame))
	logger.Debug("message sent",
		"type", env.MessageType().String(),
		"stream", stream,
		"size", len(frame),
		"conn", log.TruncateID(conn.ID(), 8))
	return nil
}

// SendNext 在连接的下一个出流上发送
func (s *Sender) SendNext(ctx context.Context, conn transport.Conn, env protocol.Envelope) (uint16, error) {
	if conn == nil || conn.IsClosed() {
		return 0, ErrChannelClosed
	}
	stream := s.assoc.NextOutStream(conn)
	return stream, s.Send(ctx, conn, env, stream)
}

// SendTo 按地址发送
//
// 序列化和编码错误不重试。
func (s *Sender) SendTo(ctx context.Context, addr types.Address, env protocol.Envelope) *future.Future[Receipt] {
	out := future.New[Receipt]()
	s.attempt(ctx, addr, env, out, 1)
	return out
}

func (s *Sender) attempt(ctx context.Context, addr types.Address, env protocol.Envelope, out *future.Future[Receipt], retries int) {
	if err := ctx.Err(); err != nil {
		out.Fail(err)
		return
	}

	s.assoc.Connect(addr).Then(func(conn transport.Conn, err error) {
		if err == nil {
			var stream uint16
			if stream, err = s.SendNext(ctx, conn, env); err == nil {
				out.Complete(Receipt{Conn: conn, Stream: stream})
				return
			}
		}

		if retries > 0 && retryable(err) {
			logger.Debug("send failed, reconnecting", "addr", addr.String(), "error", err)
			s.attempt(ctx, addr, env, out, retries-1)
			return
		}
		if errors.Is(err, association.ErrConnectFailed) {
			s.reporter.SendFailed()
		}
		out.Fail(err)
	})
}

func retryable(err error) bool {
	return !errors.Is(err, ErrMarshal) &&
		!errors.Is(err, ErrEncode) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}
