package protocol

import (
	"context"
	"fmt"

	"github.com/dep2p/go-scamper/pkg/interfaces/transport"
)

// Request 入站消息的上下文
type Request struct {
	// Conn 消息到达的连接
	Conn transport.Conn

	// Stream 消息到达的子流，应答写回同一子流
	Stream uint16

	// Type 解析出的消息类型
	Type MessageType
}

// Unmarshaler 数据编码的反序列化能力
type Unmarshaler interface {
	Unmarshal(data []byte, v any) error
}

// Handler 消息处理器
//
// Decode 将负载转换为处理器期望的消息，Handle 处理消息并可返回应答。
// 应答为 nil 表示不回复。
type Handler interface {
	Decode(t MessageType, payload []byte, u Unmarshaler) (any, error)
	Handle(ctx context.Context, req *Request, msg any) (Envelope, error)
}

// HandlerFunc 将类型化函数适配为 Handler
//
// M 为 []byte 时负载原样传入，为 Void 时忽略负载，
// 其他类型通过 Unmarshaler 反序列化。
func HandlerFunc[M any](fn func(ctx context.Context, req *Request, msg Message[M]) (Envelope, error)) Handler {
	return typedHandler[M]{fn: fn}
}

type typedHandler[M any] struct {
	fn func(ctx context.Context, req *Request, msg Message[M]) (Envelope, error)
}

func (h typedHandler[M]) Decode(t MessageType, payload []byte, u Unmarshaler) (any, error) {
	var body M
	switch p := any(&body).(type) {
	case *[]byte:
		*p = payload
	case *Void:
	default:
		if err := u.Unmarshal(payload, &body); err != nil {
			return nil, err
		}
	}
	return NewMessage(t, body), nil
}

func (h typedHandler[M]) Handle(ctx context.Context, req *Request, msg any) (Envelope, error) {
	m, ok := msg.(Message[M])
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrUnexpectedMessage, msg)
	}
	return h.fn(ctx, req, m)
}
