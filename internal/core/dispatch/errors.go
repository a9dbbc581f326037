package dispatch

import (
	"errors"
	"fmt"

	"github.com/dep2p/go-scamper/pkg/protocol"
)

var (
	// ErrUnknownType 收到未注册的消息类型
	ErrUnknownType = errors.New("dispatch: unknown message type")

	// ErrHandler 处理器返回错误
	ErrHandler = errors.New("dispatch: handler failed")

	// ErrReply 应答发送失败
	ErrReply = errors.New("dispatch: reply failed")
)

// ExcerptLimit 解码错误中保留的原始字节上限
const ExcerptLimit = 256

// DecodeError 负载无法按处理器期望的类型解码
type DecodeError struct {
	Type    protocol.MessageType
	Size    int
	Excerpt []byte
	Err     error
}

func newDecodeError(t protocol.MessageType, payload []byte, err error) *DecodeError {
	n := len(payload)
	if n > ExcerptLimit {
		n = ExcerptLimit
	}
	return &DecodeError{
		Type:    t,
		Size:    len(payload),
		Excerpt: append([]byte(nil), payload[:n]...),
		Err:     err,
	}
}

func (e *DecodeError) Error() string {
	more := ""
	if e.Size > len(e.Excerpt) {
		more = "..."
	}
	return fmt.Sprintf("dispatch: decode %s payload (%d bytes): %v: %q%s",
		e.Type, e.Size, e.Err, e.Excerpt, more)
}

func (e *DecodeError) Unwrap() error { return e.Err }
