package transport

import "errors"

var (
	// ErrClosed 传输层、监听器或连接已关闭
	ErrClosed = errors.New("transport: closed")

	// ErrStreamOutOfRange 子流标识超出协商的最大出流数
	ErrStreamOutOfRange = errors.New("transport: stream out of range")
)
