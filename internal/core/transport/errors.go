package transport

import "errors"

var (
	// ErrUnknownTransport 未知的传输协议
	ErrUnknownTransport = errors.New("transport: unknown kind")
)
