package tcp

import "errors"

var (
	// ErrHandshake 握手失败
	ErrHandshake = errors.New("tcp: handshake failed")

	// ErrUnexpectedHello 握手之后又收到握手帧
	ErrUnexpectedHello = errors.New("tcp: unexpected hello")
)
