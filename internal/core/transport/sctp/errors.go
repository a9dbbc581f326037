package sctp

import "errors"

var (
	// ErrHandshake SCTP 关联建立失败
	ErrHandshake = errors.New("sctp: association handshake failed")

	// ErrEmptyMessage 收到没有标志字节的用户消息
	ErrEmptyMessage = errors.New("sctp: empty user message")
)
