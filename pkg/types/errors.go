package types

import "errors"

// ============================================================================
//                              地址相关错误
// ============================================================================

var (
	// ErrEmptyAddress 空地址
	ErrEmptyAddress = errors.New("empty address")

	// ErrInvalidAddress 无效的地址格式
	ErrInvalidAddress = errors.New("invalid address")

	// ErrInvalidPort 端口超出 1-65535
	ErrInvalidPort = errors.New("invalid port")
)
