package protocol

import "errors"

var (
	// ErrConfiguration 配置错误（重复类型、零类型、冻结后绑定等），在启动时返回
	ErrConfiguration = errors.New("protocol: configuration error")

	// ErrUnexpectedMessage 处理器收到与其负载类型不符的消息
	ErrUnexpectedMessage = errors.New("protocol: unexpected message for handler")
)
