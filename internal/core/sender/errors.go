package sender

import "errors"

var (
	// ErrChannelClosed 连接已关闭，未写出任何数据
	ErrChannelClosed = errors.New("sender: channel closed")

	// ErrMarshal 消息体序列化失败
	ErrMarshal = errors.New("sender: marshal failed")

	// ErrEncode 线帧编码失败
	ErrEncode = errors.New("sender: encode failed")
)
