package engine

import "errors"

var (
	// ErrEngineClosed 引擎已关闭
	ErrEngineClosed = errors.New("engine: closed")

	// ErrFrameDecode 线帧解码失败
	ErrFrameDecode = errors.New("engine: frame decode failed")

	// ErrListen 主地址监听失败
	ErrListen = errors.New("engine: listen failed")
)
