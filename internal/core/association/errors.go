package association

import "errors"

var (
	// ErrManagerClosed 管理器已关闭
	ErrManagerClosed = errors.New("association: manager closed")

	// ErrConnectFailed 所有端点都连接失败
	ErrConnectFailed = errors.New("association: connect failed")

	// ErrNoEndpoints 地址没有可拨号的端点
	ErrNoEndpoints = errors.New("association: address has no endpoints")
)
