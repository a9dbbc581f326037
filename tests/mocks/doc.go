// Package mocks 提供统一的测试 Mock 实现
//
// Mock 采用可覆盖函数字段 + 调用记录的形式：
//
//	tr := mocks.NewMockTransport()
//	tr.DialFunc = func(ctx context.Context, addr types.Address) (transport.Conn, error) {
//	    return nil, errors.New("refused")
//	}
//	...
//	assert.Equal(t, 1, tr.DialCount())
//
// # 传输 Mock
//
//   - MockTransport: 模拟 transport.Transport，记录 Dial/Listen 调用
//   - MockListener: 模拟 transport.Listener，Inject 投递入站连接
//   - MockConn: 模拟 transport.Conn，Deliver 投递入站帧，Writes 记录出站帧
//
// 调用记录是并发安全的，关联管理器的测试会从多个协程同时拨号。
package mocks
