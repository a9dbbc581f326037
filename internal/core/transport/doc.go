// Package transport 按配置选择传输层实现
//
// 支持的传输：
//
//   - sctp（默认）：基于 UDP 的 SCTP，原生多子流，使用 pion/sctp
//   - tcp：单条 TCP 连接上的子流帧，握手时协商子流数
//   - quic：每个子流一条 QUIC 单向流
//
// 三种传输都实现 pkg/interfaces/transport 中的 Transport 接口，
// 引擎只依赖该接口。
//
// # Fx 模块集成
//
//	app := fx.New(
//	    fx.Supply(cfg),
//	    transport.Module,
//	    fx.Invoke(func(tr pkgtransport.Transport) { ... }),
//	)
//
// 停止时关闭传输层及其监听器和连接。
package transport
