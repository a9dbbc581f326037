// Package scamper 是多子流类型化消息引擎的入口
//
// 节点在支持多子流的连接上收发带类型的消息。每条消息的线帧为
// [魔数][类型签名 2 字节][负载]，可选压缩或加密；传输层可能把一条消息
// 拆成多个分片，节点按 (连接, 子流) 重组后解码并路由到绑定的处理器，
// 处理器返回的应答写回请求到达的子流。
//
// # 快速开始
//
//	dateQuery := protocol.MustMessageType("date-query", 1, 1)
//	dateAnswer := protocol.MustMessageType("date-answer", 1, 2)
//
//	b := scamper.NewBuilder(scamper.WithListen(types.MustParseAddress("0.0.0.0:8007")))
//	scamper.Handle(b, dateQuery, func(ctx context.Context, req *protocol.Request, msg protocol.Message[protocol.Void]) (protocol.Envelope, error) {
//	    return protocol.NewMessage(dateAnswer, time.Now().Unix()), nil
//	})
//	node, err := b.Build()
//	if err != nil {
//	    return err
//	}
//	if err := node.Start(ctx); err != nil {
//	    return err
//	}
//	defer node.Close()
//
// # 组件
//
//   - internal/core/transport: sctp（默认）、tcp、quic
//   - internal/core/association: 地址到连接的映射、子流轮转
//   - internal/core/fragment: 分片重组和溢出策略
//   - internal/core/codec: 按魔数分派的编解码器链
//   - internal/core/dispatch: 类型到处理器的路由
//   - internal/core/sender: 出站消息
//   - internal/core/engine: 连接读循环和监听
//
// 组件由 Fx 装配，见 Module。
package scamper
