// Package protocol 定义消息类型、类型注册表和处理器绑定
//
// # 消息类型
//
// MessageType 由两个签名字节标识，名称只用于展示：
//
//	var DateQuery = protocol.MustMessageType("date-query", 0x0e, 0x17)
//
// (0,0) 保留给"未知类型"，不能注册。两个 MessageType 相等当且仅当 Code() 相等。
//
// # 注册表
//
// Registry 在启动时一次性构建，之后只读：
//
//	reg, err := protocol.NewRegistry(DateQuery, DateAnswer)
//	t := reg.Resolve(buffer) // 读取 2 字节类型头
//
// # 处理器绑定
//
// Bindings 收集 (类型, 处理器) 对，Freeze 后生成不可变的 Router：
//
//	b := protocol.NewBindings()
//	_ = b.Bind(DateQuery, protocol.HandlerFunc(func(ctx context.Context, req *protocol.Request, m protocol.Message[protocol.Void]) (protocol.Envelope, error) {
//	    return protocol.NewMessage(DateAnswer, time.Now().String()), nil
//	}))
//	router, err := b.Freeze()
//
// 处理器负载类型决定解码方式：
//   - []byte          原始字节，不解码
//   - protocol.Void   无负载
//   - 其他类型        通过启动时选定的数据编码反序列化
//
// 重复绑定、零类型、空处理器、冻结后绑定均返回 ErrConfiguration。
package protocol
