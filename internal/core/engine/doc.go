// Package engine 把传输层连接接入消息处理流水线
//
// 每个连接一个读协程：
//
//	ReadFrame → 分片重组 → 编解码器链解码 → Dispatcher → 处理器 → 应答
//
// 同一连接上的消息在读协程内依次分发，子流内顺序与到达顺序一致。
// 入站连接由 Server 的 accept 循环接入，出站连接在关联管理器建立连接后、
// Connect 的 Future 完成前接入，因此应答总能被分发。
//
// 连接关闭时释放该连接的全部分片队列。
package engine
