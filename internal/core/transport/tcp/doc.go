// Package tcp 实现带子流分帧的 TCP 传输
//
// TCP 本身只有一条字节流，子流由 framing 包的帧头承载：
// 每帧带子流标识和"后续还有分片"标志，大消息按 MaxFragmentSize 拆分。
// 同一连接上的写操作串行化，一条消息的所有分片连续写出。
//
// # 握手
//
// 连接建立后双方各发送一个握手帧声明最大入/出子流数，
// 拨号方先写后读，接受方先读后写。协商结果：
//
//	入流 = min(本端入流, 对端出流)
//	出流 = min(本端出流, 对端入流)
//
// 握手受 DialTimeout 约束。
package tcp
