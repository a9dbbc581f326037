// Package sctp 实现基于 UDP 的 SCTP 传输
//
// 使用 pion/sctp 用户态协议栈，SCTP 关联承载在 UDP 上，
// 子流直接映射为 SCTP 流标识。流按需打开：首次向某个子流写入时
// 调用 OpenStream，对端首次写入的子流由 AcceptStream 接收。
//
// # 分片
//
// 每条 SCTP 用户消息前加 1 字节标志，bit0 表示后续还有分片。
// 大于 MaxFragmentSize 的消息拆成多条用户消息，同一条消息的分片
// 在流写锁内连续写出，读端按到达顺序产出 Frame。
//
// # 子流数
//
// pion 在 INIT 中总是声明 65535 个流，MaxStreams 返回本端配置的
// 最大入/出子流数；超出入流上限的对端流被忽略。
package sctp
