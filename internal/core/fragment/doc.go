// Package fragment 实现分片重组
//
// 传输层可能把一条逻辑消息拆成多次投递，只有最后一次标记 Complete。
// Reassembler 按 (连接, 子流) 累积未完成分片，收到最后一个分片后
// 按到达顺序合并为一个连续缓冲区。
//
// # 状态机
//
//	EMPTY ──partial──▶ ACCUMULATING ──complete──▶ EMPTY（合并输出）
//	                        │
//	                  total > cap
//	                        ▼
//	                   OVERFLOWED ──discard / complete──▶ EMPTY
//
// 队列为空时收到完整帧直接透传，不复制。
//
// # 溢出策略
//
// 累计字节超过上限时，每个队列生命周期内只调用一次 OverflowPolicy。
// 默认策略关闭连接并丢弃队列；自定义策略返回 false 表示继续累积，
// 此时队列保持 OVERFLOWED 直到最后一个分片到达。
package fragment
