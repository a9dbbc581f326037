// Package codec 实现线帧编解码器链
//
// # 线帧格式
//
//	byte 0     魔数：123 = raw，124 = 压缩或加密
//	byte 1-2   消息类型签名
//	byte 3..N  负载（raw 为原始字节，其他为变换后的字节）
//
// # 编解码器
//
//   - Raw：魔数 123，负载原样
//   - Compressing：魔数 124，gzip（级别 0-9）
//   - Encrypting：魔数 124，Blowfish，口令折叠为最多 56 字节密钥，可多轮
//   - Auto：无魔数，负载超过阈值时走 Compressing，否则走 Raw
//
// Compressing 和 Encrypting 共用魔数 124，同一个链只能装配其中之一。
//
// # 探测
//
// Probe 只在魔数匹配时消费一个字节，否则不移动读游标，
// 这样下一个编解码器可以探测同一段字节。
//
// # Chain
//
// Chain 在构建时建立 魔数→编解码器 表，解码时读取一次魔数后直接分派，
// 编码时走配置的出站编解码器。所有编解码器无状态，可并发使用。
package codec
