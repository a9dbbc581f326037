// Package quic 实现基于 QUIC 的多子流传输
//
// 每个子流映射为一条 QUIC 单向流：本端首次向某个子流写入时打开，
// 之后该子流的所有消息都写在这条流上，保证子流内有序。
// 流上的数据使用 framing 包的帧格式，帧头携带子流标识和分片标志。
//
// 对端可打开的单向流数量受 MaxInStreams 限制（MaxIncomingUniStreams）。
//
// # TLS
//
// 每个 Transport 生成一张自签名 Ed25519 证书，ALPN 为 "scamper"。
// 节点之间不做证书链校验，连接只提供加密和完整性。
package quic
