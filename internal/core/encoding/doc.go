// Package encoding 提供消息体的数据编码
//
// 节点启动时选定一种编码，入站负载的反序列化和出站消息体的序列化都使用它：
//
//   - msgpack（默认）：紧凑的二进制对象表示
//   - json：文本表示，便于调试
//   - gob：Go 原生序列化
//   - protobuf：消息体必须实现 proto.Message
//
// 所有编码无状态，可并发使用。
package encoding
