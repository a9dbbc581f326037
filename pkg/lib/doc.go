// Package lib 包含与协议无关的基础设施工具库
//
//   - buf: 只读字节缓冲与可增长写缓冲
//   - future: 一次性完成的异步结果
//   - log: 基于 slog 的分级日志封装
//
// 业务协议相关的类型放在 pkg/protocol 与 pkg/types 中。
package lib
