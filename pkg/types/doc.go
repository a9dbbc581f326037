// Package types 定义 go-scamper 的公共数据结构
//
// 这是整个系统的最底层包，不依赖任何其他内部包。
// 所有类型都是纯值类型，用于在各模块间传递数据。
//
// # 文件组织
//
//   - address.go - Address 多宿主地址
//   - errors.go  - 公共错误定义
//
// # 多宿主地址
//
// 一个逻辑对端由一个主地址和零个或多个次地址组成：
//
//	addr, _ := types.ParseMultiHomed("10.0.0.1:9000,10.0.1.1:9000")
//	addr.Key()       // "10.0.0.1:9000"
//	addr.String()    // "10.0.0.1:9000{10.0.1.1:9000}"
//	addr.Endpoints() // [10.0.0.1:9000 10.0.1.1:9000]
//
// 相等性和映射键只取主地址 host:port，次地址只是连接提示。
package types
