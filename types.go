package scamper

import (
	"github.com/dep2p/go-scamper/internal/core/dispatch"
	"github.com/dep2p/go-scamper/internal/core/engine"
	"github.com/dep2p/go-scamper/internal/core/fragment"
	"github.com/dep2p/go-scamper/internal/core/metrics"
	"github.com/dep2p/go-scamper/internal/core/sender"
)

// ════════════════════════════════════════════════════════════════════════════
//                              节点状态
// ════════════════════════════════════════════════════════════════════════════

// NodeState 节点状态
type NodeState int

const (
	// StateIdle 已创建，未启动
	StateIdle NodeState = iota

	// StateRunning 运行中
	StateRunning

	// StateClosed 已关闭，不可重新启动
	StateClosed
)

// String 返回状态的字符串表示
func (s NodeState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              类型别名
// ════════════════════════════════════════════════════════════════════════════

// ErrorHandler 连接级错误处理
type ErrorHandler = dispatch.ErrorHandler

// ErrorHandlerFunc 函数形式的错误处理
type ErrorHandlerFunc = dispatch.ErrorHandlerFunc

// DecodeError 负载解码失败，携带截断的负载摘录
type DecodeError = dispatch.DecodeError

// OverflowPolicy 分片累计超限策略
type OverflowPolicy = fragment.OverflowPolicy

// OverflowPolicyFunc 函数形式的溢出策略
type OverflowPolicyFunc = fragment.OverflowPolicyFunc

// Receipt SendTo 的结果
type Receipt = sender.Receipt

// Server 监听中的服务端
type Server = engine.Server

// BandwidthStats 带宽快照：累计消息数、字节数和窗口内字节/秒
type BandwidthStats = metrics.Stats

// CloseOnError 默认错误处理：记录日志并关闭连接
var CloseOnError = dispatch.CloseOnError

// DefaultOverflowPolicy 默认溢出策略：关闭连接并丢弃队列
var DefaultOverflowPolicy = fragment.DefaultOverflowPolicy
