package fragment

import (
	"sync"

	"github.com/dep2p/go-scamper/config"
	"github.com/dep2p/go-scamper/pkg/interfaces/transport"
	"github.com/dep2p/go-scamper/pkg/lib/log"
)

var logger = log.Logger("core/fragment")

// ============================================================================
//                              溢出策略
// ============================================================================

// OverflowPolicy 分片累计超限时的处理策略
type OverflowPolicy interface {
	// OnOverflow 返回 true 表示丢弃已排队的分片
	//
	// total 包含触发本次调用的分片，fragments 为当前队列的只读视图。
	OnOverflow(conn transport.Conn, stream uint16, total int, fragments [][]byte) (discard bool)
}

// OverflowPolicyFunc 函数形式的溢出策略
type OverflowPolicyFunc func(conn transport.Conn, stream uint16, total int, fragments [][]byte) bool

// OnOverflow 实现 OverflowPolicy
func (f OverflowPolicyFunc) OnOverflow(conn transport.Conn, stream uint16, total int, fragments [][]byte) bool {
	return f(conn, stream, total, fragments)
}

// DefaultOverflowPolicy 关闭连接并丢弃队列
var DefaultOverflowPolicy OverflowPolicy = OverflowPolicyFunc(func(conn transport.Conn, stream uint16, total int, fragments [][]byte) bool {
	logger.Warn("分片累计超限，关闭连接",
		"conn", log.TruncateID(conn.ID(), 8),
		"remote", conn.RemoteAddr().String(),
		"stream", stream,
		"total", total,
		"fragments", len(fragments))
	if err := conn.Close(); err != nil {
		logger.Debug("close after overflow failed", "error", err)
	}
	return true
})

// ObservedPolicy 调用 p 之前先调用 observe，p 为 nil 时使用 DefaultOverflowPolicy
func ObservedPolicy(p OverflowPolicy, observe func(conn transport.Conn, stream uint16, total int)) OverflowPolicy {
	if p == nil {
		p = DefaultOverflowPolicy
	}
	if observe == nil {
		return p
	}
	return OverflowPolicyFunc(func(conn transport.Conn, stream uint16, total int, fragments [][]byte) bool {
		observe(conn, stream, total)
		return p.OnOverflow(conn, stream, total, fragments)
	})
}

// ============================================================================
//                              Reassembler
// ============================================================================

// State 子流队列状态
type State int

const (
	// StateEmpty 没有未完成分片
	StateEmpty State = iota
	// StateAccumulating 正在累积
	StateAccumulating
	// StateOverflowed 已超限且策略选择继续累积
	StateOverflowed
)

// String 返回状态名
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateAccumulating:
		return "accumulating"
	case StateOverflowed:
		return "overflowed"
	default:
		return "unknown"
	}
}

type key struct {
	conn   string
	stream uint16
}

type queue struct {
	frags      [][]byte
	total      int
	overflowed bool
}

// Reassembler 分片重组器
//
// 一把锁保护整个队列映射，避免创建队列时的更新丢失。
type Reassembler struct {
	mu     sync.Mutex
	queues map[key]*queue

	limit  int
	policy OverflowPolicy
}

// New 创建重组器
//
// limit <= 0 时使用 config.DefaultOverflowCap，policy 为 nil 时使用 DefaultOverflowPolicy。
func New(limit int, policy OverflowPolicy) *Reassembler {
	if limit <= 0 {
		limit = config.DefaultOverflowCap
	}
	if policy == nil {
		policy = DefaultOverflowPolicy
	}
	return &Reassembler{
		queues: make(map[key]*queue),
		limit:  limit,
		policy: policy,
	}
}

// Limit 累计字节上限
func (r *Reassembler) Limit() int {
	return r.limit
}

// Push 处理一次投递
//
// 返回完整消息和 true；分片尚未完整时返回 nil 和 false。
func (r *Reassembler) Push(conn transport.Conn, f transport.Frame) ([]byte, bool) {
	k := key{conn: conn.ID(), stream: f.Stream}

	r.mu.Lock()
	q := r.queues[k]

	if f.Complete {
		if q == nil || len(q.frags) == 0 {
			delete(r.queues, k)
			r.mu.Unlock()
			return f.Data, true
		}
		delete(r.queues, k)
		r.mu.Unlock()

		merged := make([]byte, 0, q.total+len(f.Data))
		for _, frag := range q.frags {
			merged = append(merged, frag...)
		}
		return append(merged, f.Data...), true
	}

	if q == nil {
		q = &queue{}
		r.queues[k] = q
	}
	q.frags = append(q.frags, f.Data)
	q.total += len(f.Data)

	if q.total <= r.limit || q.overflowed {
		r.mu.Unlock()
		return nil, false
	}

	q.overflowed = true
	total := q.total
	view := make([][]byte, len(q.frags))
	copy(view, q.frags)
	r.mu.Unlock()

	// 策略可能关闭连接，在锁外调用
	if r.policy.OnOverflow(conn, f.Stream, total, view) {
		r.mu.Lock()
		if r.queues[k] == q {
			delete(r.queues, k)
		}
		r.mu.Unlock()
	}
	return nil, false
}

// Release 释放连接的所有队列，返回释放的队列数
func (r *Reassembler) Release(connID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for k := range r.queues {
		if k.conn == connID {
			delete(r.queues, k)
			n++
		}
	}
	return n
}

// State 返回子流队列状态
func (r *Reassembler) State(connID string, stream uint16) State {
	r.mu.Lock()
	defer r.mu.Unlock()

	q := r.queues[key{conn: connID, stream: stream}]
	switch {
	case q == nil || len(q.frags) == 0:
		return StateEmpty
	case q.overflowed:
		return StateOverflowed
	default:
		return StateAccumulating
	}
}

// Pending 返回子流队列中的分片数和字节数
func (r *Reassembler) Pending(connID string, stream uint16) (fragments, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if q := r.queues[key{conn: connID, stream: stream}]; q != nil {
		return len(q.frags), q.total
	}
	return 0, 0
}
