package scamper

import (
	"context"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/dep2p/go-scamper/config"
	"github.com/dep2p/go-scamper/internal/core/association"
	"github.com/dep2p/go-scamper/internal/core/engine"
	"github.com/dep2p/go-scamper/internal/core/metrics"
	"github.com/dep2p/go-scamper/internal/core/sender"
	"github.com/dep2p/go-scamper/pkg/interfaces/transport"
	"github.com/dep2p/go-scamper/pkg/lib/future"
	"github.com/dep2p/go-scamper/pkg/lib/log"
	"github.com/dep2p/go-scamper/pkg/protocol"
	"github.com/dep2p/go-scamper/pkg/types"
)

var logger = log.Logger("scamper")

// stopTimeout Close 等待组件停止的上限
const stopTimeout = 30 * time.Second

// Node 消息节点
//
// 由 Builder.Build 创建。Start 之后可以连接和发送，Listen 之后接受入站连接。
// Close 之后不可重新启动。
type Node struct {
	config   *config.Config
	router   *protocol.Router
	gatherer prometheus.Gatherer
	app      *fx.App

	// 由 Fx 注入
	engine    *engine.Engine
	assoc     *association.Manager
	sender    *sender.Sender
	transport transport.Transport
	bandwidth *metrics.Bandwidth // 指标关闭时为 nil

	mu      sync.Mutex
	state   NodeState
	servers []*engine.Server
}

// ════════════════════════════════════════════════════════════════════════════
//                              生命周期
// ════════════════════════════════════════════════════════════════════════════

// Start 启动节点组件
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch n.state {
	case StateRunning:
		return ErrAlreadyStarted
	case StateClosed:
		return ErrNodeClosed
	}

	if err := n.app.Start(ctx); err != nil {
		return err
	}
	n.state = StateRunning
	logger.Info("node started", "transport", n.config.Transport.Kind)
	return nil
}

// Listen 在配置的 engine.listen 地址上监听，节点未启动时先启动
func (n *Node) Listen(ctx context.Context) (*Server, error) {
	if n.config.Engine.Listen.IsZero() {
		return nil, ErrNoListenAddress
	}
	return n.ListenOn(ctx, n.config.Engine.Listen)
}

// ListenOn 在指定地址上监听
//
// 主地址失败返回错误，次地址尽力而为。
func (n *Node) ListenOn(ctx context.Context, addr types.Address) (*Server, error) {
	n.mu.Lock()
	if n.state == StateIdle {
		if err := n.app.Start(ctx); err != nil {
			n.mu.Unlock()
			return nil, err
		}
		n.state = StateRunning
	}
	if n.state == StateClosed {
		n.mu.Unlock()
		return nil, ErrNodeClosed
	}
	n.mu.Unlock()

	s, err := n.engine.Listen(ctx, addr)
	if err != nil {
		return nil, err
	}

	n.mu.Lock()
	n.servers = append(n.servers, s)
	n.mu.Unlock()
	return s, nil
}

// ListenAddrs 所有 Server 的实际监听地址
func (n *Node) ListenAddrs() []net.Addr {
	n.mu.Lock()
	defer n.mu.Unlock()

	var out []net.Addr
	for _, s := range n.servers {
		out = append(out, s.Addrs()...)
	}
	return out
}

// Close 停止监听、关闭全部连接和传输层
func (n *Node) Close() error {
	n.mu.Lock()
	if n.state == StateClosed {
		n.mu.Unlock()
		return nil
	}
	running := n.state == StateRunning
	n.state = StateClosed
	servers := n.servers
	n.servers = nil
	n.mu.Unlock()

	var errs error
	for _, s := range servers {
		errs = multierr.Append(errs, s.Close())
	}
	if running {
		ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		errs = multierr.Append(errs, n.app.Stop(ctx))
	}
	logger.Info("node closed")
	return errs
}

// State 当前状态
func (n *Node) State() NodeState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

func (n *Node) running() error {
	switch n.State() {
	case StateIdle:
		return ErrNotStarted
	case StateClosed:
		return ErrNodeClosed
	}
	return nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              连接与发送
// ════════════════════════════════════════════════════════════════════════════

// Connect 连接到地址
//
// 同一地址的并发调用共享同一次尝试。多宿主地址依次尝试主地址和次地址。
func (n *Node) Connect(addr types.Address) *future.Future[transport.Conn] {
	if err := n.running(); err != nil {
		return future.Failed[transport.Conn](err)
	}
	return n.assoc.Connect(addr)
}

// Disconnect 关闭到地址的活动连接，返回是否存在活动连接
func (n *Node) Disconnect(addr types.Address) (bool, error) {
	if err := n.running(); err != nil {
		return false, err
	}
	return n.assoc.Disconnect(addr)
}

// SendTo 按地址发送，必要时先连接
func (n *Node) SendTo(ctx context.Context, addr types.Address, env protocol.Envelope) *future.Future[Receipt] {
	if err := n.running(); err != nil {
		return future.Failed[Receipt](err)
	}
	return n.sender.SendTo(ctx, addr, env)
}

// Send 在连接的指定子流上发送
func (n *Node) Send(ctx context.Context, conn transport.Conn, env protocol.Envelope, stream uint16) error {
	if err := n.running(); err != nil {
		return err
	}
	return n.sender.Send(ctx, conn, env, stream)
}

// SendNext 在连接的下一个出流上发送，返回使用的子流
func (n *Node) SendNext(ctx context.Context, conn transport.Conn, env protocol.Envelope) (uint16, error) {
	if err := n.running(); err != nil {
		return 0, err
	}
	return n.sender.SendNext(ctx, conn, env)
}

// Sender 出站发送器，节点启动后可用
func (n *Node) Sender() *sender.Sender {
	return n.sender
}

// ════════════════════════════════════════════════════════════════════════════
//                              观察
// ════════════════════════════════════════════════════════════════════════════

// Config 返回配置副本
func (n *Node) Config() *config.Config {
	return n.config.Clone()
}

// Router 处理器路由表
func (n *Node) Router() *protocol.Router {
	return n.router
}

// Protocols 传输层支持的协议
func (n *Node) Protocols() []string {
	return n.transport.Protocols()
}

// Associations 当前关联数
func (n *Node) Associations() int {
	return n.assoc.Len()
}

// Bandwidth 全部消息类型合计的带宽统计，指标关闭时返回零值
func (n *Node) Bandwidth() BandwidthStats {
	if n.bandwidth == nil {
		return BandwidthStats{}
	}
	return n.bandwidth.Totals()
}

// BandwidthByType 按消息类型的带宽统计，按类型码排序
func (n *Node) BandwidthByType() []BandwidthStats {
	if n.bandwidth == nil {
		return nil
	}
	byType := n.bandwidth.ByType()
	out := make([]BandwidthStats, 0, len(byType))
	for _, s := range byType {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type.Code() < out[j].Type.Code() })
	return out
}

// Gatherer 指标采集器
//
// 使用 WithRegisterer 注入的 Registerer 不是 Gatherer 时返回 nil。
func (n *Node) Gatherer() prometheus.Gatherer {
	return n.gatherer
}
