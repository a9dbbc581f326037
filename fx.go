package scamper

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-scamper/config"
	"github.com/dep2p/go-scamper/internal/core/association"
	"github.com/dep2p/go-scamper/internal/core/codec"
	"github.com/dep2p/go-scamper/internal/core/dispatch"
	"github.com/dep2p/go-scamper/internal/core/encoding"
	"github.com/dep2p/go-scamper/internal/core/engine"
	"github.com/dep2p/go-scamper/internal/core/fragment"
	"github.com/dep2p/go-scamper/internal/core/metrics"
	"github.com/dep2p/go-scamper/internal/core/sender"
	coretransport "github.com/dep2p/go-scamper/internal/core/transport"
	"github.com/dep2p/go-scamper/pkg/interfaces/transport"
	"github.com/dep2p/go-scamper/pkg/protocol"
)

// Module 组装引擎的全部内部模块，不含传输层
//
// 需要外部提供 *config.Config、*protocol.Router 和 transport.Transport；
// 内置传输可追加 TransportModule。
func Module() fx.Option {
	return fx.Options(
		association.Module,
		metrics.Module,
		encoding.Module,
		codec.Module,
		fragment.Module,
		sender.Module,
		dispatch.Module,
		engine.Module,
	)
}

// TransportModule 按 transport.kind 提供内置传输层
func TransportModule() fx.Option {
	return coretransport.Module
}

// nodeComponents Node 从 Fx 容器取出的组件
type nodeComponents struct {
	fx.In

	Engine    *engine.Engine
	Assoc     *association.Manager
	Sender    *sender.Sender
	Transport transport.Transport
	Reporter  metrics.Reporter
}

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：Transport → Association → Metrics → Encoding → Codec →
// Fragment → Sender → Dispatch → Engine。
func buildFxApp(o *options, router *protocol.Router, reg prometheus.Registerer, node *Node) *fx.App {
	modules := []fx.Option{
		fx.Supply(o.config),
		fx.Supply(router),
		fx.Provide(func() prometheus.Registerer { return reg }),
	}

	if o.transport != nil {
		tr := o.transport
		modules = append(modules, fx.Provide(func() transport.Transport { return tr }))
	} else {
		modules = append(modules, TransportModule())
	}

	if o.errorHandler != nil {
		h := o.errorHandler
		modules = append(modules, fx.Provide(func() dispatch.ErrorHandler { return h }))
	}
	if o.overflowPolicy != nil {
		p := o.overflowPolicy
		modules = append(modules, fx.Provide(func() fragment.OverflowPolicy { return p }))
	}

	modules = append(modules, Module())
	modules = append(modules, o.userFxOptions...)

	modules = append(modules,
		fx.Invoke(func(c nodeComponents) {
			node.engine = c.Engine
			node.assoc = c.Assoc
			node.sender = c.Sender
			node.transport = c.Transport
			if col, ok := c.Reporter.(*metrics.Collector); ok {
				node.bandwidth = col.Bandwidth()
			}
		}),
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: fxZapLogger(o.config)}
		}),
	)

	return fx.New(modules...)
}

// fxZapLogger debug 级别时输出 Fx 事件，否则静默
func fxZapLogger(cfg *config.Config) *zap.Logger {
	if cfg.Log.Level != "debug" {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l.Named("fx")
}
