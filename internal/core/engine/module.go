package engine

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-scamper/internal/core/association"
	"github.com/dep2p/go-scamper/internal/core/codec"
	"github.com/dep2p/go-scamper/internal/core/dispatch"
	"github.com/dep2p/go-scamper/internal/core/fragment"
	"github.com/dep2p/go-scamper/internal/core/metrics"
	"github.com/dep2p/go-scamper/pkg/interfaces/transport"
)

// Params 引擎依赖参数
type Params struct {
	fx.In

	Transport   transport.Transport
	Reassembler *fragment.Reassembler
	Chain       *codec.Chain
	Dispatcher  *dispatch.Dispatcher
	Assoc       *association.Manager
	Reporter    metrics.Reporter `optional:"true"`
	Lifecycle   fx.Lifecycle     `optional:"true"`
}

// Module 是 engine 的 Fx 模块
var Module = fx.Module("engine",
	fx.Provide(NewFromParams),
)

// NewFromParams 从参数创建引擎，停止时关闭
func NewFromParams(p Params) *Engine {
	e := New(p.Transport, p.Reassembler, p.Chain, p.Dispatcher, p.Assoc, WithReporter(p.Reporter))
	if p.Lifecycle != nil {
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return e.Close()
			},
		})
	}
	return e
}
