package association

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-scamper/pkg/interfaces/transport"
)

// Params 关联管理器依赖参数
type Params struct {
	fx.In

	Transport transport.Transport
	Lifecycle fx.Lifecycle `optional:"true"`
}

// Module 是 association 的 Fx 模块
var Module = fx.Module("association",
	fx.Provide(NewFromParams),
)

// NewFromParams 从参数创建管理器，停止时关闭全部关联
func NewFromParams(p Params) *Manager {
	m := NewManager(p.Transport)
	if p.Lifecycle != nil {
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return m.Close()
			},
		})
	}
	return m
}
