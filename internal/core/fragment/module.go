package fragment

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-scamper/config"
	"github.com/dep2p/go-scamper/internal/core/metrics"
	"github.com/dep2p/go-scamper/pkg/interfaces/transport"
)

// ConfigFromUnified 从统一配置取出分片上限
func ConfigFromUnified(cfg *config.Config) int {
	if cfg == nil {
		return config.DefaultOverflowCap
	}
	return cfg.Engine.OverflowCap
}

// Params 重组器依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
	Policy     OverflowPolicy   `optional:"true"`
	Reporter   metrics.Reporter `optional:"true"`
}

// Module 是 fragment 的 Fx 模块
var Module = fx.Module("fragment",
	fx.Provide(NewFromParams),
)

// NewFromParams 从参数创建重组器，溢出事件计入指标
func NewFromParams(p Params) *Reassembler {
	policy := p.Policy
	if p.Reporter != nil {
		policy = ObservedPolicy(policy, func(transport.Conn, uint16, int) {
			p.Reporter.Overflow()
		})
	}
	return New(ConfigFromUnified(p.UnifiedCfg), policy)
}
