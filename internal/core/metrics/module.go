package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-scamper/config"
)

// ConfigFromUnified 从统一配置取出指标配置
func ConfigFromUnified(cfg *config.Config) config.MetricsConfig {
	if cfg == nil {
		return config.DefaultMetricsConfig()
	}
	return cfg.Metrics
}

// Params 指标依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config         `optional:"true"`
	Registerer prometheus.Registerer `optional:"true"`
}

// Module 是 metrics 的 Fx 模块
var Module = fx.Module("metrics",
	fx.Provide(NewReporterFromParams),
)

// NewReporterFromParams 指标启用时返回 Collector，否则返回 Nop
//
// 未注入 Registerer 时注册到 prometheus.DefaultRegisterer。
func NewReporterFromParams(p Params) (Reporter, error) {
	cfg := ConfigFromUnified(p.UnifiedCfg)
	if !cfg.Enabled {
		return Nop{}, nil
	}
	reg := p.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return NewCollector(cfg.Namespace, reg)
}
