package codec

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-scamper/config"
	"github.com/dep2p/go-scamper/pkg/protocol"
)

// ConfigFromUnified 从统一配置取出编解码器配置
func ConfigFromUnified(cfg *config.Config) (config.CodecConfig, bool) {
	if cfg == nil {
		return config.DefaultCodecConfig(), false
	}
	return cfg.Codec, cfg.Engine.Production
}

// Params 编解码器依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
	Router     *protocol.Router
}

// Module 是 codec 的 Fx 模块
var Module = fx.Module("codec",
	fx.Provide(NewChainFromParams),
)

// NewChainFromParams 从参数创建编解码器链
func NewChainFromParams(p Params) (*Chain, error) {
	cfg, production := ConfigFromUnified(p.UnifiedCfg)
	return NewChainFromConfig(p.Router.Registry(), cfg, production)
}
