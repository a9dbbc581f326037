package encoding

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-scamper/config"
)

// ConfigFromUnified 从统一配置取出编码名
func ConfigFromUnified(cfg *config.Config) string {
	if cfg == nil {
		return config.EncodingMsgPack
	}
	return cfg.Engine.Encoding
}

// Params 编码依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
}

// Module 是 encoding 的 Fx 模块
var Module = fx.Module("encoding",
	fx.Provide(NewFromParams),
)

// NewFromParams 从参数选择编码
func NewFromParams(p Params) (Encoding, error) {
	return ByName(ConfigFromUnified(p.UnifiedCfg))
}
