package sender

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-scamper/internal/core/association"
	"github.com/dep2p/go-scamper/internal/core/codec"
	"github.com/dep2p/go-scamper/internal/core/encoding"
	"github.com/dep2p/go-scamper/internal/core/metrics"
)

// Params Sender 依赖参数
type Params struct {
	fx.In

	Chain    *codec.Chain
	Encoding encoding.Encoding
	Assoc    *association.Manager
	Reporter metrics.Reporter `optional:"true"`
}

// Module 是 sender 的 Fx 模块
var Module = fx.Module("sender",
	fx.Provide(NewFromParams),
)

// NewFromParams 从参数创建 Sender
func NewFromParams(p Params) *Sender {
	return New(p.Chain, p.Encoding, p.Assoc, WithReporter(p.Reporter))
}
