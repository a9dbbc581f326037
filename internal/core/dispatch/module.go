package dispatch

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-scamper/internal/core/encoding"
	"github.com/dep2p/go-scamper/internal/core/metrics"
	"github.com/dep2p/go-scamper/internal/core/sender"
	"github.com/dep2p/go-scamper/pkg/protocol"
)

// Params 分发器依赖参数
type Params struct {
	fx.In

	Router       *protocol.Router
	Encoding     encoding.Encoding
	Sender       *sender.Sender
	ErrorHandler ErrorHandler     `optional:"true"`
	Reporter     metrics.Reporter `optional:"true"`
}

// Module 是 dispatch 的 Fx 模块
var Module = fx.Module("dispatch",
	fx.Provide(NewFromParams),
)

// NewFromParams 从参数创建分发器，应答经 Sender 写回
func NewFromParams(p Params) *Dispatcher {
	return New(p.Router, p.Encoding, p.Sender,
		WithErrorHandler(p.ErrorHandler),
		WithReporter(p.Reporter))
}
