package transport

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/dep2p/go-scamper/config"
	"github.com/dep2p/go-scamper/internal/core/transport/quic"
	"github.com/dep2p/go-scamper/internal/core/transport/sctp"
	"github.com/dep2p/go-scamper/internal/core/transport/tcp"
	pkgtransport "github.com/dep2p/go-scamper/pkg/interfaces/transport"
	"github.com/dep2p/go-scamper/pkg/lib/log"
)

var logger = log.Logger("core/transport")

// ConfigFromUnified 从统一配置取出传输层配置
func ConfigFromUnified(cfg *config.Config) config.TransportConfig {
	if cfg == nil {
		return config.DefaultTransportConfig()
	}
	return cfg.Transport
}

// New 按 cfg.Kind 创建传输层
func New(cfg config.TransportConfig) (pkgtransport.Transport, error) {
	logger.Debug("create transport", "kind", cfg.Kind, "maxIn", cfg.MaxInStreams, "maxOut", cfg.MaxOutStreams)

	switch cfg.Kind {
	case config.TransportSCTP, "":
		return sctp.NewTransport(cfg), nil
	case config.TransportTCP:
		return tcp.NewTransport(cfg), nil
	case config.TransportQUIC:
		return quic.NewTransport(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, cfg.Kind)
	}
}

// Params 传输层依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
	Lifecycle  fx.Lifecycle   `optional:"true"`
}

// Module 是 transport 的 Fx 模块
var Module = fx.Module("transport",
	fx.Provide(NewFromParams),
)

// NewFromParams 从参数创建传输层，停止时关闭
func NewFromParams(p Params) (pkgtransport.Transport, error) {
	tr, err := New(ConfigFromUnified(p.UnifiedCfg))
	if err != nil {
		return nil, err
	}
	if p.Lifecycle != nil {
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return tr.Close()
			},
		})
	}
	return tr, nil
}
