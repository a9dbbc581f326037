package scamper

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-scamper/config"
	"github.com/dep2p/go-scamper/pkg/interfaces/transport"
	"github.com/dep2p/go-scamper/pkg/types"
)

// Option 节点配置选项
type Option func(*options) error

// options 内部选项结构
type options struct {
	config *config.Config

	errorHandler   ErrorHandler
	overflowPolicy OverflowPolicy
	transport      transport.Transport
	registerer     prometheus.Registerer

	userFxOptions []fx.Option
}

func defaultOptions() *options {
	return &options{config: config.NewConfig()}
}

// WithConfig 使用完整配置，之后的选项在其基础上修改
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return fmt.Errorf("%w: nil config", config.ErrInvalidConfig)
		}
		o.config = cfg.Clone()
		return nil
	}
}

// WithConfigFile 从 JSON 文件加载配置
func WithConfigFile(path string) Option {
	return func(o *options) error {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		o.config = cfg
		return nil
	}
}

// WithListen 设置监听地址，可携带次地址
func WithListen(addr types.Address) Option {
	return func(o *options) error {
		if err := addr.Validate(); err != nil {
			return err
		}
		o.config.Engine.Listen = addr
		return nil
	}
}

// WithTransportKind 选择内置传输：sctp / tcp / quic
func WithTransportKind(kind string) Option {
	return func(o *options) error {
		o.config.Transport.Kind = kind
		return nil
	}
}

// WithTransport 使用自定义传输层，优先于 transport.kind
func WithTransport(tr transport.Transport) Option {
	return func(o *options) error {
		o.transport = tr
		return nil
	}
}

// WithEncoding 设置处理器负载的数据编码：msgpack / json / gob / protobuf
func WithEncoding(name string) Option {
	return func(o *options) error {
		o.config.Engine.Encoding = name
		return nil
	}
}

// WithCodecMode 设置出站编解码模式：raw / gzip / encrypt / auto
func WithCodecMode(mode string) Option {
	return func(o *options) error {
		o.config.Codec.Mode = mode
		return nil
	}
}

// WithPassphrase 设置加密口令
func WithPassphrase(passphrase string) Option {
	return func(o *options) error {
		o.config.Codec.Passphrase = passphrase
		return nil
	}
}

// WithOverflowCap 设置单个子流的分片累计上限
func WithOverflowCap(n int) Option {
	return func(o *options) error {
		o.config.Engine.OverflowCap = n
		return nil
	}
}

// WithProduction 启用生产模式
func WithProduction() Option {
	return func(o *options) error {
		o.config.Engine.Production = true
		return nil
	}
}

// WithErrorHandler 设置连接级错误处理，默认为 CloseOnError
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *options) error {
		o.errorHandler = h
		return nil
	}
}

// WithOverflowPolicy 设置分片溢出策略，默认为 DefaultOverflowPolicy
func WithOverflowPolicy(p OverflowPolicy) Option {
	return func(o *options) error {
		o.overflowPolicy = p
		return nil
	}
}

// WithRegisterer 指标注册到 reg，默认使用节点私有的 Registry
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) error {
		o.registerer = reg
		return nil
	}
}

// WithoutMetrics 禁用指标
func WithoutMetrics() Option {
	return func(o *options) error {
		o.config.Metrics.Enabled = false
		return nil
	}
}

// WithFxOptions 追加 Fx 选项
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) error {
		o.userFxOptions = append(o.userFxOptions, opts...)
		return nil
	}
}
