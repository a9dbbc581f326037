package scamper

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/go-scamper/pkg/protocol"
)

// Builder 组装节点：收集处理器绑定和选项，Build 时一次性校验
//
// 绑定和选项的错误延迟到 Build 返回，便于链式调用：
//
//	node, err := scamper.NewBuilder(opts...).
//	    Bind(queryType, queryHandler).
//	    Bind(answerType, answerHandler).
//	    Build()
type Builder struct {
	mu       sync.Mutex
	bindings *protocol.Bindings
	opts     []Option
	err      error
	built    bool
}

// NewBuilder 创建 Builder
func NewBuilder(opts ...Option) *Builder {
	return &Builder{
		bindings: protocol.NewBindings(),
		opts:     opts,
	}
}

// With 追加选项
func (b *Builder) With(opts ...Option) *Builder {
	b.mu.Lock()
	b.opts = append(b.opts, opts...)
	b.mu.Unlock()
	return b
}

// Bind 绑定消息类型和处理器
//
// Build 之后绑定会失败，错误通过 Err 取得。
func (b *Builder) Bind(t protocol.MessageType, h protocol.Handler) *Builder {
	if err := b.bindings.Bind(t, h); err != nil {
		b.setErr(err)
		if b.isBuilt() {
			logger.Warn("bind after build rejected", "type", t.String(), "error", err)
		}
	}
	return b
}

// Handle 以类型化函数绑定处理器
//
// M 为 []byte 时负载原样传入，为 protocol.Void 时忽略负载。
func Handle[M any](b *Builder, t protocol.MessageType, fn func(ctx context.Context, req *protocol.Request, msg protocol.Message[M]) (protocol.Envelope, error)) *Builder {
	return b.Bind(t, protocol.HandlerFunc(fn))
}

// Err 返回绑定或选项累积的第一个错误
func (b *Builder) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

func (b *Builder) isBuilt() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.built
}

func (b *Builder) setErr(err error) {
	b.mu.Lock()
	if b.err == nil {
		b.err = err
	}
	b.mu.Unlock()
}

// Build 校验配置并装配节点
//
// 配置错误（未知编码、口令、压缩级别、重复类型等）在此返回，
// 不会推迟到启动或第一条消息。
func (b *Builder) Build() (*Node, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.err != nil {
		return nil, b.err
	}
	if b.built {
		return nil, ErrAlreadyBuilt
	}
	b.built = true

	o := defaultOptions()
	for _, opt := range b.opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if err := o.config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	router, err := b.bindings.Freeze()
	if err != nil {
		return nil, err
	}

	var gatherer prometheus.Gatherer
	reg := o.registerer
	if reg == nil {
		own := prometheus.NewRegistry()
		reg, gatherer = own, own
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	n := &Node{config: o.config, router: router, gatherer: gatherer}
	n.app = buildFxApp(o, router, reg, n)
	if err := n.app.Err(); err != nil {
		return nil, err
	}

	logger.Info("node built",
		"transport", o.config.Transport.Kind,
		"codec", o.config.Codec.Mode,
		"encoding", o.config.Engine.Encoding,
		"types", router.Registry().Len())
	return n, nil
}
