package protocol

import (
	"fmt"
	"sync"
)

// ============================================================================
//                              Bindings - 处理器绑定
// ============================================================================

// Bindings 启动期的处理器绑定收集器
type Bindings struct {
	mu       sync.Mutex
	frozen   bool
	types    []MessageType
	handlers map[uint16]Handler
}

// NewBindings 创建绑定收集器
func NewBindings() *Bindings {
	return &Bindings{handlers: make(map[uint16]Handler)}
}

// Bind 绑定类型和处理器
func (b *Bindings) Bind(t MessageType, h Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case b.frozen:
		return fmt.Errorf("%w: bind %s after freeze", ErrConfiguration, t)
	case h == nil:
		return fmt.Errorf("%w: nil handler for %s", ErrConfiguration, t)
	case t.Code() == 0 || t.IsUnknown():
		return fmt.Errorf("%w: cannot bind %s", ErrConfiguration, t)
	}
	if _, ok := b.handlers[t.Code()]; ok {
		return fmt.Errorf("%w: duplicate binding for %s", ErrConfiguration, t)
	}
	b.handlers[t.Code()] = h
	b.types = append(b.types, t)
	return nil
}

// Freeze 冻结绑定并生成 Router，之后 Bind 均失败
func (b *Bindings) Freeze() (*Router, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frozen {
		return nil, fmt.Errorf("%w: bindings already frozen", ErrConfiguration)
	}
	reg, err := NewRegistry(b.types...)
	if err != nil {
		return nil, err
	}
	b.frozen = true

	handlers := make(map[uint16]Handler, len(b.handlers))
	for code, h := range b.handlers {
		handlers[code] = h
	}
	return &Router{registry: reg, handlers: handlers}, nil
}

// ============================================================================
//                              Router - 冻结后的路由表
// ============================================================================

// Router 不可变的类型到处理器映射
type Router struct {
	registry *Registry
	handlers map[uint16]Handler
}

// Registry 返回类型注册表
func (r *Router) Registry() *Registry {
	return r.registry
}

// Handler 查找类型对应的处理器
func (r *Router) Handler(t MessageType) (Handler, bool) {
	if t.IsUnknown() {
		return nil, false
	}
	h, ok := r.handlers[t.Code()]
	return h, ok
}
