package protocol

import (
	"fmt"

	"github.com/dep2p/go-scamper/pkg/lib/buf"
)

// ============================================================================
//                              Registry - 类型注册表
// ============================================================================

// Registry 不可变的类型注册表
//
// 构建后只读，可被任意协程并发使用。
type Registry struct {
	types map[uint16]MessageType
	order []MessageType
}

// NewRegistry 构建注册表
//
// 零类型码或重复类型码返回 ErrConfiguration。
func NewRegistry(types ...MessageType) (*Registry, error) {
	r := &Registry{
		types: make(map[uint16]MessageType, len(types)),
		order: make([]MessageType, 0, len(types)),
	}
	for _, t := range types {
		if t.Code() == 0 || t.IsUnknown() {
			return nil, fmt.Errorf("%w: cannot register %s", ErrConfiguration, t)
		}
		if prev, ok := r.types[t.Code()]; ok {
			return nil, fmt.Errorf("%w: %s conflicts with %s", ErrConfiguration, t, prev)
		}
		r.types[t.Code()] = t
		r.order = append(r.order, t)
	}
	return r, nil
}

// Resolve 从当前读游标读取 2 字节类型头
//
//   - 可读字节不足 2：回退到标记位置，返回 Unknown(0,0)，不消费
//   - 命中：前进 2 字节并丢弃已读前缀
//   - 未命中：返回携带观测字节的未知类型，仍前进 2 字节
func (r *Registry) Resolve(b *buf.Buffer) MessageType {
	if b.Readable() < HeaderLength {
		b.Reset()
		return Unknown(0, 0)
	}
	hdr, _ := b.Next(HeaderLength)
	code := uint16(hdr[0])<<8 | uint16(hdr[1])
	if t, ok := r.types[code]; ok {
		b.DiscardReadBytes()
		return t
	}
	return Unknown(hdr[0], hdr[1])
}

// Lookup 按类型码查找
func (r *Registry) Lookup(code uint16) (MessageType, bool) {
	t, ok := r.types[code]
	return t, ok
}

// Contains 是否已注册
func (r *Registry) Contains(t MessageType) bool {
	_, ok := r.types[t.Code()]
	return ok
}

// Types 按注册顺序返回所有类型
func (r *Registry) Types() []MessageType {
	out := make([]MessageType, len(r.order))
	copy(out, r.order)
	return out
}

// Len 已注册类型数
func (r *Registry) Len() int {
	return len(r.order)
}
