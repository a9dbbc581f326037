package codec

import (
	"fmt"

	"github.com/dep2p/go-scamper/pkg/lib/buf"
	"github.com/dep2p/go-scamper/pkg/protocol"
)

// Raw 原样发送负载的编解码器
type Raw struct {
	reg *protocol.Registry
}

var _ Codec = (*Raw)(nil)

// NewRaw 创建 raw 编解码器
func NewRaw(reg *protocol.Registry) *Raw {
	return &Raw{reg: reg}
}

// MagicNumber 返回 123
func (c *Raw) MagicNumber() (byte, error) {
	return MagicRaw, nil
}

// Probe 探测魔数 123
func (c *Raw) Probe(b *buf.Buffer) (bool, error) {
	return probeMagic(b, MagicRaw), nil
}

// Decode 解码 raw 帧
//
// 魔数不匹配时恢复读游标并返回 ErrMagicMismatch。
// 未知类型的剩余字节作为负载返回，便于诊断。
func (c *Raw) Decode(b *buf.Buffer, stream uint16) (Decoded, error) {
	start := b.ReaderIndex()
	b.Mark()

	magic, err := b.ReadByte()
	if err != nil {
		return Decoded{}, ErrEmptyFrame
	}
	if magic != MagicRaw {
		_ = b.SetReaderIndex(start)
		return Decoded{}, fmt.Errorf("%w: got %d, want %d", ErrMagicMismatch, magic, MagicRaw)
	}

	t := resolve(c.reg, b)
	return Decoded{Type: t, Payload: rest(b), Stream: stream}, nil
}

// Encode 编码为 [123][sig1][sig2][payload]
func (c *Raw) Encode(t protocol.MessageType, payload []byte) ([]byte, error) {
	out := make([]byte, 0, 1+protocol.HeaderLength+len(payload))
	out = appendHeader(out, MagicRaw, t)
	return append(out, payload...), nil
}
