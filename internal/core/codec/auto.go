package codec

import (
	"fmt"

	"github.com/dep2p/go-scamper/pkg/lib/buf"
	"github.com/dep2p/go-scamper/pkg/protocol"
)

// Auto 按负载长度选择 raw 或压缩
//
// Auto 自身不带魔数：MagicNumber 和 Probe 都返回 ErrNoMagicNumber。
type Auto struct {
	raw       *Raw
	compress  *Compressing
	threshold int
}

var _ Codec = (*Auto)(nil)

// NewAuto 创建自动压缩编解码器
func NewAuto(raw *Raw, compress *Compressing, threshold int) (*Auto, error) {
	if raw == nil || compress == nil {
		return nil, fmt.Errorf("%w: auto codec needs raw and compressing delegates", protocol.ErrConfiguration)
	}
	if threshold < 0 {
		return nil, fmt.Errorf("%w: compression threshold must not be negative", protocol.ErrConfiguration)
	}
	return &Auto{raw: raw, compress: compress, threshold: threshold}, nil
}

// Threshold 压缩阈值
func (c *Auto) Threshold() int {
	return c.threshold
}

// MagicNumber 组合编解码器没有魔数
func (c *Auto) MagicNumber() (byte, error) {
	return 0, ErrNoMagicNumber
}

// Probe 组合编解码器不能被探测
func (c *Auto) Probe(*buf.Buffer) (bool, error) {
	return false, ErrNoMagicNumber
}

// Decode 依次探测委托编解码器，每次探测后恢复读游标
func (c *Auto) Decode(b *buf.Buffer, stream uint16) (Decoded, error) {
	start := b.ReaderIndex()
	for _, d := range []Codec{c.raw, c.compress} {
		ok, err := d.Probe(b)
		_ = b.SetReaderIndex(start)
		if err != nil || !ok {
			continue
		}
		return d.Decode(b, stream)
	}

	first, err := b.PeekByte()
	if err != nil {
		return Decoded{}, ErrEmptyFrame
	}
	return Decoded{}, fmt.Errorf("%w: leading byte %d", ErrUnrecognizedFrame, first)
}

// Encode 长度超过阈值时压缩，否则 raw
func (c *Auto) Encode(t protocol.MessageType, payload []byte) ([]byte, error) {
	if len(payload) > c.threshold {
		return c.compress.Encode(t, payload)
	}
	return c.raw.Encode(t, payload)
}
