package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/dep2p/go-scamper/pkg/lib/buf"
	"github.com/dep2p/go-scamper/pkg/protocol"
)

// Compressing gzip 压缩编解码器
type Compressing struct {
	raw   *Raw
	reg   *protocol.Registry
	level int
}

var _ Codec = (*Compressing)(nil)

// NewCompressing 创建压缩编解码器
//
// level 必须在 0-9 之间，否则返回 protocol.ErrConfiguration。
func NewCompressing(reg *protocol.Registry, raw *Raw, level int) (*Compressing, error) {
	if level < gzip.NoCompression || level > gzip.BestCompression {
		return nil, fmt.Errorf("%w: gzip level must be between 0 and 9 but was %d", protocol.ErrConfiguration, level)
	}
	if raw == nil {
		raw = NewRaw(reg)
	}
	return &Compressing{raw: raw, reg: reg, level: level}, nil
}

// Level 压缩级别
func (c *Compressing) Level() int {
	return c.level
}

// MagicNumber 返回 124
func (c *Compressing) MagicNumber() (byte, error) {
	return MagicTransformed, nil
}

// Probe 探测魔数 124
func (c *Compressing) Probe(b *buf.Buffer) (bool, error) {
	return probeMagic(b, MagicTransformed), nil
}

// Decode 解压一帧
//
// 魔数不匹配时恢复读游标并交给 raw 编解码器。
// 未知类型的负载不解压，原样返回。
func (c *Compressing) Decode(b *buf.Buffer, stream uint16) (Decoded, error) {
	start := b.ReaderIndex()
	b.Mark()

	magic, err := b.ReadByte()
	if err != nil {
		return Decoded{}, ErrEmptyFrame
	}
	if magic != MagicTransformed {
		_ = b.SetReaderIndex(start)
		return c.raw.Decode(b, stream)
	}

	t := resolve(c.reg, b)
	payload := rest(b)
	if t.IsUnknown() {
		return Decoded{Type: t, Payload: payload, Stream: stream}, nil
	}

	out, err := gunzip(payload)
	if err != nil {
		return Decoded{}, fmt.Errorf("%w: %s on stream %d (%d bytes): %v", ErrDecompress, t, stream, len(payload), err)
	}
	return Decoded{Type: t, Payload: out, Stream: stream}, nil
}

// Encode 编码为 [124][sig1][sig2][gzip(payload)]
func (c *Compressing) Encode(t protocol.MessageType, payload []byte) ([]byte, error) {
	var bb bytes.Buffer
	bb.Grow(1 + protocol.HeaderLength + len(payload)/2)
	bb.Write(appendHeader(nil, MagicTransformed, t))

	zw, err := gzip.NewWriterLevel(&bb, c.level)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompress, err)
	}
	if _, err := zw.Write(payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompress, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompress, err)
	}
	return bb.Bytes(), nil
}

func gunzip(p []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(p))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	// 截断的流在 ReadAll 中返回 io.ErrUnexpectedEOF，不会静默输出部分数据
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, err
	}
	return out, nil
}
