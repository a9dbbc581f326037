package codec

import (
	"github.com/dep2p/go-scamper/pkg/lib/buf"
	"github.com/dep2p/go-scamper/pkg/lib/log"
	"github.com/dep2p/go-scamper/pkg/protocol"
)

var logger = log.Logger("core/codec")

// 魔数
const (
	// MagicRaw raw 帧
	MagicRaw byte = 123
	// MagicTransformed 压缩或加密帧
	MagicTransformed byte = 124
)

// Decoded 解码结果
type Decoded struct {
	// Type 消息类型，可能为未知类型
	Type protocol.MessageType

	// Payload 解码后的负载
	Payload []byte

	// Stream 帧到达的子流
	Stream uint16
}

// Codec 线帧编解码器
type Codec interface {
	// MagicNumber 返回魔数，组合编解码器返回 ErrNoMagicNumber
	MagicNumber() (byte, error)

	// Probe 魔数匹配时消费一个字节并返回 true，否则不移动读游标
	Probe(b *buf.Buffer) (bool, error)

	// Decode 从当前读游标解码一帧
	Decode(b *buf.Buffer, stream uint16) (Decoded, error)

	// Encode 编码一帧
	Encode(t protocol.MessageType, payload []byte) ([]byte, error)
}

// probeMagic 魔数匹配时消费一个字节
func probeMagic(b *buf.Buffer, magic byte) bool {
	c, err := b.PeekByte()
	if err != nil || c != magic {
		return false
	}
	_, _ = b.ReadByte()
	return true
}

// appendHeader 写入 [magic][sig1][sig2]
func appendHeader(dst []byte, magic byte, t protocol.MessageType) []byte {
	dst = append(dst, magic)
	return t.AppendHeader(dst)
}

// resolve 读取类型头
//
// 魔数之后不足 2 字节时 Registry 会回退到标记位置，
// 这里直接消费整帧并返回 Unknown(0,0)。
func resolve(reg *protocol.Registry, b *buf.Buffer) protocol.MessageType {
	if b.Readable() < protocol.HeaderLength {
		t := reg.Resolve(b)
		_ = rest(b)
		return t
	}
	return reg.Resolve(b)
}

// rest 消费并返回剩余字节
func rest(b *buf.Buffer) []byte {
	p := b.Bytes()
	_, _ = b.Next(len(p))
	return p
}
