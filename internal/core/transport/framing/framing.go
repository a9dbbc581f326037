// Package framing 在字节流上承载多子流分片
//
// 帧格式：
//
//	flags    1 字节   bit0 = 后续还有分片，bit1 = 握手
//	stream   2 字节   大端子流标识
//	length   uvarint  数据长度
//	data     length 字节
//
// 握手帧的数据为 [maxIn:2][maxOut:2]，连接建立时各发送一次。
package framing

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/multiformats/go-varint"
)

const (
	// FlagMore 后续还有分片
	FlagMore byte = 1 << 0
	// FlagHello 握手帧
	FlagHello byte = 1 << 1

	headerFixed = 3
	helloSize   = 4
)

var (
	// ErrFrameTooLarge 帧长度超过上限
	ErrFrameTooLarge = errors.New("framing: frame too large")

	// ErrBadHello 握手帧格式错误
	ErrBadHello = errors.New("framing: malformed hello")
)

// Header 帧头
type Header struct {
	Flags  byte
	Stream uint16
	Length int
}

// More 是否还有后续分片
func (h Header) More() bool { return h.Flags&FlagMore != 0 }

// Hello 是否为握手帧
func (h Header) Hello() bool { return h.Flags&FlagHello != 0 }

// Append 把一帧追加到 dst
func Append(dst []byte, flags byte, stream uint16, data []byte) []byte {
	dst = append(dst, flags)
	dst = binary.BigEndian.AppendUint16(dst, stream)
	dst = append(dst, varint.ToUvarint(uint64(len(data)))...)
	return append(dst, data...)
}

// AppendMessage 按 max 拆分消息并追加全部帧，空消息产生一个空帧
func AppendMessage(dst []byte, stream uint16, data []byte, max int) []byte {
	if max <= 0 || len(data) <= max {
		return Append(dst, 0, stream, data)
	}
	for len(data) > max {
		dst = Append(dst, FlagMore, stream, data[:max])
		data = data[max:]
	}
	return Append(dst, 0, stream, data)
}

// Size 帧的编码长度
func Size(n int) int {
	return headerFixed + varint.UvarintSize(uint64(n)) + n
}

// Read 读取一帧，数据长度超过 limit（>0）时返回 ErrFrameTooLarge
func Read(r *bufio.Reader, limit int) (Header, []byte, error) {
	var fixed [headerFixed]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return Header{}, nil, err
	}
	n, err := varint.ReadUvarint(r)
	if err != nil {
		return Header{}, nil, fmt.Errorf("framing: read length: %w", err)
	}
	if limit > 0 && n > uint64(limit) {
		return Header{}, nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, n, limit)
	}

	h := Header{
		Flags:  fixed[0],
		Stream: binary.BigEndian.Uint16(fixed[1:]),
		Length: int(n),
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return Header{}, nil, err
	}
	return h, data, nil
}

// ============================================================================
//                              握手
// ============================================================================

// AppendHello 追加握手帧
func AppendHello(dst []byte, maxIn, maxOut uint16) []byte {
	var p [helloSize]byte
	binary.BigEndian.PutUint16(p[0:], maxIn)
	binary.BigEndian.PutUint16(p[2:], maxOut)
	return Append(dst, FlagHello, 0, p[:])
}

// ReadHello 读取握手帧，返回对端的最大入/出子流数
func ReadHello(r *bufio.Reader) (maxIn, maxOut uint16, err error) {
	h, data, err := Read(r, helloSize)
	if err != nil {
		return 0, 0, err
	}
	if !h.Hello() || len(data) != helloSize {
		return 0, 0, ErrBadHello
	}
	return binary.BigEndian.Uint16(data[0:]), binary.BigEndian.Uint16(data[2:]), nil
}

// Negotiate 按双方声明计算本端的入/出子流数
func Negotiate(localIn, localOut, remoteIn, remoteOut uint16) (in, out uint16) {
	return min(localIn, remoteOut), min(localOut, remoteIn)
}
