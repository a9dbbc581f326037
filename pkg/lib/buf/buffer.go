// Package buf 提供带读游标的字节缓冲区
//
// 线帧解码需要在探测魔数失败时原样恢复读游标，
// 以便下一个编解码器可以探测同一段字节。Buffer 提供：
//   - ReaderIndex / SetReaderIndex：读取和恢复读游标
//   - Mark / Reset：标记并回退到标记位置
//   - DiscardReadBytes：丢弃已读前缀
//
// Buffer 不是并发安全的，每个入站帧由单个读协程持有。
package buf

import (
	"errors"
	"fmt"
	"io"
)

// ErrIndexOutOfRange 游标越界
var ErrIndexOutOfRange = errors.New("reader index out of range")

// Buffer 带读游标的字节缓冲区
type Buffer struct {
	data []byte
	r    int
	mark int
}

// Wrap 包装已有字节切片（零拷贝）
func Wrap(b []byte) *Buffer {
	return &Buffer{data: b}
}

// ReaderIndex 返回当前读游标
func (b *Buffer) ReaderIndex() int {
	return b.r
}

// SetReaderIndex 设置读游标
func (b *Buffer) SetReaderIndex(i int) error {
	if i < 0 || i > len(b.data) {
		return fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, i, len(b.data))
	}
	b.r = i
	return nil
}

// Mark 标记当前读游标
func (b *Buffer) Mark() {
	b.mark = b.r
}

// Reset 回退到最近一次标记的位置（未标记时为 0）
func (b *Buffer) Reset() {
	b.r = b.mark
}

// Readable 返回可读字节数
func (b *Buffer) Readable() int {
	return len(b.data) - b.r
}

// Len 返回底层数据总长度
func (b *Buffer) Len() int {
	return len(b.data)
}

// ReadByte 读取一个字节
func (b *Buffer) ReadByte() (byte, error) {
	if b.r >= len(b.data) {
		return 0, io.EOF
	}
	c := b.data[b.r]
	b.r++
	return c, nil
}

// PeekByte 查看下一个字节但不移动游标
func (b *Buffer) PeekByte() (byte, error) {
	if b.r >= len(b.data) {
		return 0, io.EOF
	}
	return b.data[b.r], nil
}

// Next 读取 n 个字节，返回的切片与缓冲区共享内存
func (b *Buffer) Next(n int) ([]byte, error) {
	if n < 0 || b.r+n > len(b.data) {
		return nil, io.ErrUnexpectedEOF
	}
	p := b.data[b.r : b.r+n]
	b.r += n
	return p, nil
}

// Bytes 返回未读部分（共享内存）
func (b *Buffer) Bytes() []byte {
	return b.data[b.r:]
}

// Read 实现 io.Reader
func (b *Buffer) Read(p []byte) (int, error) {
	if b.r >= len(b.data) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, b.data[b.r:])
	b.r += n
	return n, nil
}

// DiscardReadBytes 丢弃已读前缀，读游标归零
func (b *Buffer) DiscardReadBytes() {
	if b.r == 0 {
		return
	}
	b.data = b.data[b.r:]
	b.mark -= b.r
	if b.mark < 0 {
		b.mark = 0
	}
	b.r = 0
}
