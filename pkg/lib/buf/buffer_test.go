package buf

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_ReadAndRestore(t *testing.T) {
	b := Wrap([]byte{1, 2, 3, 4})

	start := b.ReaderIndex()
	c, err := b.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(1), c)
	assert.Equal(t, 3, b.Readable())

	// 恢复游标
	require.NoError(t, b.SetReaderIndex(start))
	assert.Equal(t, 4, b.Readable())

	assert.Error(t, b.SetReaderIndex(5))
}

func TestBuffer_MarkReset(t *testing.T) {
	b := Wrap([]byte{1, 2, 3, 4})
	_, _ = b.ReadByte()
	b.Mark()
	_, _ = b.Next(2)
	b.Reset()
	assert.Equal(t, 1, b.ReaderIndex())
}

func TestBuffer_DiscardReadBytes(t *testing.T) {
	b := Wrap([]byte{1, 2, 3, 4})
	_, _ = b.Next(2)
	b.DiscardReadBytes()

	assert.Equal(t, 0, b.ReaderIndex())
	assert.Equal(t, []byte{3, 4}, b.Bytes())
	assert.Equal(t, 2, b.Len())
}

func TestBuffer_Read(t *testing.T) {
	b := Wrap([]byte("hello"))
	p := make([]byte, 3)

	n, err := b.Read(p)
	require.NoError(t, err)
	assert.Equal(t, "hel", string(p[:n]))

	rest, err := io.ReadAll(b)
	require.NoError(t, err)
	assert.Equal(t, "lo", string(rest))

	_, err = b.ReadByte()
	assert.ErrorIs(t, err, io.EOF)
	_, err = b.Next(1)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
