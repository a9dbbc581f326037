package codec

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-scamper/config"
	"github.com/dep2p/go-scamper/pkg/lib/buf"
	"github.com/dep2p/go-scamper/pkg/protocol"
)

var (
	foo = protocol.MustMessageType("foo", 14, 23)
	bar = protocol.MustMessageType("bar", 1, 2)
)

func testRegistry(t *testing.T) *protocol.Registry {
	t.Helper()
	reg, err := protocol.NewRegistry(foo, bar)
	require.NoError(t, err)
	return reg
}

func allCodecs(t *testing.T) map[string]Codec {
	t.Helper()
	reg := testRegistry(t)
	raw := NewRaw(reg)

	gz, err := NewCompressing(reg, raw, 9)
	require.NoError(t, err)

	enc, err := NewEncrypting(reg, raw, "test passphrase", 3, false)
	require.NoError(t, err)

	return map[string]Codec{"raw": raw, "gzip": gz, "encrypt": enc}
}

// ============================================================================
//                              往返
// ============================================================================

// TestCodec_RoundTrip 测试 raw/gzip/encrypt 往返
func TestCodec_RoundTrip(t *testing.T) {
	payloads := [][]byte{
		{},
		[]byte("hello"),
		bytes.Repeat([]byte("abcdefgh"), 1000),
		{0, 1, 2, 3, 4, 5, 6, 7},
	}

	for name, c := range allCodecs(t) {
		t.Run(name, func(t *testing.T) {
			for _, p := range payloads {
				frame, err := c.Encode(foo, p)
				require.NoError(t, err)

				d, err := c.Decode(buf.Wrap(frame), 5)
				require.NoError(t, err)
				assert.True(t, d.Type.Equal(foo))
				assert.Equal(t, uint16(5), d.Stream)
				assert.Equal(t, len(p), len(d.Payload))
				assert.True(t, bytes.Equal(p, d.Payload))
			}
		})
	}

	t.Log("✅ 编解码往返测试通过")
}

// TestCompressing_FreshBuffer 测试新建缓冲区解码 foo/"hello"
func TestCompressing_FreshBuffer(t *testing.T) {
	reg := testRegistry(t)
	gz, err := NewCompressing(reg, nil, 9)
	require.NoError(t, err)

	frame, err := gz.Encode(foo, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, MagicTransformed, frame[0])
	assert.Equal(t, []byte{14, 23}, frame[1:3])

	b := buf.Wrap(frame)
	assert.Equal(t, 0, b.ReaderIndex())

	d, err := gz.Decode(b, 0)
	require.NoError(t, err)
	assert.Equal(t, "foo", d.Type.Name())
	assert.Equal(t, "hello", string(d.Payload))
}

// TestRaw_WireLayout 测试 raw 帧布局
func TestRaw_WireLayout(t *testing.T) {
	raw := NewRaw(testRegistry(t))
	frame, err := raw.Encode(foo, []byte("hi"))
	require.NoError(t, err)
	assert.Equal(t, []byte{123, 14, 23, 'h', 'i'}, frame)
}

// ============================================================================
//                              探测
// ============================================================================

// TestProbe_Cursor 测试探测失败不移动游标，成功前进一个字节
func TestProbe_Cursor(t *testing.T) {
	for name, c := range allCodecs(t) {
		t.Run(name, func(t *testing.T) {
			magic, err := c.MagicNumber()
			require.NoError(t, err)

			b := buf.Wrap([]byte{magic, 14, 23})
			ok, err := c.Probe(b)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, 1, b.ReaderIndex())

			b = buf.Wrap([]byte{99, 14, 23})
			ok, err = c.Probe(b)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Equal(t, 0, b.ReaderIndex())

			b = buf.Wrap(nil)
			ok, _ = c.Probe(b)
			assert.False(t, ok)
		})
	}
}

// TestRaw_MagicMismatch 测试 raw 魔数不匹配时恢复游标
func TestRaw_MagicMismatch(t *testing.T) {
	raw := NewRaw(testRegistry(t))
	b := buf.Wrap([]byte{124, 14, 23, 'x'})

	_, err := raw.Decode(b, 0)
	assert.ErrorIs(t, err, ErrMagicMismatch)
	assert.Equal(t, 0, b.ReaderIndex())
}

// TestCompressing_DelegatesRaw 测试压缩编解码器遇到 raw 帧时交给 raw
func TestCompressing_DelegatesRaw(t *testing.T) {
	reg := testRegistry(t)
	raw := NewRaw(reg)
	gz, err := NewCompressing(reg, raw, 6)
	require.NoError(t, err)

	frame, _ := raw.Encode(bar, []byte("plain"))
	d, err := gz.Decode(buf.Wrap(frame), 1)
	require.NoError(t, err)
	assert.True(t, d.Type.Equal(bar))
	assert.Equal(t, "plain", string(d.Payload))
}

// TestDecode_UnknownType 测试未知类型携带观测字节
func TestDecode_UnknownType(t *testing.T) {
	reg := testRegistry(t)
	gz, err := NewCompressing(reg, nil, 9)
	require.NoError(t, err)

	d, err := gz.Decode(buf.Wrap([]byte{124, 9, 9, 'z'}), 0)
	require.NoError(t, err)
	assert.True(t, d.Type.IsUnknown())
	assert.Equal(t, uint16(0x0909), d.Type.Code())
	assert.Equal(t, "z", string(d.Payload))

	d, err = NewRaw(reg).Decode(buf.Wrap([]byte{123, 14}), 0)
	require.NoError(t, err)
	assert.True(t, d.Type.IsUnknown())
	assert.Equal(t, uint16(0), d.Type.Code())
}

// ============================================================================
//                              错误路径
// ============================================================================

// TestCompressing_InvalidLevel 测试非法压缩级别
func TestCompressing_InvalidLevel(t *testing.T) {
	reg := testRegistry(t)
	for _, level := range []int{-1, 10, 42} {
		_, err := NewCompressing(reg, nil, level)
		assert.ErrorIs(t, err, protocol.ErrConfiguration)
	}
	for level := 0; level <= 9; level++ {
		_, err := NewCompressing(reg, nil, level)
		assert.NoError(t, err)
	}
}

// TestCompressing_CorruptPayload 测试损坏的压缩数据返回错误而非截断输出
func TestCompressing_CorruptPayload(t *testing.T) {
	reg := testRegistry(t)
	gz, err := NewCompressing(reg, nil, 9)
	require.NoError(t, err)

	frame, err := gz.Encode(foo, bytes.Repeat([]byte("x"), 4096))
	require.NoError(t, err)

	truncated := frame[:len(frame)-10]
	_, err = gz.Decode(buf.Wrap(truncated), 0)
	assert.ErrorIs(t, err, ErrDecompress)

	_, err = gz.Decode(buf.Wrap([]byte{124, 14, 23, 1, 2, 3}), 0)
	assert.ErrorIs(t, err, ErrDecompress)
}

// TestEncrypting 测试加密编解码器
func TestEncrypting(t *testing.T) {
	reg := testRegistry(t)

	t.Run("空输入", func(t *testing.T) {
		enc, err := NewEncrypting(reg, nil, "k", 2, false)
		require.NoError(t, err)
		out, err := enc.Encrypt(nil)
		require.NoError(t, err)
		assert.Empty(t, out)
		out, err = enc.Decrypt([]byte{})
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("密文不同于明文", func(t *testing.T) {
		enc, err := NewEncrypting(reg, nil, "k", 1, false)
		require.NoError(t, err)
		out, err := enc.Encrypt([]byte("hello world"))
		require.NoError(t, err)
		assert.Len(t, out, 16)
		assert.NotContains(t, string(out), "hello")
	})

	t.Run("错误口令", func(t *testing.T) {
		a, _ := NewEncrypting(reg, nil, "alpha", 1, false)
		b, _ := NewEncrypting(reg, nil, "beta", 1, false)
		frame, err := a.Encode(foo, []byte("secret message"))
		require.NoError(t, err)
		d, err := b.Decode(buf.Wrap(frame), 0)
		if err == nil {
			assert.NotEqual(t, "secret message", string(d.Payload))
		} else {
			assert.ErrorIs(t, err, ErrDecrypt)
		}
	})

	t.Run("长度错误", func(t *testing.T) {
		enc, _ := NewEncrypting(reg, nil, "k", 1, false)
		_, err := enc.Decrypt([]byte{1, 2, 3})
		assert.ErrorIs(t, err, ErrDecrypt)
	})

	t.Run("配置错误", func(t *testing.T) {
		_, err := NewEncrypting(reg, nil, "k", 0, false)
		assert.ErrorIs(t, err, protocol.ErrConfiguration)

		_, err = NewEncrypting(reg, nil, "", 1, false)
		assert.ErrorIs(t, err, protocol.ErrConfiguration)

		_, err = NewEncrypting(reg, nil, config.DefaultPassphrase, 1, true)
		assert.ErrorIs(t, err, ErrDefaultPassphrase)

		_, err = NewEncrypting(reg, nil, config.DefaultPassphrase, 1, false)
		assert.NoError(t, err)
	})
}

// TestFoldKey 测试口令折叠
func TestFoldKey(t *testing.T) {
	short := []byte("short")
	assert.Equal(t, short, FoldKey(short))

	long := []byte(strings.Repeat("a", 56) + "b")
	key := FoldKey(long)
	require.Len(t, key, 56)
	assert.Equal(t, byte('a'^'b'), key[0])
	assert.Equal(t, byte('a'), key[1])

	// 超过两倍长度时循环异或
	longer := bytes.Repeat([]byte{1}, 56*2+1)
	key = FoldKey(longer)
	assert.Equal(t, byte(1), key[0])
	assert.Equal(t, byte(0), key[1])
}

// ============================================================================
//                              Auto
// ============================================================================

// TestAuto 测试自动压缩
func TestAuto(t *testing.T) {
	reg := testRegistry(t)
	raw := NewRaw(reg)
	gz, err := NewCompressing(reg, raw, 9)
	require.NoError(t, err)
	auto, err := NewAuto(raw, gz, config.DefaultCompressionThreshold)
	require.NoError(t, err)

	_, err = auto.MagicNumber()
	assert.ErrorIs(t, err, ErrNoMagicNumber)
	_, err = auto.Probe(buf.Wrap([]byte{123}))
	assert.ErrorIs(t, err, ErrNoMagicNumber)

	for _, n := range []int{0, 1, 255, 256} {
		p := bytes.Repeat([]byte("q"), n)
		got, err := auto.Encode(foo, p)
		require.NoError(t, err)
		want, _ := raw.Encode(foo, p)
		assert.Equal(t, want, got, "len %d", n)
	}

	for _, n := range []int{257, 1000} {
		p := bytes.Repeat([]byte("q"), n)
		got, err := auto.Encode(foo, p)
		require.NoError(t, err)
		want, _ := gz.Encode(foo, p)
		assert.Equal(t, want, got, "len %d", n)

		d, err := auto.Decode(buf.Wrap(got), 0)
		require.NoError(t, err)
		assert.Equal(t, p, d.Payload)
	}

	_, err = auto.Decode(buf.Wrap([]byte{7, 14, 23}), 0)
	assert.ErrorIs(t, err, ErrUnrecognizedFrame)
}

// ============================================================================
//                              Chain
// ============================================================================

// TestChain_DuplicateMagic 测试重复魔数
func TestChain_DuplicateMagic(t *testing.T) {
	reg := testRegistry(t)
	raw := NewRaw(reg)
	gz, _ := NewCompressing(reg, raw, 9)
	enc, _ := NewEncrypting(reg, raw, "k", 1, false)

	_, err := NewChain(raw, raw, gz, enc)
	assert.ErrorIs(t, err, protocol.ErrConfiguration)

	auto, _ := NewAuto(raw, gz, 256)
	_, err = NewChain(raw, raw, auto)
	assert.ErrorIs(t, err, protocol.ErrConfiguration)
}

// TestChainFromConfig 测试按配置装配
func TestChainFromConfig(t *testing.T) {
	reg := testRegistry(t)
	p := bytes.Repeat([]byte("payload "), 100)

	for _, mode := range []string{config.CodecModeRaw, config.CodecModeGzip, config.CodecModeEncrypt, config.CodecModeAuto} {
		t.Run(mode, func(t *testing.T) {
			cfg := config.DefaultCodecConfig()
			cfg.Mode = mode
			chain, err := NewChainFromConfig(reg, cfg, false)
			require.NoError(t, err)
			assert.Equal(t, mode, chain.Mode())

			frame, err := chain.Encode(bar, p)
			require.NoError(t, err)
			d, err := chain.Decode(buf.Wrap(frame), 3)
			require.NoError(t, err)
			assert.True(t, d.Type.Equal(bar))
			assert.Equal(t, p, d.Payload)

			// 任何模式都能解码 raw 帧
			rawFrame, _ := NewRaw(reg).Encode(foo, []byte("r"))
			d, err = chain.Decode(buf.Wrap(rawFrame), 0)
			require.NoError(t, err)
			assert.Equal(t, "r", string(d.Payload))
		})
	}

	cfg := config.DefaultCodecConfig()
	cfg.Mode = "lz4"
	_, err := NewChainFromConfig(reg, cfg, false)
	assert.ErrorIs(t, err, protocol.ErrConfiguration)

	cfg = config.DefaultCodecConfig()
	cfg.Mode = config.CodecModeEncrypt
	_, err = NewChainFromConfig(reg, cfg, true)
	assert.ErrorIs(t, err, ErrDefaultPassphrase)
}

// TestChain_Unrecognized 测试未知魔数
func TestChain_Unrecognized(t *testing.T) {
	reg := testRegistry(t)
	chain, err := NewChainFromConfig(reg, config.DefaultCodecConfig(), false)
	require.NoError(t, err)

	b := buf.Wrap([]byte{124, 14, 23})
	_, err = chain.Decode(b, 0)
	assert.ErrorIs(t, err, ErrUnrecognizedFrame)
	assert.Equal(t, 0, b.ReaderIndex())

	_, err = chain.Decode(buf.Wrap(nil), 0)
	assert.ErrorIs(t, err, ErrEmptyFrame)
}
