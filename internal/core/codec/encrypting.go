package codec

import (
	"bytes"
	"fmt"

	"golang.org/x/crypto/blowfish"

	"github.com/dep2p/go-scamper/config"
	"github.com/dep2p/go-scamper/pkg/lib/buf"
	"github.com/dep2p/go-scamper/pkg/protocol"
)

// maxKeyLen Blowfish 最大密钥长度（448 位）
const maxKeyLen = 56

// Encrypting Blowfish 加密编解码器
//
// 每次调用都新建 cipher，实例本身无可变状态。
// 每一轮都是 ECB + PKCS5 填充，空输入对应空输出。
type Encrypting struct {
	raw    *Raw
	reg    *protocol.Registry
	key    []byte
	rounds int
}

var _ Codec = (*Encrypting)(nil)

// NewEncrypting 创建加密编解码器
//
// rounds 至少为 1；production 为 true 时拒绝默认口令。
func NewEncrypting(reg *protocol.Registry, raw *Raw, passphrase string, rounds int, production bool) (*Encrypting, error) {
	if rounds < 1 {
		return nil, fmt.Errorf("%w: encryption rounds must be at least 1 but was %d", protocol.ErrConfiguration, rounds)
	}
	if production && passphrase == config.DefaultPassphrase {
		return nil, fmt.Errorf("%w: %w", protocol.ErrConfiguration, ErrDefaultPassphrase)
	}
	key := FoldKey([]byte(passphrase))
	if _, err := blowfish.NewCipher(key); err != nil {
		return nil, fmt.Errorf("%w: invalid passphrase: %v", protocol.ErrConfiguration, err)
	}
	if raw == nil {
		raw = NewRaw(reg)
	}
	return &Encrypting{raw: raw, reg: reg, key: key, rounds: rounds}, nil
}

// FoldKey 将口令折叠为最多 56 字节
//
// 前 56 字节原样保留，其余字节依次循环异或到前 56 字节上。
func FoldKey(passphrase []byte) []byte {
	if len(passphrase) <= maxKeyLen {
		out := make([]byte, len(passphrase))
		copy(out, passphrase)
		return out
	}
	out := make([]byte, maxKeyLen)
	copy(out, passphrase[:maxKeyLen])
	for i, c := range passphrase[maxKeyLen:] {
		out[i%maxKeyLen] ^= c
	}
	return out
}

// MagicNumber 返回 124
func (c *Encrypting) MagicNumber() (byte, error) {
	return MagicTransformed, nil
}

// Probe 探测魔数 124
func (c *Encrypting) Probe(b *buf.Buffer) (bool, error) {
	return probeMagic(b, MagicTransformed), nil
}

// Decode 解密一帧
//
// 魔数不匹配时恢复读游标并交给 raw 编解码器。
func (c *Encrypting) Decode(b *buf.Buffer, stream uint16) (Decoded, error) {
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

	out, err := c.Decrypt(payload)
	if err != nil {
		return Decoded{}, fmt.Errorf("%s on stream %d: %w", t, stream, err)
	}
	return Decoded{Type: t, Payload: out, Stream: stream}, nil
}

// Encode 编码为 [124][sig1][sig2][encrypt(payload)]
func (c *Encrypting) Encode(t protocol.MessageType, payload []byte) ([]byte, error) {
	enc, err := c.Encrypt(payload)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 1+protocol.HeaderLength+len(enc))
	out = appendHeader(out, MagicTransformed, t)
	return append(out, enc...), nil
}

// Encrypt 加密 rounds 轮
func (c *Encrypting) Encrypt(p []byte) ([]byte, error) {
	if len(p) == 0 {
		return []byte{}, nil
	}
	cipher, err := blowfish.NewCipher(c.key)
	if err != nil {
		return nil, err
	}
	data := p
	for i := 0; i < c.rounds; i++ {
		padded := pkcs5Pad(data, blowfish.BlockSize)
		out := make([]byte, len(padded))
		for off := 0; off < len(padded); off += blowfish.BlockSize {
			cipher.Encrypt(out[off:off+blowfish.BlockSize], padded[off:off+blowfish.BlockSize])
		}
		data = out
	}
	return data, nil
}

// Decrypt 解密 rounds 轮，长度或填充错误返回 ErrDecrypt
func (c *Encrypting) Decrypt(p []byte) ([]byte, error) {
	if len(p) == 0 {
		return []byte{}, nil
	}
	cipher, err := blowfish.NewCipher(c.key)
	if err != nil {
		return nil, err
	}
	data := p
	for i := 0; i < c.rounds; i++ {
		if len(data) == 0 || len(data)%blowfish.BlockSize != 0 {
			return nil, fmt.Errorf("%w: ciphertext length %d is not a multiple of %d", ErrDecrypt, len(data), blowfish.BlockSize)
		}
		out := make([]byte, len(data))
		for off := 0; off < len(data); off += blowfish.BlockSize {
			cipher.Decrypt(out[off:off+blowfish.BlockSize], data[off:off+blowfish.BlockSize])
		}
		data, err = pkcs5Unpad(out, blowfish.BlockSize)
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}

func pkcs5Pad(p []byte, blockSize int) []byte {
	n := blockSize - len(p)%blockSize
	out := make([]byte, len(p), len(p)+n)
	copy(out, p)
	return append(out, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs5Unpad(p []byte, blockSize int) ([]byte, error) {
	n := int(p[len(p)-1])
	if n == 0 || n > blockSize || n > len(p) {
		return nil, fmt.Errorf("%w: bad padding", ErrDecrypt)
	}
	for _, c := range p[len(p)-n:] {
		if int(c) != n {
			return nil, fmt.Errorf("%w: bad padding", ErrDecrypt)
		}
	}
	return p[:len(p)-n], nil
}
