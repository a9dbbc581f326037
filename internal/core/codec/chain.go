package codec

import (
	"fmt"

	"github.com/dep2p/go-scamper/config"
	"github.com/dep2p/go-scamper/pkg/lib/buf"
	"github.com/dep2p/go-scamper/pkg/protocol"
)

// ============================================================================
//                              Chain - 魔数分派
// ============================================================================

// Chain 编解码器链
//
// 解码按首字节查表，编码走出站编解码器。构建后只读。
type Chain struct {
	table    map[byte]Codec
	outbound Codec
	mode     string
}

// NewChain 构建编解码器链
//
// decoders 中每个编解码器必须有魔数且互不重复，否则返回 protocol.ErrConfiguration。
func NewChain(outbound Codec, decoders ...Codec) (*Chain, error) {
	if outbound == nil {
		return nil, fmt.Errorf("%w: chain needs an outbound codec", protocol.ErrConfiguration)
	}
	table := make(map[byte]Codec, len(decoders))
	for _, d := range decoders {
		magic, err := d.MagicNumber()
		if err != nil {
			return nil, fmt.Errorf("%w: %T cannot be dispatched by magic: %w", protocol.ErrConfiguration, d, err)
		}
		if prev, ok := table[magic]; ok {
			return nil, fmt.Errorf("%w: magic %d claimed by both %T and %T", protocol.ErrConfiguration, magic, prev, d)
		}
		table[magic] = d
	}
	return &Chain{table: table, outbound: outbound}, nil
}

// NewChainFromConfig 按配置装配编解码器链
//
//   - raw:     出站 Raw，入站 {123: Raw}
//   - gzip:    出站 Compressing，入站 {123: Raw, 124: Compressing}
//   - encrypt: 出站 Encrypting，入站 {123: Raw, 124: Encrypting}
//   - auto:    出站 Auto，入站 {123: Raw, 124: Compressing}
func NewChainFromConfig(reg *protocol.Registry, cfg config.CodecConfig, production bool) (*Chain, error) {
	raw := NewRaw(reg)

	var (
		chain *Chain
		err   error
	)
	switch cfg.Mode {
	case config.CodecModeRaw, "":
		chain, err = NewChain(raw, raw)

	case config.CodecModeGzip:
		var gz *Compressing
		if gz, err = NewCompressing(reg, raw, cfg.Level); err == nil {
			chain, err = NewChain(gz, raw, gz)
		}

	case config.CodecModeEncrypt:
		var enc *Encrypting
		if enc, err = NewEncrypting(reg, raw, cfg.Passphrase, cfg.Rounds, production); err == nil {
			chain, err = NewChain(enc, raw, enc)
		}

	case config.CodecModeAuto:
		var (
			gz   *Compressing
			auto *Auto
		)
		if gz, err = NewCompressing(reg, raw, cfg.Level); err != nil {
			break
		}
		if auto, err = NewAuto(raw, gz, cfg.Threshold); err != nil {
			break
		}
		chain, err = NewChain(auto, raw, gz)

	default:
		err = fmt.Errorf("%w: unknown codec mode %q", protocol.ErrConfiguration, cfg.Mode)
	}
	if err != nil {
		return nil, err
	}

	chain.mode = cfg.Mode
	if chain.mode == "" {
		chain.mode = config.CodecModeRaw
	}
	logger.Debug("codec chain built", "mode", chain.mode, "magics", len(chain.table))
	return chain, nil
}

// Mode 出站模式名称
func (c *Chain) Mode() string {
	return c.mode
}

// Outbound 出站编解码器
func (c *Chain) Outbound() Codec {
	return c.outbound
}

// Decode 读取魔数并分派
//
// 查表失败时读游标不动，返回 ErrUnrecognizedFrame。
func (c *Chain) Decode(b *buf.Buffer, stream uint16) (Decoded, error) {
	magic, err := b.PeekByte()
	if err != nil {
		return Decoded{}, ErrEmptyFrame
	}
	d, ok := c.table[magic]
	if !ok {
		return Decoded{}, fmt.Errorf("%w: magic %d on stream %d", ErrUnrecognizedFrame, magic, stream)
	}
	return d.Decode(b, stream)
}

// Encode 使用出站编解码器编码
func (c *Chain) Encode(t protocol.MessageType, payload []byte) ([]byte, error) {
	return c.outbound.Encode(t, payload)
}
