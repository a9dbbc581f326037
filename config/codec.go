package config

import "fmt"

// 编解码器模式
const (
	// CodecModeRaw 不压缩不加密
	CodecModeRaw = "raw"
	// CodecModeGzip 全部 gzip 压缩
	CodecModeGzip = "gzip"
	// CodecModeEncrypt Blowfish 加密
	CodecModeEncrypt = "encrypt"
	// CodecModeAuto 超过阈值才压缩
	CodecModeAuto = "auto"
)

// 编解码器默认值
const (
	// DefaultGzipLevel 默认压缩级别（最佳压缩）
	DefaultGzipLevel = 9

	// DefaultCompressionThreshold 自动压缩阈值（字节）
	DefaultCompressionThreshold = 256

	// DefaultPassphrase 默认口令，生产模式下拒绝使用
	DefaultPassphrase = "Change this before use!"

	// DefaultRounds 默认加密轮数
	DefaultRounds = 1
)

// CodecConfig 编解码器配置
type CodecConfig struct {
	// Mode 出站编解码器：raw / gzip / encrypt / auto
	Mode string `json:"mode"`

	// Level gzip 压缩级别 0-9
	Level int `json:"level"`

	// Threshold auto 模式下超过该字节数才压缩
	Threshold int `json:"threshold"`

	// Passphrase 加密口令
	Passphrase string `json:"passphrase,omitempty"`

	// Rounds 加密轮数，至少为 1
	Rounds int `json:"rounds"`
}

// DefaultCodecConfig 返回默认编解码器配置
func DefaultCodecConfig() CodecConfig {
	return CodecConfig{
		Mode:       CodecModeRaw,
		Level:      DefaultGzipLevel,
		Threshold:  DefaultCompressionThreshold,
		Passphrase: DefaultPassphrase,
		Rounds:     DefaultRounds,
	}
}

// Validate 验证编解码器配置
func (c CodecConfig) Validate() error {
	switch c.Mode {
	case CodecModeRaw, CodecModeGzip, CodecModeEncrypt, CodecModeAuto:
	default:
		return fmt.Errorf("%w: unknown codec.mode %q", ErrInvalidConfig, c.Mode)
	}
	if c.Level < 0 || c.Level > 9 {
		return fmt.Errorf("%w: codec.level must be between 0 and 9 but was %d", ErrInvalidConfig, c.Level)
	}
	if c.Threshold < 0 {
		return fmt.Errorf("%w: codec.threshold must not be negative", ErrInvalidConfig)
	}
	if c.Rounds < 1 {
		return fmt.Errorf("%w: codec.rounds must be at least 1", ErrInvalidConfig)
	}
	if c.Mode == CodecModeEncrypt && c.Passphrase == "" {
		return fmt.Errorf("%w: codec.passphrase required for encrypt mode", ErrInvalidConfig)
	}
	return nil
}
