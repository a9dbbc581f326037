package config

import (
	"fmt"
	"time"
)

// 传输协议
const (
	// TransportSCTP 基于 UDP 的 SCTP（pion/sctp）
	TransportSCTP = "sctp"
	// TransportTCP 带子流帧的 TCP
	TransportTCP = "tcp"
	// TransportQUIC 每个子流一条 QUIC 单向流
	TransportQUIC = "quic"
)

// TransportConfig 传输层配置
type TransportConfig struct {
	// Kind 传输协议：sctp / tcp / quic
	Kind string `json:"kind"`

	// DialTimeout 单个端点的拨号超时
	DialTimeout Duration `json:"dial_timeout"`

	// MaxInStreams 本端接受的最大入流数
	MaxInStreams uint16 `json:"max_in_streams"`

	// MaxOutStreams 本端使用的最大出流数
	MaxOutStreams uint16 `json:"max_out_streams"`

	// MaxFragmentSize 单个分片的最大字节数，大消息按此拆分
	MaxFragmentSize int `json:"max_fragment_size"`

	// MaxMessageSize 接收单个分片的上限字节数
	//
	// TCP/QUIC 作为帧长度上限，SCTP 作为用户消息上限和读缓冲大小。
	// 0 表示 TCP/QUIC 不限制，SCTP 使用 pion 默认值 65536。
	MaxMessageSize uint32 `json:"max_message_size"`

	// ReceiveBufferSize 接收缓冲区大小（SCTP）
	ReceiveBufferSize uint32 `json:"receive_buffer_size"`

	// NoDelay 禁用 Nagle 算法（TCP）
	NoDelay bool `json:"no_delay"`

	// KeepAlive TCP/QUIC 保活周期，0 表示禁用
	KeepAlive Duration `json:"keep_alive"`

	// IdleTimeout QUIC 空闲超时
	IdleTimeout Duration `json:"idle_timeout"`
}

// DefaultTransportConfig 返回默认传输层配置
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		Kind:              TransportSCTP,
		DialTimeout:       Duration(10 * time.Second),
		MaxInStreams:      16,
		MaxOutStreams:     16,
		MaxFragmentSize:   16 * 1024,
		MaxMessageSize:    256 * 1024,
		ReceiveBufferSize: 1024 * 1024,
		NoDelay:           true,
		KeepAlive:         Duration(15 * time.Second),
		IdleTimeout:       Duration(30 * time.Second),
	}
}

// Validate 验证传输层配置
func (c TransportConfig) Validate() error {
	switch c.Kind {
	case TransportSCTP, TransportTCP, TransportQUIC:
	default:
		return fmt.Errorf("%w: unknown transport.kind %q", ErrInvalidConfig, c.Kind)
	}
	if c.MaxInStreams == 0 || c.MaxOutStreams == 0 {
		return fmt.Errorf("%w: transport stream counts must be positive", ErrInvalidConfig)
	}
	if c.MaxFragmentSize <= 0 {
		return fmt.Errorf("%w: transport.max_fragment_size must be positive", ErrInvalidConfig)
	}
	if c.DialTimeout < 0 {
		return fmt.Errorf("%w: transport.dial_timeout must not be negative", ErrInvalidConfig)
	}
	return nil
}
