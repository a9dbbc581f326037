package config

import (
	"fmt"

	"github.com/dep2p/go-scamper/pkg/types"
)

// 数据编码
const (
	// EncodingMsgPack 二进制对象表示（默认）
	EncodingMsgPack = "msgpack"
	// EncodingJSON JSON
	EncodingJSON = "json"
	// EncodingGob Go 原生序列化
	EncodingGob = "gob"
	// EncodingProtobuf protobuf，负载必须是 proto.Message
	EncodingProtobuf = "protobuf"
)

// DefaultOverflowCap 单个子流分片累计上限（128 KiB）
const DefaultOverflowCap = 131072

// DefaultPort 默认监听端口
const DefaultPort = 8007

// EngineConfig 引擎配置
type EngineConfig struct {
	// Listen 监听地址，可携带次地址（多宿主）
	Listen types.Address `json:"listen"`

	// OverflowCap 单个子流未完成分片的累计字节上限
	OverflowCap int `json:"overflow_cap"`

	// Encoding 处理器负载的数据编码
	Encoding string `json:"encoding"`

	// Production 生产模式，拒绝不安全的默认值
	Production bool `json:"production"`
}

// DefaultEngineConfig 返回默认引擎配置
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Listen:      types.NewAddress("0.0.0.0", DefaultPort),
		OverflowCap: DefaultOverflowCap,
		Encoding:    EncodingMsgPack,
	}
}

// Validate 验证引擎配置
func (c EngineConfig) Validate() error {
	if c.OverflowCap <= 0 {
		return fmt.Errorf("%w: engine.overflow_cap must be positive, got %d", ErrInvalidConfig, c.OverflowCap)
	}
	switch c.Encoding {
	case EncodingMsgPack, EncodingJSON, EncodingGob, EncodingProtobuf:
	default:
		return fmt.Errorf("%w: unknown engine.encoding %q", ErrInvalidConfig, c.Encoding)
	}
	for i, ep := range c.Listen.Endpoints() {
		// 端口 0 由系统分配
		if ep.Port < 0 || ep.Port > 65535 {
			return fmt.Errorf("%w: engine.listen endpoint %d port %d", ErrInvalidConfig, i, ep.Port)
		}
	}
	return nil
}
