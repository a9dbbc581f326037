// Package config 提供统一的配置管理
//
// 本包采用分节配置模式：
//   - 主 Config 结构体嵌入所有子配置
//   - 每个子配置在独立文件中定义，带 Default*Config 和 Validate
//   - 支持从 JSON 加载和保存配置
//
// 使用示例：
//
//	cfg := config.NewConfig()
//	cfg.Codec.Mode = config.CodecModeAuto
//	cfg.Engine.Encoding = config.EncodingJSON
//
//	// 从 JSON 文件加载（未出现的字段保持默认值）
//	cfg, err := config.LoadFile("scamper.json")
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config 是 scamper 的完整配置结构
//
//   - Engine: 分片上限、数据编码、生产模式、监听地址
//   - Codec: 线帧编解码器链
//   - Transport: 传输协议及其参数
//   - Log: 日志级别和格式
//   - Metrics: Prometheus 指标
type Config struct {
	// Engine 引擎配置
	Engine EngineConfig `json:"engine"`

	// Codec 编解码器配置
	Codec CodecConfig `json:"codec"`

	// Transport 传输层配置
	Transport TransportConfig `json:"transport"`

	// Log 日志配置
	Log LogConfig `json:"log"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Engine:    DefaultEngineConfig(),
		Codec:     DefaultCodecConfig(),
		Transport: DefaultTransportConfig(),
		Log:       DefaultLogConfig(),
		Metrics:   DefaultMetricsConfig(),
	}
}

// Validate 验证配置的有效性
//
// 包含跨节检查：生产模式下加密编解码器不得使用默认口令。
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	if err := c.Codec.Validate(); err != nil {
		return err
	}
	if err := c.Transport.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	if c.Engine.Production && c.Codec.Mode == CodecModeEncrypt && c.Codec.Passphrase == DefaultPassphrase {
		return fmt.Errorf("%w: will not run in production mode with the default passphrase", ErrInvalidConfig)
	}
	return nil
}

// Clone 返回配置副本
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := *c
	if c.Engine.Listen.Secondaries != nil {
		out.Engine.Listen = c.Engine.Listen.WithSecondaries()
	}
	return &out
}

// ============================================================================
//                              JSON
// ============================================================================

// FromJSON 从 JSON 数据创建配置
//
// 未出现的字段保持默认值：
//
//	{
//	  "codec": {"mode": "gzip", "level": 6},
//	  "engine": {"encoding": "json"}
//	}
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// LoadFile 从 JSON 文件加载配置并验证
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := FromJSON(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ToJSON 序列化为带缩进的 JSON
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
