package config

import (
	"fmt"
	"regexp"
)

var metricNamespace = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// MetricsConfig 指标配置
type MetricsConfig struct {
	// Enabled 是否启用指标收集
	Enabled bool `json:"enabled"`

	// Namespace Prometheus 指标前缀
	Namespace string `json:"namespace"`

	// Listen /metrics HTTP 监听地址，为空则不暴露（仅命令行使用）
	Listen string `json:"listen,omitempty"`
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   true,
		Namespace: "scamper",
	}
}

// Validate 验证指标配置
func (c MetricsConfig) Validate() error {
	if c.Enabled && !metricNamespace.MatchString(c.Namespace) {
		return fmt.Errorf("%w: invalid metrics.namespace %q", ErrInvalidConfig, c.Namespace)
	}
	return nil
}
