package config

import "errors"

// ErrInvalidConfig 配置值无效
var ErrInvalidConfig = errors.New("invalid config")
