package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration 支持 "30s" 形式 JSON 的 time.Duration
//
// 也接受纳秒整数：
//
//	{"dial_timeout": "5s"} 或 {"dial_timeout": 5000000000}
type Duration time.Duration

// UnmarshalJSON 实现 json.Unmarshaler
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, s, err)
		}
		*d = Duration(v)
		return nil
	}

	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: duration must be a string or nanoseconds", ErrInvalidConfig)
	}
	*d = Duration(n)
	return nil
}

// MarshalJSON 输出为 "30s" 形式
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Duration 返回 time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}
