// Package metrics 收集引擎运行指标
//
// Collector 把事件同时记入 Prometheus 计数器和按消息类型划分的带宽统计：
//
//	reg := prometheus.NewRegistry()
//	c, err := metrics.NewCollector("scamper", reg)
//	...
//	c.MessageSent(t, 128)
//	stats := c.Bandwidth().ForType(t)
//
// Prometheus 指标（前缀为配置的 namespace）：
//
//	frames_received_total          传输层帧数
//	bytes_received_total           传输层帧字节数
//	messages_total{dir,type}       完整消息数
//	message_bytes_total{dir,type}  完整消息字节数
//	overflow_total                 分片溢出事件
//	decode_errors_total{type}      解码失败
//	unknown_types_total            未知消息类型
//	send_failures_total            发送失败
//	associations                   活动连接数
//	message_rate_bytes{dir,type}   窗口内平均字节/秒
//
// 关闭指标时使用 Nop。
package metrics
