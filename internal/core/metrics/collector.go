package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/dep2p/go-scamper/pkg/protocol"
)

const (
	dirIn  = "in"
	dirOut = "out"
)

// Collector Prometheus 指标和带宽统计
type Collector struct {
	framesReceived prometheus.Counter
	bytesReceived  prometheus.Counter
	messages       *prometheus.CounterVec
	messageBytes   *prometheus.CounterVec
	overflow       prometheus.Counter
	decodeErrors   *prometheus.CounterVec
	unknownTypes   prometheus.Counter
	sendFailures   prometheus.Counter
	associations   prometheus.Gauge

	bandwidth *Bandwidth
	rates     *rateCollector
}

var _ Reporter = (*Collector)(nil)

// NewCollector 创建指标并注册到 reg
//
// reg 为 nil 时不注册，指标仍可用于读取。
func NewCollector(namespace string, reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		framesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Transport frames received.",
		}),
		bytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_received_total",
			Help:      "Transport frame bytes received.",
		}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Complete messages by direction and type.",
		}, []string{"dir", "type"}),
		messageBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "message_bytes_total",
			Help:      "Complete message bytes by direction and type.",
		}, []string{"dir", "type"}),
		overflow: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "overflow_total",
			Help:      "Fragment queues that exceeded the overflow cap.",
		}),
		decodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Payloads that failed to decode.",
		}, []string{"type"}),
		unknownTypes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unknown_types_total",
			Help:      "Messages with an unregistered type.",
		}),
		sendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Outbound messages that could not be written.",
		}),
		associations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "associations",
			Help:      "Open connections.",
		}),
		bandwidth: NewBandwidth(DefaultRateWindow),
	}
	c.rates = newRateCollector(namespace, c.bandwidth)

	if reg == nil {
		return c, nil
	}

	var errs error
	for _, col := range []prometheus.Collector{
		c.framesReceived, c.bytesReceived, c.messages, c.messageBytes,
		c.overflow, c.decodeErrors, c.unknownTypes, c.sendFailures, c.associations,
		c.rates,
	} {
		errs = multierr.Append(errs, reg.Register(col))
	}
	if errs != nil {
		return nil, errs
	}
	return c, nil
}

// Bandwidth 带宽统计
func (c *Collector) Bandwidth() *Bandwidth { return c.bandwidth }

// ============================================================================
//                              窗口速率
// ============================================================================

// rateCollector 把带宽统计的窗口速率导出为 message_rate_bytes{dir,type}
//
// 同名类型的速率相加，与 messages_total 的标签保持一致。
type rateCollector struct {
	bw   *Bandwidth
	desc *prometheus.Desc
}

func newRateCollector(namespace string, bw *Bandwidth) *rateCollector {
	return &rateCollector{
		bw: bw,
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "message_rate_bytes"),
			"Message bytes per second over the sliding window, by direction and type.",
			[]string{"dir", "type"}, nil,
		),
	}
}

func (r *rateCollector) Describe(ch chan<- *prometheus.Desc) { ch <- r.desc }

func (r *rateCollector) Collect(ch chan<- prometheus.Metric) {
	type pair struct{ in, out float64 }
	byName := make(map[string]pair)
	for _, s := range r.bw.ByType() {
		p := byName[s.Type.Name()]
		p.in += s.RateIn
		p.out += s.RateOut
		byName[s.Type.Name()] = p
	}
	for name, p := range byName {
		ch <- prometheus.MustNewConstMetric(r.desc, prometheus.GaugeValue, p.in, dirIn, name)
		ch <- prometheus.MustNewConstMetric(r.desc, prometheus.GaugeValue, p.out, dirOut, name)
	}
}

func (c *Collector) FrameReceived(size int) {
	c.framesReceived.Inc()
	c.bytesReceived.Add(float64(size))
}

func (c *Collector) MessageReceived(t protocol.MessageType, size int) {
	c.messages.WithLabelValues(dirIn, t.Name()).Inc()
	c.messageBytes.WithLabelValues(dirIn, t.Name()).Add(float64(size))
	c.bandwidth.Recv(t, size)
}

func (c *Collector) MessageSent(t protocol.MessageType, size int) {
	c.messages.WithLabelValues(dirOut, t.Name()).Inc()
	c.messageBytes.WithLabelValues(dirOut, t.Name()).Add(float64(size))
	c.bandwidth.Sent(t, size)
}

func (c *Collector) Overflow() { c.overflow.Inc() }

func (c *Collector) DecodeError(t protocol.MessageType) {
	c.decodeErrors.WithLabelValues(t.Name()).Inc()
}

func (c *Collector) UnknownType() { c.unknownTypes.Inc() }

func (c *Collector) SendFailed() { c.sendFailures.Inc() }

func (c *Collector) AssociationOpened() { c.associations.Inc() }

func (c *Collector) AssociationClosed() { c.associations.Dec() }
