package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-scamper/pkg/protocol"
)

// DefaultRateWindow 速率窗口（秒）
const DefaultRateWindow = 60

// Stats 带宽快照
type Stats struct {
	Type        protocol.MessageType // 合计时为零值
	MessagesIn  int64
	MessagesOut int64
	BytesIn     int64
	BytesOut    int64
	RateIn      float64 // 字节/秒
	RateOut     float64 // 字节/秒
}

type meter struct {
	t                 protocol.MessageType
	msgsIn, msgsOut   atomic.Int64
	bytesIn, bytesOut atomic.Int64
	rateIn, rateOut   *RateMeter
}

func newMeter(t protocol.MessageType, window int, clk clock.Clock) *meter {
	return &meter{t: t, rateIn: newRateMeter(window, clk), rateOut: newRateMeter(window, clk)}
}

func (m *meter) recv(n int) {
	m.msgsIn.Add(1)
	m.bytesIn.Add(int64(n))
	m.rateIn.Add(int64(n))
}

func (m *meter) sent(n int) {
	m.msgsOut.Add(1)
	m.bytesOut.Add(int64(n))
	m.rateOut.Add(int64(n))
}

func (m *meter) stats() Stats {
	return Stats{
		Type:        m.t,
		MessagesIn:  m.msgsIn.Load(),
		MessagesOut: m.msgsOut.Load(),
		BytesIn:     m.bytesIn.Load(),
		BytesOut:    m.bytesOut.Load(),
		RateIn:      m.rateIn.Rate(),
		RateOut:     m.rateOut.Rate(),
	}
}

// Bandwidth 按消息类型划分的带宽统计
type Bandwidth struct {
	window int
	clock  clock.Clock
	total  *meter

	mu     sync.RWMutex
	byType map[uint16]*meter
}

// NewBandwidth 创建带宽统计
func NewBandwidth(window int) *Bandwidth {
	return newBandwidth(window, clock.New())
}

func newBandwidth(window int, clk clock.Clock) *Bandwidth {
	return &Bandwidth{
		window: window,
		clock:  clk,
		total:  newMeter(protocol.MessageType{}, window, clk),
		byType: make(map[uint16]*meter),
	}
}

func (b *Bandwidth) meterFor(t protocol.MessageType) *meter {
	b.mu.RLock()
	m := b.byType[t.Code()]
	b.mu.RUnlock()
	if m != nil {
		return m
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if m = b.byType[t.Code()]; m == nil {
		m = newMeter(t, b.window, b.clock)
		b.byType[t.Code()] = m
	}
	return m
}

// Recv 记录入站消息
func (b *Bandwidth) Recv(t protocol.MessageType, n int) {
	b.total.recv(n)
	b.meterFor(t).recv(n)
}

// Sent 记录出站消息
func (b *Bandwidth) Sent(t protocol.MessageType, n int) {
	b.total.sent(n)
	b.meterFor(t).sent(n)
}

// Totals 全部类型合计
func (b *Bandwidth) Totals() Stats {
	return b.total.stats()
}

// ForType 单个消息类型的统计，未出现过的类型返回零值
func (b *Bandwidth) ForType(t protocol.MessageType) Stats {
	b.mu.RLock()
	m := b.byType[t.Code()]
	b.mu.RUnlock()
	if m == nil {
		return Stats{}
	}
	return m.stats()
}

// ByType 所有出现过的类型，键为类型编码
func (b *Bandwidth) ByType() map[uint16]Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[uint16]Stats, len(b.byType))
	for code, m := range b.byType {
		out[code] = m.stats()
	}
	return out
}
