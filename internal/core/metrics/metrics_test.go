package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-scamper/pkg/protocol"
)

var (
	query  = protocol.MustMessageType("query", 1, 1)
	answer = protocol.MustMessageType("answer", 1, 2)
)

// TestCollector_Counters 测试计数器
func TestCollector_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector("scamper", reg)
	require.NoError(t, err)

	c.FrameReceived(10)
	c.FrameReceived(20)
	c.MessageReceived(query, 30)
	c.MessageSent(answer, 5)
	c.MessageSent(answer, 7)
	c.Overflow()
	c.DecodeError(query)
	c.UnknownType()
	c.SendFailed()
	c.AssociationOpened()
	c.AssociationOpened()
	c.AssociationClosed()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.framesReceived))
	assert.Equal(t, 30.0, testutil.ToFloat64(c.bytesReceived))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.messages.WithLabelValues(dirIn, "query")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.messages.WithLabelValues(dirOut, "answer")))
	assert.Equal(t, 12.0, testutil.ToFloat64(c.messageBytes.WithLabelValues(dirOut, "answer")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.overflow))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.decodeErrors.WithLabelValues("query")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.unknownTypes))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.sendFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.associations))

	n, err := testutil.GatherAndCount(reg, "scamper_messages_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	t.Log("✅ 计数器测试通过")
}

// TestCollector_DuplicateRegister 测试重复注册报错
func TestCollector_DuplicateRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewCollector("scamper", reg)
	require.NoError(t, err)

	_, err = NewCollector("scamper", reg)
	assert.Error(t, err)

	// 不注册
	c, err := NewCollector("scamper", nil)
	require.NoError(t, err)
	assert.NotNil(t, c)
}

// TestBandwidth 测试按类型统计
func TestBandwidth(t *testing.T) {
	b := NewBandwidth(DefaultRateWindow)

	b.Recv(query, 100)
	b.Recv(query, 50)
	b.Sent(answer, 60)

	q := b.ForType(query)
	assert.Equal(t, int64(2), q.MessagesIn)
	assert.Equal(t, int64(150), q.BytesIn)
	assert.Zero(t, q.BytesOut)

	tot := b.Totals()
	assert.Equal(t, int64(150), tot.BytesIn)
	assert.Equal(t, int64(60), tot.BytesOut)
	assert.InDelta(t, 150.0/DefaultRateWindow, tot.RateIn, 0.001)

	assert.Equal(t, Stats{}, b.ForType(protocol.MustMessageType("other", 9, 9)))
	assert.Len(t, b.ByType(), 2)
}

// TestRateCollector 测试窗口速率导出为 Gauge
func TestRateCollector(t *testing.T) {
	clk := clock.NewMock()
	bw := newBandwidth(4, clk)
	bw.Recv(query, 40)
	bw.Sent(answer, 8)

	assert.Equal(t, query, bw.ForType(query).Type)

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(newRateCollector("scamper", bw)))

	expected := `
# HELP scamper_message_rate_bytes Message bytes per second over the sliding window, by direction and type.
# TYPE scamper_message_rate_bytes gauge
scamper_message_rate_bytes{dir="in",type="answer"} 0
scamper_message_rate_bytes{dir="in",type="query"} 10
scamper_message_rate_bytes{dir="out",type="answer"} 2
scamper_message_rate_bytes{dir="out",type="query"} 0
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "scamper_message_rate_bytes"))

	// 窗口滑过后速率归零，累计值保留
	clk.Add(10 * time.Second)
	q := bw.ForType(query)
	assert.Zero(t, q.RateIn)
	assert.Equal(t, int64(40), q.BytesIn)

	t.Log("✅ 速率 Gauge 测试通过")
}

// TestRateMeter_Window 测试窗口滑动
func TestRateMeter_Window(t *testing.T) {
	clk := clock.NewMock()
	r := newRateMeter(4, clk)

	r.Add(40)
	assert.InDelta(t, 10.0, r.Rate(), 0.001)

	clk.Add(2 * time.Second)
	r.Add(8)
	assert.InDelta(t, 12.0, r.Rate(), 0.001)

	// 超过窗口后清零
	clk.Add(10 * time.Second)
	assert.Zero(t, r.Rate())

	assert.Len(t, NewRateMeter(0).buckets, 1)
}

// TestNop 测试 Nop 满足接口
func TestNop(t *testing.T) {
	var r Reporter = Nop{}
	r.MessageSent(query, 1)
	r.AssociationClosed()
}
