package metrics

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// RateMeter 滑动窗口速率计算器
//
// 窗口由若干 1 秒桶组成，Rate 返回窗口内的平均字节/秒。
type RateMeter struct {
	mu      sync.Mutex
	buckets []int64
	idx     int
	last    time.Time
	clock   clock.Clock
}

// NewRateMeter 创建窗口为 window 秒的速率计算器，window 至少为 1
func NewRateMeter(window int) *RateMeter {
	return newRateMeter(window, clock.New())
}

func newRateMeter(window int, clk clock.Clock) *RateMeter {
	if window < 1 {
		window = 1
	}
	return &RateMeter{
		buckets: make([]int64, window),
		last:    clk.Now(),
		clock:   clk,
	}
}

// advance 把过期的桶清零，调用方持有 r.mu
func (r *RateMeter) advance() {
	now := r.clock.Now()
	steps := int(now.Sub(r.last) / time.Second)
	if steps <= 0 {
		return
	}
	if steps >= len(r.buckets) {
		clear(r.buckets)
		r.idx = 0
	} else {
		for i := 0; i < steps; i++ {
			r.idx = (r.idx + 1) % len(r.buckets)
			r.buckets[r.idx] = 0
		}
	}
	r.last = r.last.Add(time.Duration(steps) * time.Second)
}

// Add 记录 n 字节
func (r *RateMeter) Add(n int64) {
	r.mu.Lock()
	r.advance()
	r.buckets[r.idx] += n
	r.mu.Unlock()
}

// Rate 窗口内平均字节/秒
func (r *RateMeter) Rate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.advance()
	var total int64
	for _, v := range r.buckets {
		total += v
	}
	return float64(total) / float64(len(r.buckets))
}
