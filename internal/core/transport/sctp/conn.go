package sctp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/sctp"

	"github.com/dep2p/go-scamper/config"
	"github.com/dep2p/go-scamper/pkg/interfaces/transport"
	"github.com/dep2p/go-scamper/pkg/lib/log"
	"github.com/dep2p/go-scamper/pkg/types"
)

const (
	flagMore byte = 1 << 0

	// 所有用户消息使用同一个 PPI，分片信息在标志字节里
	ppi = sctp.PayloadTypeWebRTCBinary

	// 与 pion 在 MaxMessageSize 为 0 时采用的上限一致
	defaultMaxMessageSize = 65536

	inboundBacklog = 64
	openRetries    = 5
	openRetryDelay = 10 * time.Millisecond
)

// 确保实现了接口
var _ transport.Conn = (*Conn)(nil)

type stream struct {
	s   *sctp.Stream
	wmu sync.Mutex
}

// Conn SCTP 关联
type Conn struct {
	id     string
	assoc  *sctp.Association
	nc     net.Conn
	remote types.Address

	maxIn, maxOut uint16
	maxFragment   int
	readSize      int

	mu      sync.Mutex
	streams map[uint16]*stream

	inbound chan transport.Frame

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// readBufferSize 读缓冲按消息上限而不是本端分片大小分配，
// 对端的分片可以大于本端的 MaxFragmentSize
func readBufferSize(cfg config.TransportConfig) int {
	size := int(cfg.MaxMessageSize)
	if size == 0 {
		size = defaultMaxMessageSize
	}
	if size < cfg.MaxFragmentSize+1 {
		size = cfg.MaxFragmentSize + 1
	}
	return size
}

func newConn(assoc *sctp.Association, nc net.Conn, cfg config.TransportConfig) *Conn {
	readSize := readBufferSize(cfg)
	c := &Conn{
		id:          uuid.NewString(),
		assoc:       assoc,
		nc:          nc,
		remote:      remoteAddress(nc.RemoteAddr()),
		maxIn:       cfg.MaxInStreams,
		maxOut:      cfg.MaxOutStreams,
		maxFragment: cfg.MaxFragmentSize,
		readSize:    readSize,
		streams:     make(map[uint16]*stream),
		inbound:     make(chan transport.Frame, inboundBacklog),
		done:        make(chan struct{}),
	}
	go c.acceptLoop()
	return c
}

func remoteAddress(a net.Addr) types.Address {
	addr, err := types.AddressFromNetAddr(a)
	if err != nil && a != nil {
		return types.Address{Host: a.String()}
	}
	return addr
}

// ID 连接唯一标识
func (c *Conn) ID() string { return c.id }

// RemoteAddr 对端地址
func (c *Conn) RemoteAddr() types.Address { return c.remote }

// LocalAddr 本地地址
func (c *Conn) LocalAddr() net.Addr { return c.nc.LocalAddr() }

// MaxStreams 本端配置的最大入/出子流数
func (c *Conn) MaxStreams() (uint16, uint16) { return c.maxIn, c.maxOut }

// ============================================================================
//                              读
// ============================================================================

// acceptLoop 接收对端打开的流，关联终止时关闭连接
func (c *Conn) acceptLoop() {
	for {
		s, err := c.assoc.AcceptStream()
		if err != nil {
			if !c.IsClosed() {
				logger.Debug("sctp association ended", "conn", log.TruncateID(c.id, 8), "error", err)
			}
			_ = c.Close()
			return
		}

		id := s.StreamIdentifier()
		if id >= c.maxIn {
			logger.Warn("ignoring inbound stream beyond limit", "stream", id, "max", c.maxIn, "remote", c.remote.String())
			_ = s.Close()
			continue
		}

		c.mu.Lock()
		_, exists := c.streams[id]
		if !exists {
			c.streams[id] = &stream{s: s}
		}
		c.mu.Unlock()
		if !exists {
			go c.readLoop(s)
		}
	}
}

// readLoop 把一个流上的用户消息转成 Frame
func (c *Conn) readLoop(s *sctp.Stream) {
	buf := make([]byte, c.readSize)
	id := s.StreamIdentifier()
	for {
		n, _, err := s.ReadSCTP(buf)
		if err != nil {
			c.dropStream(id, s)
			if errors.Is(err, io.EOF) || c.IsClosed() {
				return
			}
			logger.Debug("sctp stream read failed", "stream", id, "error", err)
			_ = c.Close()
			return
		}
		if n == 0 {
			logger.Warn("sctp message without flags", "stream", id, "error", ErrEmptyMessage)
			continue
		}

		f := transport.Frame{
			Stream:   id,
			Data:     append([]byte(nil), buf[1:n]...),
			Complete: buf[0]&flagMore == 0,
		}
		select {
		case c.inbound <- f:
		case <-c.done:
			return
		}
	}
}

func (c *Conn) dropStream(id uint16, s *sctp.Stream) {
	c.mu.Lock()
	if cur, ok := c.streams[id]; ok && cur.s == s {
		delete(c.streams, id)
	}
	c.mu.Unlock()
}

// ReadFrame 读取下一个分片
func (c *Conn) ReadFrame() (transport.Frame, error) {
	select {
	case f := <-c.inbound:
		return f, nil
	case <-c.done:
		return transport.Frame{}, transport.ErrClosed
	}
}

// ============================================================================
//                              写
// ============================================================================

// streamFor 返回已有流或打开新流
//
// 对端可能同时打开同一标识的流，此时等待 acceptLoop 登记后复用。
func (c *Conn) streamFor(id uint16) (*stream, error) {
	var lastErr error
	for i := 0; i < openRetries; i++ {
		c.mu.Lock()
		if st, ok := c.streams[id]; ok {
			c.mu.Unlock()
			return st, nil
		}
		s, err := c.assoc.OpenStream(id, ppi)
		if err == nil {
			st := &stream{s: s}
			c.streams[id] = st
			c.mu.Unlock()
			go c.readLoop(s)
			return st, nil
		}
		c.mu.Unlock()

		lastErr = err
		select {
		case <-time.After(openRetryDelay):
		case <-c.done:
			return nil, transport.ErrClosed
		}
	}
	return nil, fmt.Errorf("sctp open stream %d: %w", id, lastErr)
}

// WriteFrame 写出一条消息的全部分片
func (c *Conn) WriteFrame(ctx context.Context, id uint16, data []byte) error {
	if c.IsClosed() {
		return transport.ErrClosed
	}
	if id >= c.maxOut {
		return fmt.Errorf("%w: stream %d, max %d", transport.ErrStreamOutOfRange, id, c.maxOut)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	st, err := c.streamFor(id)
	if err != nil {
		return err
	}

	st.wmu.Lock()
	defer st.wmu.Unlock()

	msg := make([]byte, 0, min(len(data), c.maxFragment)+1)
	for {
		chunk := data
		flags := byte(0)
		if c.maxFragment > 0 && len(chunk) > c.maxFragment {
			chunk = data[:c.maxFragment]
			flags = flagMore
		}
		msg = append(append(msg[:0], flags), chunk...)
		if _, err := st.s.WriteSCTP(msg, ppi); err != nil {
			if c.IsClosed() {
				return transport.ErrClosed
			}
			return fmt.Errorf("sctp write stream %d: %w", id, err)
		}
		data = data[len(chunk):]
		if flags == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// ============================================================================
//                              关闭
// ============================================================================

// IsClosed 是否已关闭
func (c *Conn) IsClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Done 关闭通知
func (c *Conn) Done() <-chan struct{} { return c.done }

// Close 关闭关联和底层 UDP 连接
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.closeErr = c.assoc.Close()
		_ = c.nc.Close()
		logger.Debug("sctp connection closed", "conn", log.TruncateID(c.id, 8), "remote", c.remote.String())
	})
	return c.closeErr
}
