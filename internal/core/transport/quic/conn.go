package quic

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quic-go/quic-go"

	"github.com/dep2p/go-scamper/config"
	"github.com/dep2p/go-scamper/internal/core/transport/framing"
	"github.com/dep2p/go-scamper/pkg/interfaces/transport"
	"github.com/dep2p/go-scamper/pkg/lib/log"
	"github.com/dep2p/go-scamper/pkg/types"
)

const inboundBacklog = 64

// 确保实现了接口
var _ transport.Conn = (*Conn)(nil)

type sendStream struct {
	s   quic.SendStream
	wmu sync.Mutex
	buf []byte
}

// Conn QUIC 多子流连接
type Conn struct {
	id     string
	qc     quic.Connection
	remote types.Address

	maxIn, maxOut uint16
	maxFragment   int
	readLimit     int

	mu    sync.Mutex
	sends map[uint16]*sendStream

	inbound chan transport.Frame

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func newConn(qc quic.Connection, cfg config.TransportConfig) *Conn {
	c := &Conn{
		id:          uuid.NewString(),
		qc:          qc,
		remote:      remoteAddress(qc.RemoteAddr()),
		maxIn:       cfg.MaxInStreams,
		maxOut:      cfg.MaxOutStreams,
		maxFragment: cfg.MaxFragmentSize,
		readLimit:   int(cfg.MaxMessageSize),
		sends:       make(map[uint16]*sendStream),
		inbound:     make(chan transport.Frame, inboundBacklog),
		done:        make(chan struct{}),
	}
	go c.acceptLoop()
	go func() {
		select {
		case <-qc.Context().Done():
			_ = c.Close()
		case <-c.done:
		}
	}()
	return c
}

func remoteAddress(a net.Addr) types.Address {
	addr, _ := types.AddressFromNetAddr(a)
	return addr
}

// ID 连接唯一标识
func (c *Conn) ID() string { return c.id }

// RemoteAddr 对端地址
func (c *Conn) RemoteAddr() types.Address { return c.remote }

// LocalAddr 本地地址
func (c *Conn) LocalAddr() net.Addr { return c.qc.LocalAddr() }

// MaxStreams 本端配置的最大入/出子流数
func (c *Conn) MaxStreams() (uint16, uint16) { return c.maxIn, c.maxOut }

// ============================================================================
//                              读
// ============================================================================

func (c *Conn) acceptLoop() {
	for {
		s, err := c.qc.AcceptUniStream(c.qc.Context())
		if err != nil {
			_ = c.Close()
			return
		}
		go c.readLoop(s)
	}
}

func (c *Conn) readLoop(s quic.ReceiveStream) {
	r := bufio.NewReader(s)
	for {
		h, data, err := framing.Read(r, c.readLimit)
		if err != nil {
			if errors.Is(err, io.EOF) || c.IsClosed() {
				return
			}
			logger.Debug("quic stream read failed", "conn", log.TruncateID(c.id, 8), "error", err)
			_ = c.Close()
			return
		}
		if h.Hello() {
			logger.Warn("quic stream carried a hello frame", "remote", c.remote.String(), "error", ErrUnexpectedHello)
			_ = c.Close()
			return
		}
		if h.Stream >= c.maxIn {
			logger.Warn("inbound stream beyond limit", "stream", h.Stream, "max", c.maxIn, "remote", c.remote.String())
			s.CancelRead(0)
			return
		}

		select {
		case c.inbound <- transport.Frame{Stream: h.Stream, Data: data, Complete: !h.More()}:
		case <-c.done:
			return
		}
	}
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

func (c *Conn) streamFor(ctx context.Context, id uint16) (*sendStream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if st, ok := c.sends[id]; ok {
		return st, nil
	}
	s, err := c.qc.OpenUniStreamSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("quic open stream %d: %w", id, err)
	}
	st := &sendStream{s: s}
	c.sends[id] = st
	return st, nil
}

// WriteFrame 写出一条消息的全部分片
func (c *Conn) WriteFrame(ctx context.Context, id uint16, data []byte) error {
	if c.IsClosed() {
		return transport.ErrClosed
	}
	if id >= c.maxOut {
		return fmt.Errorf("%w: stream %d, max %d", transport.ErrStreamOutOfRange, id, c.maxOut)
	}

	st, err := c.streamFor(ctx, id)
	if err != nil {
		if c.IsClosed() {
			return transport.ErrClosed
		}
		return err
	}

	st.wmu.Lock()
	defer st.wmu.Unlock()

	if d, ok := ctx.Deadline(); ok {
		_ = st.s.SetWriteDeadline(d)
		defer st.s.SetWriteDeadline(time.Time{})
	}

	st.buf = framing.AppendMessage(st.buf[:0], id, data, c.maxFragment)
	if _, err := st.s.Write(st.buf); err != nil {
		if c.IsClosed() {
			return transport.ErrClosed
		}
		return fmt.Errorf("quic write stream %d: %w", id, err)
	}
	return nil
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

// Close 关闭连接
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.closeErr = c.qc.CloseWithError(0, "closed")
		logger.Debug("quic connection closed", "conn", log.TruncateID(c.id, 8), "remote", c.remote.String())
	})
	return c.closeErr
}
