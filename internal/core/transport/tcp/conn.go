package tcp

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dep2p/go-scamper/config"
	"github.com/dep2p/go-scamper/internal/core/transport/framing"
	"github.com/dep2p/go-scamper/pkg/interfaces/transport"
	"github.com/dep2p/go-scamper/pkg/lib/log"
	"github.com/dep2p/go-scamper/pkg/types"
)

// 确保实现了接口
var _ transport.Conn = (*Conn)(nil)

// Conn TCP 多子流连接
type Conn struct {
	id     string
	nc     net.Conn
	r      *bufio.Reader
	remote types.Address

	maxIn, maxOut uint16
	maxFragment   int
	readLimit     int

	wmu sync.Mutex
	buf []byte

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewConn 在已建立的 net.Conn 上完成握手
//
// client 为 true 时先写握手帧。失败时关闭 nc。
func NewConn(nc net.Conn, cfg config.TransportConfig, client bool) (*Conn, error) {
	c := &Conn{
		id:          uuid.NewString(),
		nc:          nc,
		r:           bufio.NewReader(nc),
		remote:      remoteAddress(nc.RemoteAddr()),
		maxFragment: cfg.MaxFragmentSize,
		readLimit:   int(cfg.MaxMessageSize),
		done:        make(chan struct{}),
	}

	if d := cfg.DialTimeout.Duration(); d > 0 {
		_ = nc.SetDeadline(time.Now().Add(d))
	}
	remoteIn, remoteOut, err := c.handshake(cfg.MaxInStreams, cfg.MaxOutStreams, client)
	if err != nil {
		_ = nc.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrHandshake, c.remote.String(), err)
	}
	_ = nc.SetDeadline(time.Time{})

	c.maxIn, c.maxOut = framing.Negotiate(cfg.MaxInStreams, cfg.MaxOutStreams, remoteIn, remoteOut)
	logger.Debug("tcp connection established",
		"conn", log.TruncateID(c.id, 8),
		"remote", c.remote.String(),
		"client", client,
		"in", c.maxIn,
		"out", c.maxOut)
	return c, nil
}

func (c *Conn) handshake(in, out uint16, client bool) (uint16, uint16, error) {
	hello := framing.AppendHello(nil, in, out)
	if client {
		if _, err := c.nc.Write(hello); err != nil {
			return 0, 0, err
		}
		return framing.ReadHello(c.r)
	}
	remoteIn, remoteOut, err := framing.ReadHello(c.r)
	if err != nil {
		return 0, 0, err
	}
	if _, err := c.nc.Write(hello); err != nil {
		return 0, 0, err
	}
	return remoteIn, remoteOut, nil
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

// MaxStreams 协商后的最大入/出子流数
func (c *Conn) MaxStreams() (uint16, uint16) { return c.maxIn, c.maxOut }

// ReadFrame 读取下一个分片
func (c *Conn) ReadFrame() (transport.Frame, error) {
	h, data, err := framing.Read(c.r, c.readLimit)
	if err != nil {
		if c.IsClosed() {
			return transport.Frame{}, transport.ErrClosed
		}
		return transport.Frame{}, err
	}
	if h.Hello() {
		return transport.Frame{}, ErrUnexpectedHello
	}
	if h.Stream >= c.maxIn {
		return transport.Frame{}, fmt.Errorf("%w: inbound stream %d, max %d", transport.ErrStreamOutOfRange, h.Stream, c.maxIn)
	}
	return transport.Frame{Stream: h.Stream, Data: data, Complete: !h.More()}, nil
}

// WriteFrame 写出一条消息的全部分片
func (c *Conn) WriteFrame(ctx context.Context, stream uint16, data []byte) error {
	if c.IsClosed() {
		return transport.ErrClosed
	}
	if stream >= c.maxOut {
		return fmt.Errorf("%w: stream %d, max %d", transport.ErrStreamOutOfRange, stream, c.maxOut)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()

	if d, ok := ctx.Deadline(); ok {
		_ = c.nc.SetWriteDeadline(d)
		defer c.nc.SetWriteDeadline(time.Time{})
	}

	c.buf = framing.AppendMessage(c.buf[:0], stream, data, c.maxFragment)
	if _, err := c.nc.Write(c.buf); err != nil {
		if c.IsClosed() {
			return transport.ErrClosed
		}
		return err
	}
	return nil
}

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
		c.closeErr = c.nc.Close()
	})
	return c.closeErr
}
