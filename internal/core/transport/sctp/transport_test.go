package sctp

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-scamper/config"
	"github.com/dep2p/go-scamper/pkg/interfaces/transport"
	"github.com/dep2p/go-scamper/pkg/types"
)

func testConfig() config.TransportConfig {
	cfg := config.DefaultTransportConfig()
	cfg.DialTimeout = config.Duration(5 * time.Second)
	cfg.MaxInStreams = 4
	cfg.MaxOutStreams = 4
	cfg.MaxFragmentSize = 1024
	return cfg
}

// loopback 建立一对回环 SCTP 关联
func loopback(t *testing.T) (transport.Conn, transport.Conn) {
	t.Helper()
	return loopbackWith(t, testConfig(), testConfig())
}

// loopbackWith 两端使用各自的配置建立回环关联，返回 (客户端, 服务端)
func loopbackWith(t *testing.T, serverCfg, clientCfg config.TransportConfig) (transport.Conn, transport.Conn) {
	t.Helper()
	server := NewTransport(serverCfg)
	client := NewTransport(clientCfg)
	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ln, err := server.Listen(ctx, types.NewAddress("127.0.0.1", 0))
	require.NoError(t, err)
	addr, err := types.AddressFromNetAddr(ln.Addr())
	require.NoError(t, err)

	conn, err := client.Dial(ctx, addr)
	require.NoError(t, err)

	// 入站关联在第一条消息到达前就已完成握手
	accepted := make(chan transport.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			accepted <- c
		}
	}()

	select {
	case in := <-accepted:
		return conn, in
	case <-ctx.Done():
		t.Fatal("accept timeout")
		return nil, nil
	}
}

func readMessage(t *testing.T, c transport.Conn) (uint16, []byte, int) {
	t.Helper()
	var data []byte
	frames := 0
	for {
		f, err := c.ReadFrame()
		require.NoError(t, err)
		frames++
		data = append(data, f.Data...)
		if f.Complete {
			return f.Stream, data, frames
		}
	}
}

// TestSCTP_Exchange 测试双向收发
func TestSCTP_Exchange(t *testing.T) {
	client, server := loopback(t)
	ctx := context.Background()

	require.NoError(t, client.WriteFrame(ctx, 2, []byte("query")))
	stream, data, _ := readMessage(t, server)
	assert.Equal(t, uint16(2), stream)
	assert.Equal(t, "query", string(data))

	// 在对端打开的流上应答
	require.NoError(t, server.WriteFrame(ctx, 2, []byte("answer")))
	stream, data, _ = readMessage(t, client)
	assert.Equal(t, uint16(2), stream)
	assert.Equal(t, "answer", string(data))

	in, out := client.MaxStreams()
	assert.Equal(t, uint16(4), in)
	assert.Equal(t, uint16(4), out)

	t.Log("✅ SCTP 收发测试通过")
}

// TestSCTP_Fragmentation 测试大消息分片
func TestSCTP_Fragmentation(t *testing.T) {
	client, server := loopback(t)

	msg := bytes.Repeat([]byte("abcdefgh"), 500)
	require.NoError(t, client.WriteFrame(context.Background(), 1, msg))

	stream, data, frames := readMessage(t, server)
	assert.Equal(t, uint16(1), stream)
	assert.Equal(t, msg, data)
	assert.Equal(t, 4, frames)
}

// TestSCTP_PeerLargerFragments 测试对端分片大于本端分片大小时仍能接收
func TestSCTP_PeerLargerFragments(t *testing.T) {
	serverCfg := testConfig()
	clientCfg := testConfig()
	clientCfg.MaxFragmentSize = 4096

	client, server := loopbackWith(t, serverCfg, clientCfg)

	msg := bytes.Repeat([]byte("x"), 3000)
	require.NoError(t, client.WriteFrame(context.Background(), 0, msg))

	_, data, frames := readMessage(t, server)
	assert.Equal(t, msg, data)
	assert.Equal(t, 1, frames)
	assert.False(t, server.IsClosed())

	// 关联仍然可用
	require.NoError(t, server.WriteFrame(context.Background(), 0, []byte("ok")))
	_, data, _ = readMessage(t, client)
	assert.Equal(t, "ok", string(data))

	t.Log("✅ 分片大小不一致测试通过")
}

// TestReadBufferSize 测试读缓冲大小
func TestReadBufferSize(t *testing.T) {
	cfg := testConfig()
	assert.Equal(t, int(cfg.MaxMessageSize), readBufferSize(cfg))

	cfg.MaxMessageSize = 0
	assert.Equal(t, defaultMaxMessageSize, readBufferSize(cfg))

	cfg.MaxMessageSize = 512
	assert.Equal(t, cfg.MaxFragmentSize+1, readBufferSize(cfg))
}

// TestSCTP_EmptyMessage 测试空消息
func TestSCTP_EmptyMessage(t *testing.T) {
	client, server := loopback(t)

	require.NoError(t, client.WriteFrame(context.Background(), 0, nil))
	_, data, frames := readMessage(t, server)
	assert.Empty(t, data)
	assert.Equal(t, 1, frames)
}

// TestSCTP_StreamOutOfRange 测试出流上限
func TestSCTP_StreamOutOfRange(t *testing.T) {
	client, _ := loopback(t)
	err := client.WriteFrame(context.Background(), 4, []byte("x"))
	assert.ErrorIs(t, err, transport.ErrStreamOutOfRange)
}

// TestSCTP_Close 测试关闭
func TestSCTP_Close(t *testing.T) {
	client, _ := loopback(t)

	require.NoError(t, client.Close())
	assert.True(t, client.IsClosed())
	assert.ErrorIs(t, client.WriteFrame(context.Background(), 0, []byte("x")), transport.ErrClosed)

	_, err := client.ReadFrame()
	assert.ErrorIs(t, err, transport.ErrClosed)
}

// TestSCTP_ListenerClose 测试关闭监听器
func TestSCTP_ListenerClose(t *testing.T) {
	tr := NewTransport(testConfig())
	defer tr.Close()

	ln, err := tr.Listen(context.Background(), types.NewAddress("127.0.0.1", 0))
	require.NoError(t, err)
	require.NoError(t, ln.Close())

	_, err = ln.Accept()
	assert.ErrorIs(t, err, transport.ErrClosed)
	assert.Equal(t, []string{"sctp"}, tr.Protocols())
}
