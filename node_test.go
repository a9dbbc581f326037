package scamper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-scamper/config"
	"github.com/dep2p/go-scamper/pkg/interfaces/transport"
	"github.com/dep2p/go-scamper/pkg/protocol"
	"github.com/dep2p/go-scamper/pkg/types"
	"github.com/dep2p/go-scamper/tests/mocks"
)

var (
	dateQuery  = protocol.MustMessageType("date-query", 1, 1)
	dateAnswer = protocol.MustMessageType("date-answer", 1, 2)
)

type dateBody struct {
	Unix int64 `json:"unix" msgpack:"unix"`
}

// startServer 启动应答日期查询的服务端节点
func startServer(t *testing.T, opts ...Option) (*Node, types.Address) {
	t.Helper()
	b := NewBuilder(append([]Option{WithListen(types.NewAddress("127.0.0.1", 0))}, opts...)...)
	Handle(b, dateQuery, func(ctx context.Context, req *protocol.Request, msg protocol.Message[protocol.Void]) (protocol.Envelope, error) {
		return protocol.NewMessage(dateAnswer, dateBody{Unix: 1700000000}), nil
	})
	node, err := b.Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = node.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := node.Listen(ctx)
	require.NoError(t, err)

	addr, err := types.AddressFromNetAddr(s.Addrs()[0])
	require.NoError(t, err)
	return node, addr
}

// startClient 启动接收日期应答的客户端节点
func startClient(t *testing.T, answers chan<- dateBody, opts ...Option) *Node {
	t.Helper()
	b := NewBuilder(opts...)
	Handle(b, dateAnswer, func(ctx context.Context, req *protocol.Request, msg protocol.Message[dateBody]) (protocol.Envelope, error) {
		answers <- msg.Body()
		return nil, nil
	})
	node, err := b.Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = node.Close() })
	require.NoError(t, node.Start(context.Background()))
	return node
}

// TestNode_DateQuery 测试三种传输上的查询应答
func TestNode_DateQuery(t *testing.T) {
	for _, kind := range []string{config.TransportTCP, config.TransportSCTP, config.TransportQUIC} {
		t.Run(kind, func(t *testing.T) {
			_, addr := startServer(t, WithTransportKind(kind))

			answers := make(chan dateBody, 1)
			client := startClient(t, answers, WithTransportKind(kind))

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			receipt, err := client.SendTo(ctx, addr, protocol.NewVoidMessage(dateQuery)).Wait(ctx)
			require.NoError(t, err)
			assert.NotNil(t, receipt.Conn)

			select {
			case a := <-answers:
				assert.Equal(t, int64(1700000000), a.Unix)
			case <-ctx.Done():
				t.Fatal("no answer")
			}
			assert.Equal(t, 1, client.Associations())

			ok, err := client.Disconnect(addr)
			assert.True(t, ok)
			assert.NoError(t, err)
		})
	}

	t.Log("✅ 日期查询测试通过")
}

// TestNode_CodecModes 测试压缩和加密模式下的往返
func TestNode_CodecModes(t *testing.T) {
	cases := []struct {
		name string
		opts []Option
	}{
		{"gzip", []Option{WithCodecMode(config.CodecModeGzip)}},
		{"encrypt", []Option{WithCodecMode(config.CodecModeEncrypt), WithPassphrase("correct horse battery staple")}},
		{"auto", []Option{WithCodecMode(config.CodecModeAuto), WithEncoding(config.EncodingJSON)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := append([]Option{WithTransportKind(config.TransportTCP)}, tc.opts...)
			_, addr := startServer(t, opts...)

			answers := make(chan dateBody, 1)
			client := startClient(t, answers, opts...)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_, err := client.SendTo(ctx, addr, protocol.NewVoidMessage(dateQuery)).Wait(ctx)
			require.NoError(t, err)

			select {
			case a := <-answers:
				assert.Equal(t, int64(1700000000), a.Unix)
			case <-ctx.Done():
				t.Fatal("no answer")
			}
		})
	}
}

// TestBuilder_Errors 测试配置错误在 Build 时返回
func TestBuilder_Errors(t *testing.T) {
	noop := func(ctx context.Context, req *protocol.Request, msg protocol.Message[[]byte]) (protocol.Envelope, error) {
		return nil, nil
	}

	t.Run("duplicate binding", func(t *testing.T) {
		b := NewBuilder()
		Handle(b, dateQuery, noop)
		Handle(b, dateQuery, noop)
		_, err := b.Build()
		assert.ErrorIs(t, err, protocol.ErrConfiguration)
	})

	t.Run("unknown encoding", func(t *testing.T) {
		_, err := NewBuilder(WithEncoding("xml")).Build()
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})

	t.Run("production default passphrase", func(t *testing.T) {
		_, err := NewBuilder(WithCodecMode(config.CodecModeEncrypt), WithProduction()).Build()
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})

	t.Run("bad transport", func(t *testing.T) {
		_, err := NewBuilder(WithTransportKind("udp")).Build()
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})

	t.Run("built twice", func(t *testing.T) {
		b := NewBuilder(WithoutMetrics())
		n, err := b.Build()
		require.NoError(t, err)
		defer n.Close()
		_, err = b.Build()
		assert.ErrorIs(t, err, ErrAlreadyBuilt)
	})

	t.Run("bind after build", func(t *testing.T) {
		b := NewBuilder(WithoutMetrics())
		Handle(b, dateQuery, noop)
		n, err := b.Build()
		require.NoError(t, err)
		defer n.Close()
		require.NoError(t, b.Err())

		late := protocol.MustMessageType("late", 9, 9)
		Handle(b, late, noop)

		assert.ErrorIs(t, b.Err(), protocol.ErrConfiguration)
		_, ok := n.Router().Handler(late)
		assert.False(t, ok)
		_, err = b.Build()
		assert.ErrorIs(t, err, protocol.ErrConfiguration)
	})
}

// TestNode_Lifecycle 测试状态转换
func TestNode_Lifecycle(t *testing.T) {
	n, err := NewBuilder(WithTransport(mocks.NewMockTransport())).Build()
	require.NoError(t, err)
	assert.Equal(t, StateIdle, n.State())

	_, err = n.Connect(types.NewAddress("10.0.0.1", 8007)).Wait(context.Background())
	assert.ErrorIs(t, err, ErrNotStarted)

	require.NoError(t, n.Start(context.Background()))
	assert.Equal(t, StateRunning, n.State())
	assert.ErrorIs(t, n.Start(context.Background()), ErrAlreadyStarted)
	assert.Equal(t, []string{"mock"}, n.Protocols())

	require.NoError(t, n.Close())
	assert.Equal(t, StateClosed, n.State())
	assert.NoError(t, n.Close())
	assert.ErrorIs(t, n.Start(context.Background()), ErrNodeClosed)

	err = n.Send(context.Background(), mocks.NewMockConn(types.NewAddress("10.0.0.1", 8007)), protocol.NewVoidMessage(dateQuery), 0)
	assert.ErrorIs(t, err, ErrNodeClosed)
}

// TestNode_CustomErrorHandler 测试自定义错误处理收到解码错误
func TestNode_CustomErrorHandler(t *testing.T) {
	errs := make(chan error, 1)
	tr := mocks.NewMockTransport()
	conn := mocks.NewMockConn(types.NewAddress("10.0.0.2", 8007))
	tr.DialFunc = func(ctx context.Context, addr types.Address) (transport.Conn, error) {
		return conn, nil
	}

	b := NewBuilder(
		WithTransport(tr),
		WithEncoding(config.EncodingJSON),
		WithErrorHandler(ErrorHandlerFunc(func(ctx context.Context, c transport.Conn, err error) {
			errs <- err
		})),
	)
	Handle(b, dateAnswer, func(ctx context.Context, req *protocol.Request, msg protocol.Message[dateBody]) (protocol.Envelope, error) {
		return nil, nil
	})
	n, err := b.Build()
	require.NoError(t, err)
	defer n.Close()
	require.NoError(t, n.Start(context.Background()))

	_, err = n.Connect(conn.Remote).Wait(context.Background())
	require.NoError(t, err)

	frame := append([]byte{123, 1, 2}, []byte("not json")...)
	conn.Deliver(transport.Frame{Data: frame, Complete: true})

	select {
	case err := <-errs:
		var derr *DecodeError
		require.True(t, errors.As(err, &derr))
		assert.Equal(t, "not json", string(derr.Excerpt))
	case <-time.After(2 * time.Second):
		t.Fatal("error handler not called")
	}
	assert.False(t, conn.IsClosed())
}

// TestNode_Metrics 测试指标注册到注入的 Registry
func TestNode_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	server, addr := startServer(t, WithTransportKind(config.TransportTCP), WithRegisterer(reg))

	answers := make(chan dateBody, 1)
	client := startClient(t, answers, WithTransportKind(config.TransportTCP))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := client.SendTo(ctx, addr, protocol.NewVoidMessage(dateQuery)).Wait(ctx)
	require.NoError(t, err)
	<-answers

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["scamper_messages_total"])
	assert.True(t, names["scamper_frames_received_total"])
	assert.True(t, names["scamper_message_rate_bytes"])
	assert.NotNil(t, client.Gatherer())

	// 服务端在写出应答后记录出站带宽
	require.Eventually(t, func() bool {
		return server.Bandwidth().MessagesOut == 1
	}, 5*time.Second, 10*time.Millisecond)

	total := server.Bandwidth()
	assert.Equal(t, int64(1), total.MessagesIn)
	assert.Positive(t, total.BytesOut)
	assert.Positive(t, total.RateOut)

	byType := server.BandwidthByType()
	require.Len(t, byType, 2)
	assert.Equal(t, dateQuery, byType[0].Type)
	assert.Equal(t, int64(1), byType[0].MessagesIn)
	assert.Equal(t, dateAnswer, byType[1].Type)
	assert.Equal(t, int64(1), byType[1].MessagesOut)

	t.Log("✅ 节点指标测试通过")
}

// TestNode_BandwidthWithoutMetrics 测试关闭指标时带宽统计为空
func TestNode_BandwidthWithoutMetrics(t *testing.T) {
	n, err := NewBuilder(WithoutMetrics(), WithTransport(mocks.NewMockTransport())).Build()
	require.NoError(t, err)
	defer n.Close()

	assert.Equal(t, BandwidthStats{}, n.Bandwidth())
	assert.Nil(t, n.BandwidthByType())
}
