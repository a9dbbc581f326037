package dispatch

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-scamper/internal/core/codec"
	"github.com/dep2p/go-scamper/internal/core/encoding"
	"github.com/dep2p/go-scamper/pkg/interfaces/transport"
	"github.com/dep2p/go-scamper/pkg/protocol"
	"github.com/dep2p/go-scamper/pkg/types"
	"github.com/dep2p/go-scamper/tests/mocks"
)

var (
	queryType  = protocol.MustMessageType("query", 1, 1)
	answerType = protocol.MustMessageType("answer", 1, 2)
	rawType    = protocol.MustMessageType("raw", 2, 1)
	pingType   = protocol.MustMessageType("ping", 3, 1)
)

type query struct {
	Zone string `json:"zone"`
}

type sent struct {
	env    protocol.Envelope
	stream uint16
}

type recordingReplier struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (r *recordingReplier) Send(ctx context.Context, conn transport.Conn, env protocol.Envelope, stream uint16) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, sent{env: env, stream: stream})
	return nil
}

type recordingErrors struct {
	mu   sync.Mutex
	errs []error
}

func (r *recordingErrors) HandleError(ctx context.Context, conn transport.Conn, err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

func newRouter(t *testing.T, bind func(b *protocol.Bindings)) *protocol.Router {
	t.Helper()
	b := protocol.NewBindings()
	bind(b)
	r, err := b.Freeze()
	require.NoError(t, err)
	return r
}

func newConn() *mocks.MockConn {
	return mocks.NewMockConn(types.NewAddress("127.0.0.1", 9000))
}

// TestDispatch_ReplyOnSameStream 测试应答走请求到达的子流
func TestDispatch_ReplyOnSameStream(t *testing.T) {
	router := newRouter(t, func(b *protocol.Bindings) {
		require.NoError(t, b.Bind(queryType, protocol.HandlerFunc(func(ctx context.Context, req *protocol.Request, msg protocol.Message[query]) (protocol.Envelope, error) {
			return protocol.NewMessage(answerType, "now in "+msg.Body().Zone), nil
		})))
	})
	rep := &recordingReplier{}
	d := New(router, encoding.JSON{}, rep)

	err := d.Dispatch(context.Background(), newConn(), codec.Decoded{
		Type:    queryType,
		Payload: []byte(`{"zone":"UTC"}`),
		Stream:  7,
	})
	require.NoError(t, err)

	require.Len(t, rep.sent, 1)
	assert.Equal(t, uint16(7), rep.sent[0].stream)
	assert.True(t, rep.sent[0].env.MessageType().Equal(answerType))
	assert.Equal(t, "now in UTC", rep.sent[0].env.Payload())

	t.Log("✅ 应答子流测试通过")
}

// TestDispatch_RawAndVoid 测试原始字节和空负载处理器
func TestDispatch_RawAndVoid(t *testing.T) {
	var gotRaw []byte
	var pinged bool
	router := newRouter(t, func(b *protocol.Bindings) {
		require.NoError(t, b.Bind(rawType, protocol.HandlerFunc(func(ctx context.Context, req *protocol.Request, msg protocol.Message[[]byte]) (protocol.Envelope, error) {
			gotRaw = msg.Body()
			return nil, nil
		})))
		require.NoError(t, b.Bind(pingType, protocol.HandlerFunc(func(ctx context.Context, req *protocol.Request, msg protocol.Message[protocol.Void]) (protocol.Envelope, error) {
			pinged = true
			return nil, nil
		})))
	})
	rep := &recordingReplier{}
	d := New(router, encoding.JSON{}, rep)
	conn := newConn()

	// 非 JSON 字节对原始处理器无影响
	require.NoError(t, d.Dispatch(context.Background(), conn, codec.Decoded{Type: rawType, Payload: []byte{0xff, 0x00}}))
	assert.Equal(t, []byte{0xff, 0x00}, gotRaw)

	require.NoError(t, d.Dispatch(context.Background(), conn, codec.Decoded{Type: pingType, Payload: []byte("ignored")}))
	assert.True(t, pinged)

	assert.Empty(t, rep.sent)
	assert.False(t, conn.IsClosed())
}

// TestDispatch_UnknownTypeClosesConnection 测试未知类型关闭连接
func TestDispatch_UnknownTypeClosesConnection(t *testing.T) {
	router := newRouter(t, func(b *protocol.Bindings) {})
	errs := &recordingErrors{}
	d := New(router, encoding.JSON{}, &recordingReplier{}, WithErrorHandler(errs))
	conn := newConn()

	err := d.Dispatch(context.Background(), conn, codec.Decoded{Type: protocol.Unknown(9, 9), Payload: []byte("x")})
	assert.ErrorIs(t, err, ErrUnknownType)
	assert.True(t, conn.IsClosed())
	// 未知类型不是错误处理器的事
	assert.Empty(t, errs.errs)

	t.Log("✅ 未知类型测试通过")
}

// TestDispatch_DecodeErrorExcerpt 测试解码错误截取有界片段
func TestDispatch_DecodeErrorExcerpt(t *testing.T) {
	router := newRouter(t, func(b *protocol.Bindings) {
		require.NoError(t, b.Bind(queryType, protocol.HandlerFunc(func(ctx context.Context, req *protocol.Request, msg protocol.Message[query]) (protocol.Envelope, error) {
			t.Fatal("handler must not run")
			return nil, nil
		})))
	})
	d := New(router, encoding.JSON{}, &recordingReplier{})
	conn := newConn()

	payload := append([]byte("{"), bytes.Repeat([]byte("z"), 1000)...)
	err := d.Dispatch(context.Background(), conn, codec.Decoded{Type: queryType, Payload: payload})

	var derr *DecodeError
	require.True(t, errors.As(err, &derr))
	assert.Len(t, derr.Excerpt, ExcerptLimit)
	assert.Equal(t, 1001, derr.Size)
	assert.Equal(t, payload[:ExcerptLimit], derr.Excerpt)
	assert.Contains(t, derr.Error(), "...")
	assert.NotNil(t, errors.Unwrap(derr))

	// 默认错误处理关闭连接
	assert.True(t, conn.IsClosed())

	t.Log("✅ 解码错误片段测试通过")
}

// TestDispatch_ShortPayloadExcerpt 测试短负载完整保留
func TestDispatch_ShortPayloadExcerpt(t *testing.T) {
	derr := newDecodeError(queryType, []byte("{bad"), errors.New("boom"))
	assert.Equal(t, []byte("{bad"), derr.Excerpt)
	assert.NotContains(t, derr.Error(), "...")
}

// TestDispatch_HandlerAndReplyErrors 测试处理器和应答失败交给错误处理
func TestDispatch_HandlerAndReplyErrors(t *testing.T) {
	boom := errors.New("boom")
	router := newRouter(t, func(b *protocol.Bindings) {
		require.NoError(t, b.Bind(queryType, protocol.HandlerFunc(func(ctx context.Context, req *protocol.Request, msg protocol.Message[query]) (protocol.Envelope, error) {
			if msg.Body().Zone == "" {
				return nil, boom
			}
			return protocol.NewMessage(answerType, "ok"), nil
		})))
	})
	errs := &recordingErrors{}
	rep := &recordingReplier{err: transport.ErrClosed}
	d := New(router, encoding.JSON{}, rep, WithErrorHandler(errs))
	conn := newConn()

	err := d.Dispatch(context.Background(), conn, codec.Decoded{Type: queryType, Payload: []byte(`{}`)})
	assert.ErrorIs(t, err, ErrHandler)
	assert.ErrorIs(t, err, boom)

	err = d.Dispatch(context.Background(), conn, codec.Decoded{Type: queryType, Payload: []byte(`{"zone":"UTC"}`)})
	assert.ErrorIs(t, err, ErrReply)
	assert.ErrorIs(t, err, transport.ErrClosed)

	require.Len(t, errs.errs, 2)
	assert.False(t, conn.IsClosed())
}
