package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-scamper/config"
	"github.com/dep2p/go-scamper/internal/core/association"
	"github.com/dep2p/go-scamper/internal/core/codec"
	"github.com/dep2p/go-scamper/internal/core/dispatch"
	"github.com/dep2p/go-scamper/internal/core/encoding"
	"github.com/dep2p/go-scamper/internal/core/fragment"
	"github.com/dep2p/go-scamper/internal/core/sender"
	"github.com/dep2p/go-scamper/pkg/interfaces/transport"
	"github.com/dep2p/go-scamper/pkg/lib/buf"
	"github.com/dep2p/go-scamper/pkg/protocol"
	"github.com/dep2p/go-scamper/pkg/types"
	"github.com/dep2p/go-scamper/tests/mocks"
)

var (
	queryType  = protocol.MustMessageType("query", 1, 1)
	answerType = protocol.MustMessageType("answer", 1, 2)
	strayType  = protocol.MustMessageType("stray", 9, 9)
)

type query struct {
	Name string `json:"name"`
}

type answer struct {
	Greeting string `json:"greeting"`
}

type fixture struct {
	engine  *Engine
	chain   *codec.Chain
	assoc   *association.Manager
	sender  *sender.Sender
	tr      *mocks.MockTransport
	answers chan answer
}

func newFixture(t *testing.T, overflowCap int) *fixture {
	t.Helper()
	f := &fixture{tr: mocks.NewMockTransport(), answers: make(chan answer, 8)}

	b := protocol.NewBindings()
	require.NoError(t, b.Bind(queryType, protocol.HandlerFunc(func(ctx context.Context, req *protocol.Request, msg protocol.Message[query]) (protocol.Envelope, error) {
		return protocol.NewMessage(answerType, answer{Greeting: "hello " + msg.Body().Name}), nil
	})))
	require.NoError(t, b.Bind(answerType, protocol.HandlerFunc(func(ctx context.Context, req *protocol.Request, msg protocol.Message[answer]) (protocol.Envelope, error) {
		f.answers <- msg.Body()
		return nil, nil
	})))
	router, err := b.Freeze()
	require.NoError(t, err)

	f.chain, err = codec.NewChainFromConfig(router.Registry(), config.DefaultCodecConfig(), false)
	require.NoError(t, err)

	f.assoc = association.NewManager(f.tr)
	f.sender = sender.New(f.chain, encoding.JSON{}, f.assoc)
	d := dispatch.New(router, encoding.JSON{}, f.sender)
	f.engine = New(f.tr, fragment.New(overflowCap, nil), f.chain, d, f.assoc)

	t.Cleanup(func() {
		_ = f.engine.Close()
		_ = f.assoc.Close()
	})
	return f
}

func (f *fixture) encode(t *testing.T, mt protocol.MessageType, payload string) []byte {
	t.Helper()
	frame, err := f.chain.Encode(mt, []byte(payload))
	require.NoError(t, err)
	return frame
}

func waitWrite(t *testing.T, c *mocks.MockConn) mocks.WrittenFrame {
	t.Helper()
	select {
	case w := <-c.Written():
		return w
	case <-time.After(2 * time.Second):
		t.Fatal("no frame written")
		return mocks.WrittenFrame{}
	}
}

// TestEngine_QueryAnswer 测试入站查询得到应答
func TestEngine_QueryAnswer(t *testing.T) {
	f := newFixture(t, 0)
	conn := mocks.NewMockConn(types.NewAddress("10.0.0.1", 8007))
	require.True(t, f.engine.Attach(conn))
	assert.False(t, f.engine.Attach(conn))

	conn.Deliver(transport.Frame{Stream: 5, Data: f.encode(t, queryType, `{"name":"alice"}`), Complete: true})

	w := waitWrite(t, conn)
	assert.Equal(t, uint16(5), w.Stream)
	d, err := f.chain.Decode(buf.Wrap(w.Data), w.Stream)
	require.NoError(t, err)
	assert.True(t, d.Type.Equal(answerType))
	assert.JSONEq(t, `{"greeting":"hello alice"}`, string(d.Payload))

	t.Log("✅ 查询应答测试通过")
}

// TestEngine_Fragments 测试分片重组后分发
func TestEngine_Fragments(t *testing.T) {
	f := newFixture(t, 0)
	conn := mocks.NewMockConn(types.NewAddress("10.0.0.2", 8007))
	f.engine.Attach(conn)

	frame := f.encode(t, queryType, `{"name":"bob"}`)
	conn.Deliver(transport.Frame{Stream: 1, Data: frame[:4]})
	conn.Deliver(transport.Frame{Stream: 1, Data: frame[4:9]})
	conn.Deliver(transport.Frame{Stream: 1, Data: frame[9:], Complete: true})

	w := waitWrite(t, conn)
	d, err := f.chain.Decode(buf.Wrap(w.Data), w.Stream)
	require.NoError(t, err)
	assert.JSONEq(t, `{"greeting":"hello bob"}`, string(d.Payload))
}

// TestEngine_UnknownTypeClosesConn 测试未知类型关闭连接
func TestEngine_UnknownTypeClosesConn(t *testing.T) {
	f := newFixture(t, 0)
	conn := mocks.NewMockConn(types.NewAddress("10.0.0.3", 8007))
	f.engine.Attach(conn)

	conn.Deliver(transport.Frame{Data: f.encode(t, strayType, "x"), Complete: true})

	require.Eventually(t, conn.IsClosed, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return f.engine.Attached() == 0 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, conn.Writes())
}

// TestEngine_BadFrameHandled 测试无法识别的线帧交给错误处理
func TestEngine_BadFrameHandled(t *testing.T) {
	f := newFixture(t, 0)
	conn := mocks.NewMockConn(types.NewAddress("10.0.0.4", 8007))
	f.engine.Attach(conn)

	conn.Deliver(transport.Frame{Data: []byte{0xEE, 1, 1}, Complete: true})
	require.Eventually(t, conn.IsClosed, time.Second, 5*time.Millisecond)
}

// TestEngine_OverflowReleased 测试超限分片按默认策略关闭连接并释放队列
func TestEngine_OverflowReleased(t *testing.T) {
	f := newFixture(t, 8)
	conn := mocks.NewMockConn(types.NewAddress("10.0.0.5", 8007))
	f.engine.Attach(conn)

	conn.Deliver(transport.Frame{Stream: 2, Data: make([]byte, 6)})
	conn.Deliver(transport.Frame{Stream: 2, Data: make([]byte, 6)})

	require.Eventually(t, conn.IsClosed, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return f.engine.Attached() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, fragment.StateEmpty, f.engine.frags.State(conn.ID(), 2))
}

// TestEngine_OutboundReplyDispatched 测试出站连接自动接入，应答被分发
func TestEngine_OutboundReplyDispatched(t *testing.T) {
	f := newFixture(t, 0)
	var peer atomic.Pointer[mocks.MockConn]
	f.tr.DialFunc = func(ctx context.Context, addr types.Address) (transport.Conn, error) {
		c := mocks.NewMockConn(addr)
		peer.Store(c)
		return c, nil
	}

	addr := types.NewAddress("10.0.0.6", 8007)
	receipt, err := f.sender.SendTo(context.Background(), addr, protocol.NewMessage(queryType, query{Name: "carol"})).
		Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, f.engine.Attached())

	conn := peer.Load()
	conn.Deliver(transport.Frame{
		Stream:   receipt.Stream,
		Data:     f.encode(t, answerType, `{"greeting":"hi carol"}`),
		Complete: true,
	})

	select {
	case a := <-f.answers:
		assert.Equal(t, "hi carol", a.Greeting)
	case <-time.After(2 * time.Second):
		t.Fatal("answer not dispatched")
	}

	t.Log("✅ 出站应答分发测试通过")
}

// TestEngine_ReadError 测试读错误关闭连接
func TestEngine_ReadError(t *testing.T) {
	f := newFixture(t, 0)
	conn := mocks.NewMockConn(types.NewAddress("10.0.0.7", 8007))
	conn.ReadFrameFn = func() (transport.Frame, error) {
		return transport.Frame{}, errors.New("connection reset")
	}
	f.engine.Attach(conn)

	require.Eventually(t, conn.IsClosed, time.Second, 5*time.Millisecond)
}

// TestEngine_Close 测试关闭引擎
func TestEngine_Close(t *testing.T) {
	f := newFixture(t, 0)
	conn := mocks.NewMockConn(types.NewAddress("10.0.0.8", 8007))
	f.engine.Attach(conn)

	require.NoError(t, f.engine.Close())
	assert.True(t, conn.IsClosed())
	assert.Equal(t, 0, f.engine.Attached())

	late := mocks.NewMockConn(types.NewAddress("10.0.0.9", 8007))
	assert.False(t, f.engine.Attach(late))
	assert.True(t, late.IsClosed())

	_, err := f.engine.Listen(context.Background(), types.NewAddress("127.0.0.1", 0))
	assert.ErrorIs(t, err, ErrEngineClosed)
}
