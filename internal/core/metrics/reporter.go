package metrics

import "github.com/dep2p/go-scamper/pkg/protocol"

// Reporter 引擎事件上报
type Reporter interface {
	// FrameReceived 收到一个传输层帧
	FrameReceived(size int)

	// MessageReceived 收到一条完整消息
	MessageReceived(t protocol.MessageType, size int)

	// MessageSent 发出一条消息
	MessageSent(t protocol.MessageType, size int)

	// Overflow 分片队列超过上限
	Overflow()

	// DecodeError 负载解码失败
	DecodeError(t protocol.MessageType)

	// UnknownType 收到未注册的消息类型
	UnknownType()

	// SendFailed 发送失败
	SendFailed()

	// AssociationOpened 连接建立
	AssociationOpened()

	// AssociationClosed 连接关闭
	AssociationClosed()
}

// Nop 丢弃所有事件
type Nop struct{}

var _ Reporter = Nop{}

func (Nop) FrameReceived(int)                          {}
func (Nop) MessageReceived(protocol.MessageType, int) {}
func (Nop) MessageSent(protocol.MessageType, int)     {}
func (Nop) Overflow()                                  {}
func (Nop) DecodeError(protocol.MessageType)           {}
func (Nop) UnknownType()                               {}
func (Nop) SendFailed()                                {}
func (Nop) AssociationOpened()                         {}
func (Nop) AssociationClosed()                         {}
