package protocol

// Void 无负载消息的负载类型
type Void = struct{}

// Envelope 出站消息的非泛型视图
//
// Sender 通过它获取类型和负载，处理器返回它作为应答。
type Envelope interface {
	MessageType() MessageType
	Payload() any
}

// Message 不可变的类型化消息
type Message[T any] struct {
	typ  MessageType
	body T
}

var _ Envelope = Message[[]byte]{}

// NewMessage 创建消息
func NewMessage[T any](t MessageType, body T) Message[T] {
	return Message[T]{typ: t, body: body}
}

// NewVoidMessage 创建无负载消息
func NewVoidMessage(t MessageType) Message[Void] {
	return Message[Void]{typ: t}
}

// MessageType 消息类型
func (m Message[T]) MessageType() MessageType {
	return m.typ
}

// Body 类型化负载
func (m Message[T]) Body() T {
	return m.body
}

// Payload 负载
func (m Message[T]) Payload() any {
	return m.body
}
