package protocol

import (
	"fmt"
)

// HeaderLength 类型头长度
const HeaderLength = 2

// ============================================================================
//                              MessageType
// ============================================================================

// MessageType 消息类型
//
// 相等性只由两个签名字节决定，比较时使用 Equal 或 Code。
type MessageType struct {
	name    string
	one     byte
	two     byte
	unknown bool
}

// NewMessageType 创建可注册的消息类型
//
// (0,0) 保留给未知类型，返回 ErrConfiguration。
func NewMessageType(name string, one, two byte) (MessageType, error) {
	if one == 0 && two == 0 {
		return MessageType{}, fmt.Errorf("%w: type %q uses reserved code 0x0000", ErrConfiguration, name)
	}
	return MessageType{name: name, one: one, two: two}, nil
}

// MustMessageType 同 NewMessageType，失败时 panic，用于包级变量
func MustMessageType(name string, one, two byte) MessageType {
	t, err := NewMessageType(name, one, two)
	if err != nil {
		panic(err)
	}
	return t
}

// Unknown 返回携带观测字节的未知类型
func Unknown(one, two byte) MessageType {
	return MessageType{name: "unknown", one: one, two: two, unknown: true}
}

// Name 类型名称
func (t MessageType) Name() string {
	return t.name
}

// Signature 返回两个签名字节
func (t MessageType) Signature() (byte, byte) {
	return t.one, t.two
}

// Code 返回 16 位类型码，用作映射键
func (t MessageType) Code() uint16 {
	return uint16(t.one)<<8 | uint16(t.two)
}

// IsUnknown 是否为未知类型
func (t MessageType) IsUnknown() bool {
	return t.unknown
}

// Equal 比较签名字节
func (t MessageType) Equal(other MessageType) bool {
	return t.one == other.one && t.two == other.two
}

// AppendHeader 追加 2 字节类型头
func (t MessageType) AppendHeader(dst []byte) []byte {
	return append(dst, t.one, t.two)
}

// String 返回 0xAABB(name)
func (t MessageType) String() string {
	return fmt.Sprintf("0x%02X%02X(%s)", t.one, t.two, t.name)
}
