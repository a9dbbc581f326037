package encoding

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/vmihailenco/msgpack/v5"
	"google.golang.org/protobuf/proto"

	"github.com/dep2p/go-scamper/config"
	"github.com/dep2p/go-scamper/pkg/protocol"
)

// Encoding 消息体数据编码
type Encoding interface {
	protocol.Unmarshaler

	// Name 编码名
	Name() string

	// Marshal 序列化消息体
	Marshal(v any) ([]byte, error)
}

// ByName 按名称返回编码
func ByName(name string) (Encoding, error) {
	switch name {
	case config.EncodingMsgPack, "":
		return MsgPack{}, nil
	case config.EncodingJSON:
		return JSON{}, nil
	case config.EncodingGob:
		return Gob{}, nil
	case config.EncodingProtobuf:
		return Protobuf{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
}

// ============================================================================
//                              msgpack
// ============================================================================

// MsgPack 二进制对象编码
type MsgPack struct{}

var _ Encoding = MsgPack{}

func (MsgPack) Name() string { return config.EncodingMsgPack }

func (MsgPack) Marshal(v any) ([]byte, error) { return msgpack.Marshal(v) }

func (MsgPack) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }

// ============================================================================
//                              json
// ============================================================================

// JSON 文本编码
type JSON struct{}

var _ Encoding = JSON{}

func (JSON) Name() string { return config.EncodingJSON }

func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// ============================================================================
//                              gob
// ============================================================================

// Gob Go 原生序列化，每条消息自带类型描述
type Gob struct{}

var _ Encoding = Gob{}

func (Gob) Name() string { return config.EncodingGob }

func (Gob) Marshal(v any) ([]byte, error) {
	var b bytes.Buffer
	if err := gob.NewEncoder(&b).Encode(v); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func (Gob) Unmarshal(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// ============================================================================
//                              protobuf
// ============================================================================

// Protobuf protobuf 编码
//
// Unmarshal 接受 proto.Message，或指向 nil 消息指针的指针（此时分配新消息）。
type Protobuf struct{}

var _ Encoding = Protobuf{}

var protoMessageType = reflect.TypeOf((*proto.Message)(nil)).Elem()

func (Protobuf) Name() string { return config.EncodingProtobuf }

func (Protobuf) Marshal(v any) ([]byte, error) {
	m, ok := v.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNotProtoMessage, v)
	}
	return proto.Marshal(m)
}

func (Protobuf) Unmarshal(data []byte, v any) error {
	if m, ok := v.(proto.Message); ok {
		return proto.Unmarshal(data, m)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("%w: %T", ErrNotProtoMessage, v)
	}
	elem := rv.Elem()
	if elem.Kind() != reflect.Ptr || !elem.Type().Implements(protoMessageType) {
		return fmt.Errorf("%w: %T", ErrNotProtoMessage, v)
	}
	if elem.IsNil() {
		elem.Set(reflect.New(elem.Type().Elem()))
	}
	return proto.Unmarshal(data, elem.Interface().(proto.Message))
}
