package encoding

import "errors"

var (
	// ErrUnknownEncoding 未知的编码名
	ErrUnknownEncoding = errors.New("encoding: unknown encoding")

	// ErrNotProtoMessage 值不是 proto.Message
	ErrNotProtoMessage = errors.New("encoding: value is not a proto.Message")
)
