package codec

import "errors"

var (
	// ErrMagicMismatch 首字节不是本编解码器的魔数，读游标已恢复
	ErrMagicMismatch = errors.New("codec: magic number mismatch")

	// ErrNoMagicNumber 组合编解码器没有自己的魔数，不能被探测
	ErrNoMagicNumber = errors.New("codec: composite codec has no magic number")

	// ErrUnrecognizedFrame 没有编解码器接受该帧
	ErrUnrecognizedFrame = errors.New("codec: unrecognized frame")

	// ErrEmptyFrame 空帧
	ErrEmptyFrame = errors.New("codec: empty frame")

	// ErrDecompress 解压失败
	ErrDecompress = errors.New("codec: decompression failed")

	// ErrCompress 压缩失败
	ErrCompress = errors.New("codec: compression failed")

	// ErrDecrypt 解密失败
	ErrDecrypt = errors.New("codec: decryption failed")

	// ErrDefaultPassphrase 生产模式下使用了默认口令
	ErrDefaultPassphrase = errors.New("codec: will not run in production mode with default passphrase")
)
