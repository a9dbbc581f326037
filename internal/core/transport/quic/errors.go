package quic

import "errors"

var (
	// ErrCertificate 生成证书失败
	ErrCertificate = errors.New("quic: certificate generation failed")

	// ErrUnexpectedHello 流上出现握手帧
	ErrUnexpectedHello = errors.New("quic: unexpected hello frame")
)
