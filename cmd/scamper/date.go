package main

import (
	"context"
	"time"

	"github.com/dep2p/go-scamper/pkg/protocol"
)

// 演示协议：客户端发送空的日期查询，服务端回复当前时间
var (
	dateQueryType  = protocol.MustMessageType("date-query", 0x44, 0x51)
	dateAnswerType = protocol.MustMessageType("date-answer", 0x44, 0x41)
)

// dateAnswer 日期应答
type dateAnswer struct {
	UnixNano int64  `json:"unix_nano" msgpack:"unix_nano"`
	Zone     string `json:"zone" msgpack:"zone"`
}

func (a dateAnswer) Time() time.Time {
	return time.Unix(0, a.UnixNano)
}

func answerDate(ctx context.Context, req *protocol.Request, msg protocol.Message[protocol.Void]) (protocol.Envelope, error) {
	now := time.Now()
	zone, _ := now.Zone()
	logger.Debug("date query", "remote", req.Conn.RemoteAddr().String(), "stream", req.Stream)
	return protocol.NewMessage(dateAnswerType, dateAnswer{UnixNano: now.UnixNano(), Zone: zone}), nil
}
